package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/originals/task-api/internal/core/domain"
)

// TaskRepository implements ports.TaskRepository using MongoDB. Assignees
// are stored as an id array and resolved against the users collection on
// read.
type TaskRepository struct {
	col   *mongo.Collection
	users *mongo.Collection
	ids   *sequence
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{
		col:   db.Collection(collectionTasks),
		users: db.Collection(collectionUsers),
		ids:   newSequence(db, collectionTasks),
	}
}

type taskDocument struct {
	ID                  int64     `bson:"_id"`
	Title               string    `bson:"title"`
	Description         string    `bson:"description"`
	Status              string    `bson:"status"`
	Priority            string    `bson:"priority"`
	ResponsiblePersonID int64     `bson:"responsible_person_id"`
	AssigneeIDs         []int64   `bson:"assignee_ids"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

func (d taskDocument) toDomain(assignees []domain.User) *domain.Task {
	if assignees == nil {
		assignees = []domain.User{}
	}
	return &domain.Task{
		ID:                  d.ID,
		Title:               d.Title,
		Description:         d.Description,
		Status:              domain.TaskStatus(d.Status),
		Priority:            domain.TaskPriority(d.Priority),
		ResponsiblePersonID: d.ResponsiblePersonID,
		Assignees:           assignees,
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}
}

// patchUpdate builds the $set document for the supplied fields. updated_at
// is always refreshed.
func patchUpdate(patch domain.TaskPatch, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	return bson.M{"$set": set}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.ids.next(ctx)
	if err != nil {
		return nil, err
	}

	doc := taskDocument{
		ID:                  id,
		Title:               task.Title,
		Description:         task.Description,
		Status:              string(task.Status),
		Priority:            string(task.Priority),
		ResponsiblePersonID: task.ResponsiblePersonID,
		AssigneeIDs:         []int64{},
		CreatedAt:           task.CreatedAt.UTC(),
		UpdatedAt:           task.UpdatedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return doc.toDomain(nil), nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc taskDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return r.hydrate(ctx, doc)
}

func (r *TaskRepository) Update(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	return r.findAndModify(ctx, id, patchUpdate(patch, time.Now().UTC()))
}

// AddAssignee links the user to the task. $addToSet keeps membership unique.
func (r *TaskRepository) AddAssignee(ctx context.Context, taskID, userID int64) (*domain.Task, error) {
	return r.findAndModify(ctx, taskID, bson.M{
		"$addToSet": bson.M{"assignee_ids": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *TaskRepository) findAndModify(ctx context.Context, id int64, update bson.M) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return r.hydrate(ctx, doc)
}

// hydrate resolves assignee ids into users, keeping the stored order.
func (r *TaskRepository) hydrate(ctx context.Context, doc taskDocument) (*domain.Task, error) {
	if len(doc.AssigneeIDs) == 0 {
		return doc.toDomain(nil), nil
	}

	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": doc.AssigneeIDs}})
	if err != nil {
		return nil, fmt.Errorf("find assignees: %w", err)
	}
	var users []userDocument
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode assignees: %w", err)
	}

	return doc.toDomain(orderAssignees(doc.AssigneeIDs, users)), nil
}

func orderAssignees(ids []int64, docs []userDocument) []domain.User {
	byID := make(map[int64]userDocument, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, *d.toDomain())
		}
	}
	return out
}
