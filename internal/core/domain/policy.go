package domain

// Action names an operation gated by the authorization policy.
type Action string

const (
	ActionCreateTask   Action = "task:create"
	ActionReadTask     Action = "task:read"
	ActionUpdateTask   Action = "task:update"
	ActionDeleteTask   Action = "task:delete"
	ActionAssignTask   Action = "task:assign"
	ActionChangeStatus Action = "task:change_status"
	ActionDeleteUser   Action = "user:delete"
	ActionReadSelf     Action = "user:read_self"
)

// anyRole marks actions open to every authenticated role.
var anyRole = []Role{RoleAdmin, RoleUser, RoleManager}

// permissions is a flat role gate. There are no per-resource ownership checks.
var permissions = map[Action][]Role{
	ActionCreateTask:   anyRole,
	ActionReadTask:     anyRole,
	ActionUpdateTask:   {RoleManager},
	ActionDeleteTask:   {RoleAdmin},
	ActionAssignTask:   {RoleManager},
	ActionChangeStatus: anyRole,
	ActionDeleteUser:   {RoleAdmin},
	ActionReadSelf:     anyRole,
}

// IsAllowed reports whether role may perform action. Unknown actions and
// unknown roles are denied.
func IsAllowed(role Role, action Action) bool {
	for _, r := range permissions[action] {
		if r == role {
			return true
		}
	}
	return false
}
