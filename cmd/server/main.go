// @title                       Task API
// @version                     1.0
// @description                 Task tracking service with role-based access and status-change notifications.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/originals/task-api/docs"
	"github.com/originals/task-api/internal/api"
	"github.com/originals/task-api/internal/api/handler"
	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/core/ports"
	"github.com/originals/task-api/internal/core/service"
	"github.com/originals/task-api/internal/infrastructure/config"
	mongostore "github.com/originals/task-api/internal/infrastructure/db/mongo"
	redisstore "github.com/originals/task-api/internal/infrastructure/db/redis"
	sqlstore "github.com/originals/task-api/internal/infrastructure/db/sql"
	"github.com/originals/task-api/internal/infrastructure/notify"
	"github.com/originals/task-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "task-api: %v\n", err)
		os.Exit(1)
	}
}

// stores holds the repositories and readiness probe of the selected backend.
type stores struct {
	users  ports.UserRepository
	tasks  ports.TaskRepository
	probe  handler.Pinger
	closer func(context.Context) error
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "task-api",
		Env:     cfg.Env,
	})

	st, err := openStore(ctx, cfg, logger.Component("store"))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.closer(context.Background()); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()
	probes := []handler.Dependency{{Name: cfg.Store.Driver, Pinger: st.probe}}

	sink, err := newSink(cfg, logger.Component("notify"))
	if err != nil {
		return err
	}
	if cfg.Redis.Addr != "" {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		sink = notify.NewDeduper(redisstore.NewDedupChecker(client, cfg.Notify.DedupWindow), sink, logger.Component("dedup"))
		probes = append(probes, handler.Dependency{Name: "redis", Pinger: redisstore.Pinger{Client: client}})
	}

	// Workers run until the HTTP server has drained, not until the signal.
	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()
	dispatcher := notify.NewDispatcher(cfg.Notify.Workers, sink, logger.Component("dispatcher"))
	dispatcher.Start(dispatchCtx)

	tokens := service.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.AccessTTL())
	auth := service.NewAuthService(st.users, tokens, cfg.Auth.BcryptCost, logger.Component("auth"))
	tasks := service.NewTaskService(st.tasks, st.users, dispatcher, cfg.Tasks.StrictTransitions, logger.Component("tasks"))

	if err := bootstrap(ctx, auth, cfg.BootstrapAdmin, domain.RoleAdmin); err != nil {
		return err
	}
	if err := bootstrap(ctx, auth, cfg.BootstrapManager, domain.RoleManager); err != nil {
		return err
	}

	e := api.NewRouter(api.Dependencies{
		Auth:   auth,
		Tasks:  tasks,
		Tokens: tokens,
		Probes: probes,
		Logger: logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Str("notifier", cfg.Notify.Sink).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cancelDispatch()
	dispatcher.Wait()
	log.Info().Msg("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		store := mongostore.NewStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo store ready")
		return &stores{users: store.Users, tasks: store.Tasks, probe: store, closer: client.Disconnect}, nil

	default:
		db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN}, log)
		if err != nil {
			return nil, err
		}
		store := sqlstore.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		log.Info().Str("driver", cfg.Store.Driver).Msg("sql store ready")
		return &stores{
			users:  store.Users,
			tasks:  store.Tasks,
			probe:  store,
			closer: func(context.Context) error { return store.Close() },
		}, nil
	}
}

func newSink(cfg *config.Config, log zerolog.Logger) (notify.Sink, error) {
	if cfg.Notify.Sink != config.NotifierTelegram {
		return notify.NewLogSink(log), nil
	}
	bot, err := notify.NewTelegramBot(cfg.Notify.TelegramToken)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bot", bot.Self.UserName).Int64("chat_id", cfg.Notify.TelegramChatID).Msg("telegram notifier ready")
	return notify.NewTelegramSink(bot, cfg.Notify.TelegramChatID), nil
}

func bootstrap(ctx context.Context, auth *service.AuthService, user config.BootstrapUser, role domain.Role) error {
	if !user.Enabled() {
		return nil
	}
	if _, err := auth.EnsureUser(ctx, user.Username, user.Email, user.Password, role); err != nil {
		return fmt.Errorf("bootstrap %s %q: %w", role, user.Username, err)
	}
	return nil
}
