package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/werewolf-agent/internal/config"
	"github.com/rocketscienceinc/werewolf-agent/internal/repository"
	"github.com/rocketscienceinc/werewolf-agent/internal/repository/storage"
	"github.com/rocketscienceinc/werewolf-agent/internal/scheduler"
	"github.com/rocketscienceinc/werewolf-agent/internal/service"
	"github.com/rocketscienceinc/werewolf-agent/internal/transport/gameapi"
	"github.com/rocketscienceinc/werewolf-agent/internal/usecase"
	"github.com/rocketscienceinc/werewolf-agent/transport/rest"
)

// RunApp - runs the agent until the game finishes or a signal arrives.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	journal, closer, err := openJournal(ctx, conf)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			log.Error("could not close journal storage", "error", closeErr)
		}
	}()

	oracle, err := service.NewOracle(logger, conf)
	if err != nil {
		return fmt.Errorf("could not create oracle: %w", err)
	}

	api := gameapi.New(logger, conf.Game.APIBaseURL, conf.Game.Token, conf.Game.RequestTimeout)
	guard := usecase.NewTurnGuard()
	pipeline := usecase.NewTurnPipeline(logger, guard, oracle, api, journal,
		conf.Game.ID, conf.Game.PlayerID, conf.LLM.Timeout)
	poller := scheduler.New(logger, api, pipeline, guard, conf.Game.ID, conf.Game.PollInterval)

	log.Info("agent configured",
		"game_id", conf.Game.ID,
		"player_id", conf.Game.PlayerID,
		"player_index", conf.Game.PlayerIndex,
		"player_role", conf.Game.PlayerRole,
		"oracle", oracle.Name(),
		"journal", conf.Journal.Driver,
		"task", conf.Task.Type,
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		// the health server has nothing left to report once the game is over
		defer cancel()
		return poller.Start(groupCtx)
	})

	if conf.HTTPPort != "" {
		group.Go(func() error {
			return serveHealth(groupCtx, log, rest.New(logger, poller), conf.HTTPPort)
		})
	}

	if err = group.Wait(); err != nil {
		return fmt.Errorf("agent stopped with error: %w", err)
	}

	log.Info("agent finished")

	return nil
}

type healthServer interface {
	Start(ctx context.Context, port string) error
}

// serveHealth never fails the group: the game goes on without the health endpoint.
func serveHealth(ctx context.Context, log *slog.Logger, server healthServer, port string) error {
	if err := server.Start(ctx, port); err != nil {
		log.Error("health server stopped, agent keeps playing", "port", port, "error", err)
	}

	return nil
}

// openJournal returns a nil journal for the "none" driver.
func openJournal(ctx context.Context, conf *config.Config) (repository.JournalRepository, io.Closer, error) {
	switch conf.Journal.Driver {
	case config.JournalRedis:
		redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}
		return repository.NewRedisJournal(redisStorage.Connection), redisStorage, nil

	case config.JournalPostgres:
		pgStorage, err := storage.NewPostgresStorage(ctx, conf.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to postgres storage: %w", err)
		}
		journal, err := repository.NewPostgresJournal(ctx, pgStorage.Connection)
		if err != nil {
			_ = pgStorage.Close()
			return nil, nil, err
		}
		return journal, pgStorage, nil

	case config.JournalSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(ctx, conf.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}
		journal, err := repository.NewSQLiteJournal(ctx, sqliteStorage.Connection)
		if err != nil {
			_ = sqliteStorage.Close()
			return nil, nil, err
		}
		return journal, sqliteStorage, nil

	default:
		return nil, closerFunc(func() error { return nil }), nil
	}
}

type closerFunc func() error

func (that closerFunc) Close() error {
	return that()
}
