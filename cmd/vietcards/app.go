package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/kmnkit/vietnamese-word-cards/internal/config"
	"github.com/kmnkit/vietnamese-word-cards/internal/db"
	"github.com/kmnkit/vietnamese-word-cards/internal/errors"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/progress"
	"github.com/kmnkit/vietnamese-word-cards/internal/remote"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository/sqlstore"
	"github.com/kmnkit/vietnamese-word-cards/internal/syncer"
	"github.com/kmnkit/vietnamese-word-cards/internal/worker"
)

// app is one engine instance: local store, push pool, remote client and
// sync coordinator for a single user.
type app struct {
	log    *logger.Logger
	db     *db.DB
	pool   *worker.Pool
	client *remote.Client
	store  *progress.Store
	sync   *syncer.Coordinator
}

func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logger.Default().WithPrefix("vietcards")

	local, err := db.Open(db.DriverSQLite, cfg.LocalDBPath)
	if err != nil {
		return nil, err
	}

	client := remote.New(cfg.RemoteURL,
		remote.WithUserID(cfg.UserID),
		remote.WithTimeout(cfg.HTTPTimeout),
		remote.WithPushRate(cfg.PushRatePerSecond, cfg.PushWorkerCount),
	)

	pool := worker.NewPool(cfg.PushWorkerCount, cfg.PushQueueSize)
	pool.Start(ctx)

	store, err := progress.Open(ctx, cfg.UserID,
		progress.WithLocalStore(sqlstore.NewProgressStateRepository(local)),
		progress.WithPusher(client, pool),
	)
	if err != nil {
		if !errors.IsPersistence(err) {
			pool.Stop()
			local.Close()
			return nil, err
		}
		log.Warn("local progress unavailable, running in memory: %v", err)
	}

	coord := syncer.New(store, client, syncer.WithInterval(cfg.SyncInterval))

	return &app{
		log:    log,
		db:     local,
		pool:   pool,
		client: client,
		store:  store,
		sync:   coord,
	}, nil
}

// close waits for queued pushes before releasing the local store.
func (a *app) close() {
	a.sync.Stop()
	a.pool.Stop()
	completed, failed, dropped := a.pool.Stats()
	a.log.Debug("pushes: completed=%d failed=%d dropped=%d", completed, failed, dropped)
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close progress store: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close local database: %v", err)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
