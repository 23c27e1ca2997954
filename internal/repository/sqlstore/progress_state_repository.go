package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/kmnkit/vietnamese-word-cards/internal/db"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository"
)

type progressStateRepository struct {
	db *db.DB
}

// NewProgressStateRepository creates the durable local store on top of d.
func NewProgressStateRepository(d *db.DB) repository.ProgressStateRepository {
	return &progressStateRepository{db: d}
}

type stateRow struct {
	Payload string `db:"payload"`
	Version string `db:"version"`
}

func (r *progressStateRepository) Load(ctx context.Context, userID string) (*models.UserProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_state_repo")
	log.Debug("loading progress state: user_id=%s", userID)

	query, args, err := r.db.Builder().
		Select("payload", "version").
		From("progress_state").
		Where("user_id = ?", userID).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row stateRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no progress state stored")
			return nil, nil
		}
		log.Error("failed to load progress state: %v", err)
		return nil, err
	}

	var p models.UserProgress
	if err := json.Unmarshal([]byte(row.Payload), &p); err != nil {
		log.Error("stored progress state is corrupt: %v", err)
		return nil, err
	}

	if row.Version != StorageVersion {
		log.Info("migrating progress state from version %q to %s", row.Version, StorageVersion)
		if err := r.Save(ctx, p); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *progressStateRepository) Save(ctx context.Context, p models.UserProgress) error {
	log := logger.FromContext(ctx).WithPrefix("progress_state_repo")

	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}

	query, args, err := r.db.Builder().
		Insert("progress_state").
		Columns("user_id", "payload", "version", "updated_at").
		Values(p.UserID, string(payload), StorageVersion, db.FormatTime(time.Now())).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET payload = excluded.payload, version = excluded.version, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to save progress state: %v", err)
		return err
	}
	log.Debug("progress state saved: user_id=%s bytes=%d", p.UserID, len(payload))
	return nil
}

func (r *progressStateRepository) Delete(ctx context.Context, userID string) error {
	query, args, err := r.db.Builder().
		Delete("progress_state").
		Where("user_id = ?", userID).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *progressStateRepository) Info(ctx context.Context) (*models.StorageInfo, error) {
	var info struct {
		Count int   `db:"item_count"`
		Bytes int64 `db:"total_bytes"`
	}
	err := r.db.GetContext(ctx, &info,
		`SELECT COUNT(*) AS item_count, COALESCE(SUM(LENGTH(payload)), 0) AS total_bytes FROM progress_state`)
	if err != nil {
		return nil, err
	}
	return &models.StorageInfo{
		ItemCount:      info.Count,
		TotalSizeBytes: info.Bytes,
		Version:        StorageVersion,
	}, nil
}
