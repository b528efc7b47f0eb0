// Package repositories persists session snapshots as versioned JSON rows in
// SQLite, keyed by save slot.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mkarsten/kaltvik/internal/db"
	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/game"
	"github.com/mkarsten/kaltvik/internal/models"
)

type SaveRepository struct {
	dbs    *db.Database
	logger *slog.Logger
}

func NewSaveRepository(dbs *db.Database, logger *slog.Logger) *SaveRepository {
	return &SaveRepository{
		dbs:    dbs,
		logger: logger.With("source", "SaveRepository"),
	}
}

// SaveInfo is one row of the save-slot listing.
type SaveInfo struct {
	Slot      string    `db:"slot"`
	UpdatedAt time.Time `db:"-"`
	// updatedAt is the raw unix timestamp column.
	RawUpdatedAt int64 `db:"updated_at"`
}

// Put upserts a snapshot into a slot.
func (r *SaveRepository) Put(ctx context.Context, slot string, snapshot game.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot", slog.String("slot", slot))
	}
	stmt := `INSERT INTO saves (slot, data) VALUES (@slot, @data)
ON CONFLICT (slot) DO UPDATE SET data = @data, updated_at = unixepoch()`
	params := []any{
		sql.Named("slot", slot),
		sql.Named("data", string(data)),
	}
	if _, err = r.dbs.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return errors.Wrap(err, "upsert save", slog.String("slot", slot))
	}
	return nil
}

// Get loads the snapshot stored in a slot. An empty slot is ErrNotFound.
func (r *SaveRepository) Get(ctx context.Context, slot string) (game.Snapshot, error) {
	var (
		snapshot game.Snapshot
		data     string
	)
	stmt := `SELECT data FROM saves WHERE slot = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &data, stmt, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snapshot, errors.Wrap(models.ErrNotFound, "no save in slot", slog.String("slot", slot))
		}
		return snapshot, errors.Wrap(err, "read save", slog.String("slot", slot))
	}
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return snapshot, errors.Wrap(err, "unmarshal snapshot", slog.String("slot", slot))
	}
	return snapshot, nil
}

// List returns every occupied slot, most recently written first.
func (r *SaveRepository) List(ctx context.Context) ([]SaveInfo, error) {
	var saves []SaveInfo
	stmt := `SELECT slot, updated_at FROM saves ORDER BY updated_at DESC, slot`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &saves, stmt); err != nil {
		return nil, errors.Wrap(err, "list saves")
	}
	for i := range saves {
		saves[i].UpdatedAt = time.Unix(saves[i].RawUpdatedAt, 0)
	}
	return saves, nil
}

// Delete empties a slot. Deleting an empty slot is not an error.
func (r *SaveRepository) Delete(ctx context.Context, slot string) error {
	stmt := `DELETE FROM saves WHERE slot = ?`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, slot); err != nil {
		return errors.Wrap(err, "delete save", slog.String("slot", slot))
	}
	return nil
}
