package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/registry/internal/models"
)

// Workflow runs multi-table writes as a single all-or-nothing unit.
type Workflow struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewWorkflow constructs a Workflow over db.
func NewWorkflow(db *gorm.DB, log zerolog.Logger) *Workflow {
	return &Workflow{db: db, log: log.With().Str("component", "workflow").Logger()}
}

// DB returns the non-transactional handle for reads.
func (w *Workflow) DB(ctx context.Context) *gorm.DB {
	return w.db.WithContext(ctx)
}

// Run executes fn inside one transaction. Any error returned by fn, or a panic,
// rolls back every statement fn issued.
func (w *Workflow) Run(ctx context.Context, name string, fn func(tx *gorm.DB) error) error {
	started := time.Now()
	err := w.db.WithContext(ctx).Transaction(fn)
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			w.log.Debug().Str("workflow", name).Err(err).Msg("workflow rejected")
		} else {
			w.log.Error().Str("workflow", name).Err(err).Dur("elapsed", time.Since(started)).Msg("workflow rolled back")
		}
		return err
	}
	w.log.Debug().Str("workflow", name).Dur("elapsed", time.Since(started)).Msg("workflow committed")
	return nil
}

// replaceChildren deletes every T whose column equals parentID and inserts rows.
// An empty rows slice leaves the parent with no children.
func replaceChildren[T any](tx *gorm.DB, column string, parentID uint, rows []T) error {
	if err := tx.Where(column+" = ?", parentID).Delete(new(T)).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// nextSequence returns the highest id of model plus one, as seen by tx.
// Every reference it produced is at most its row's id, so deleted rows never
// bring a used number back. Two concurrent transactions can still observe the
// same maximum; the unique index on the generated reference rejects the loser.
func nextSequence(tx *gorm.DB, model interface{}) (int64, error) {
	var highest int64
	if err := tx.Model(model).Select("COALESCE(MAX(id), 0)").Scan(&highest).Error; err != nil {
		return 0, err
	}
	return highest + 1, nil
}

// appendStatus records an application's new status in its history.
func appendStatus(tx *gorm.DB, applicationID uint, status string, actorID uint) error {
	return tx.Create(&models.ApplicationStatus{
		ApplicationID: applicationID,
		Status:        status,
		CreatedBy:     actorID,
		CreatedAt:     time.Now(),
	}).Error
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// sequenceTaken translates a unique violation on a generated reference into a conflict.
func sequenceTaken(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflict("Reference number already taken, please retry")
	}
	return err
}
