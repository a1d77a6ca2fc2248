package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/registry/internal/database"
	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/utils"
)

var testNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func createTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createTestWorkflow(t *testing.T) *Workflow {
	return NewWorkflow(createTestDB(t), zerolog.Nop())
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Name: "Test User", Email: email, Password: hash, Phone: "252634000000"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// captureNotifier records every code it is asked to deliver.
type captureNotifier struct {
	mu    sync.Mutex
	codes map[uint]string
	err   error
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{codes: map[uint]string{}}
}

func (n *captureNotifier) SendOTP(_ context.Context, user models.User, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.codes[user.ID] = code
	return nil
}

func (n *captureNotifier) code(userID uint) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[userID]
}
