package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/utils"
)

// SessionLifetime is how long a session stays valid after login. It is never extended.
const SessionLifetime = time.Hour

// SessionStore persists login sessions keyed by the hash of their token.
type SessionStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// WithTx returns a store whose writes join tx.
func (s *SessionStore) WithTx(tx *gorm.DB) *SessionStore {
	return &SessionStore{db: tx, now: s.now}
}

// Create issues a new session for userID and returns the raw token.
func (s *SessionStore) Create(ctx context.Context, userID uint) (string, time.Time, error) {
	token, err := utils.NewSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	session := models.Session{
		TokenHash:  utils.HashToken(token),
		UserID:     userID,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(SessionLifetime),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", time.Time{}, err
	}

	return token, session.ExpiresAt, nil
}

// Resolve returns the live session for token, or ErrSessionInvalid.
func (s *SessionStore) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("token_hash = ?", utils.HashToken(token)).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	if !s.now().Before(session.ExpiresAt) {
		return nil, ErrSessionInvalid
	}

	return &session, nil
}

// Invalidate deletes the session for token. Unknown tokens are not an error.
func (s *SessionStore) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.db.WithContext(ctx).Where("token_hash = ?", utils.HashToken(token)).Delete(&models.Session{}).Error
}

// InvalidateUser deletes every session owned by userID.
func (s *SessionStore) InvalidateUser(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{}).Error
}

// PurgeExpired removes sessions past their expiry and reports how many went.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
