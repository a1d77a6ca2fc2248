package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/utils"
)

func TestVerifyPassword(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	v := NewCredentialVerifier(db, newCaptureNotifier(), zerolog.Nop())
	user := createTestUser(t, db, "a@b.com", "secret1")

	got, err := v.Verify(ctx, "  A@B.com ", "secret1")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, wrongPassword := v.Verify(ctx, "a@b.com", "secret2")
	_, unknownUser := v.Verify(ctx, "nobody@b.com", "secret1")
	require.True(t, errors.Is(wrongPassword, ErrInvalidCredentials))
	require.True(t, errors.Is(unknownUser, ErrInvalidCredentials))
	require.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestVerifyLegacyPassword(t *testing.T) {
	db := createTestDB(t)
	v := NewCredentialVerifier(db, newCaptureNotifier(), zerolog.Nop())
	require.NoError(t, db.Create(&models.User{Name: "Legacy", Email: "old@b.com", Password: utils.LegacyPasswordHash("hunter22")}).Error)

	_, err := v.Verify(context.Background(), "old@b.com", "hunter23")
	require.True(t, errors.Is(err, ErrInvalidCredentials))

	user, err := v.Verify(context.Background(), "old@b.com", "hunter22")
	require.NoError(t, err)
	require.False(t, utils.IsLegacyHash(user.Password))

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.False(t, utils.IsLegacyHash(stored.Password))

	_, err = v.Verify(context.Background(), "old@b.com", "hunter22")
	require.NoError(t, err)
}

func TestVerifyFailuresTakeBcryptTime(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	v := NewCredentialVerifier(db, newCaptureNotifier(), zerolog.Nop())
	require.NoError(t, db.Create(&models.User{Name: "Legacy", Email: "old@b.com", Password: utils.LegacyPasswordHash("hunter22")}).Error)

	timed := func(email string) time.Duration {
		started := time.Now()
		_, err := v.Verify(ctx, email, "wrong-password")
		require.True(t, errors.Is(err, ErrInvalidCredentials))
		return time.Since(started)
	}

	unknown := timed("nobody@b.com")
	legacy := timed("old@b.com")
	require.Greater(t, legacy, unknown/4, "legacy %v vs unknown %v", legacy, unknown)
}

func TestVerifyOTP(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	notifier := newCaptureNotifier()
	v := NewCredentialVerifier(db, notifier, zerolog.Nop())
	now := testNow
	v.now = func() time.Time { return now }
	user := createTestUser(t, db, "a@b.com", "secret1")

	require.NoError(t, v.IssueOTP(ctx, user))
	code := notifier.code(user.ID)
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err := v.VerifyOTP(ctx, user.ID, wrong)
	require.True(t, errors.Is(err, ErrInvalidOTP))

	got, err := v.VerifyOTP(ctx, user.ID, code)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	// Codes are single use.
	_, err = v.VerifyOTP(ctx, user.ID, code)
	require.True(t, errors.Is(err, ErrInvalidOTP))
}

func TestVerifyOTPExpired(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	notifier := newCaptureNotifier()
	v := NewCredentialVerifier(db, notifier, zerolog.Nop())
	now := testNow
	v.now = func() time.Time { return now }
	user := createTestUser(t, db, "a@b.com", "secret1")

	require.NoError(t, v.IssueOTP(ctx, user))
	code := notifier.code(user.ID)

	now = testNow.Add(OTPLifetime)
	_, err := v.VerifyOTP(ctx, user.ID, code)
	require.True(t, errors.Is(err, ErrInvalidOTP))

	_, err = v.VerifyOTP(ctx, 9999, code)
	require.True(t, errors.Is(err, ErrInvalidOTP))
}

func TestIssueOTPDeliveryFailure(t *testing.T) {
	db := createTestDB(t)
	notifier := newCaptureNotifier()
	notifier.err = errors.New("gateway down")
	v := NewCredentialVerifier(db, notifier, zerolog.Nop())
	user := createTestUser(t, db, "a@b.com", "secret1")

	err := v.IssueOTP(context.Background(), user)
	require.Error(t, err)
	require.Contains(t, err.Error(), "gateway down")
}
