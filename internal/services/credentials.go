package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/utils"
)

const (
	// OTPLifetime bounds how long an issued one-time code is accepted.
	OTPLifetime = 10 * time.Minute
	otpDigits   = 6
)

// OTPNotifier delivers a one-time code to a user out of band.
type OTPNotifier interface {
	SendOTP(ctx context.Context, user models.User, code string) error
}

// CredentialVerifier checks passwords and one-time codes.
type CredentialVerifier struct {
	db       *gorm.DB
	notifier OTPNotifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewCredentialVerifier constructs a CredentialVerifier.
func NewCredentialVerifier(db *gorm.DB, notifier OTPNotifier, log zerolog.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		db:       db,
		notifier: notifier,
		log:      log.With().Str("component", "credentials").Logger(),
		now:      time.Now,
	}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Verify returns the user owning email if password matches. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := v.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}

	if utils.IsLegacyHash(user.Password) {
		v.upgradeHash(ctx, &user, password)
	}

	return &user, nil
}

// upgradeHash replaces a legacy digest with bcrypt. Failure keeps the old
// hash, which still verifies.
func (v *CredentialVerifier) upgradeHash(ctx context.Context, user *models.User, password string) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		v.log.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to hash password for upgrade")
		return
	}
	err = v.db.WithContext(ctx).Model(&models.User{}).Where("id = ? AND password = ?", user.ID, user.Password).
		Update("password", hashed).Error
	if err != nil {
		v.log.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to upgrade legacy password hash")
		return
	}
	user.Password = hashed
}

// IssueOTP stores a fresh code on the user and hands it to the notifier.
func (v *CredentialVerifier) IssueOTP(ctx context.Context, user *models.User) error {
	code, err := utils.GenerateNumericCode(otpDigits)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	expiresAt := v.now().Add(OTPLifetime)
	err = v.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{"last_otp": code, "otp_expires_at": expiresAt}).Error
	if err != nil {
		return err
	}
	user.LastOTP = code
	user.OTPExpiresAt = &expiresAt

	if err := v.notifier.SendOTP(ctx, *user, code); err != nil {
		return fmt.Errorf("deliver otp: %w", err)
	}

	v.log.Info().Uint("user_id", user.ID).Time("expires_at", expiresAt).Msg("otp issued")
	return nil
}

// VerifyOTP accepts code only when it equals the stored one and has not expired.
// A successful check consumes the code.
func (v *CredentialVerifier) VerifyOTP(ctx context.Context, userID uint, code string) (*models.User, error) {
	var user models.User
	err := v.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	matches := user.LastOTP != "" && subtle.ConstantTimeCompare([]byte(user.LastOTP), []byte(strings.TrimSpace(code))) == 1
	live := user.OTPExpiresAt != nil && v.now().Before(*user.OTPExpiresAt)
	if !matches || !live {
		return nil, ErrInvalidOTP
	}

	res := v.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND last_otp = ?", user.ID, user.LastOTP).
		Updates(map[string]interface{}{"last_otp": "", "otp_expires_at": nil})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Consumed by a concurrent verification.
		return nil, ErrInvalidOTP
	}
	user.LastOTP = ""
	user.OTPExpiresAt = nil

	return &user, nil
}
