package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const pendingPurposeOTP = "otp"

// ErrPendingTokenInvalid is returned for any unusable pending-login token.
var ErrPendingTokenInvalid = errors.New("pending token invalid")

type pendingClaims struct {
	UserID  uint   `json:"user_id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// GeneratePendingToken signs a short-lived marker for a login that still awaits its OTP.
func GeneratePendingToken(secret string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &pendingClaims{
		UserID:  userID,
		Purpose: pendingPurposeOTP,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParsePendingToken validates the marker and returns the user it was issued for.
func ParsePendingToken(secret, tokenString string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, &pendingClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPendingTokenInvalid, err)
	}

	claims, ok := token.Claims.(*pendingClaims)
	if !ok || !token.Valid || claims.Purpose != pendingPurposeOTP || claims.UserID == 0 {
		return 0, ErrPendingTokenInvalid
	}

	return claims.UserID, nil
}
