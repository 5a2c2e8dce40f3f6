// Package auth mints and verifies the signed bearer tokens carried by
// every authenticated request, and gates endpoints on the principal kind.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/webgames/backend/internal/models"
)

const (
	issuer  = "webapi"
	subject = "webgames"
)

// Claims are the verified token contents
type Claims struct {
	Typ models.ClientType `json:"typ"`
	UID string            `json:"uid"`
	Nic string            `json:"nic,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the uid claim; service tokens carry the nil uuid
func (c *Claims) UserID() uuid.UUID {
	id, err := uuid.Parse(c.UID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// GenerateToken signs a token for the given principal
func GenerateToken(secret string, expiration time.Duration, typ models.ClientType, userID uuid.UUID, nickname string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Typ: typ,
		UID: userID.String(),
		Nic: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyToken decodes and checks the signature and expiry of a token
func VerifyToken(secret, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
