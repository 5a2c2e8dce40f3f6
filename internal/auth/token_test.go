package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/webgames/backend/internal/models"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateToken("secret", time.Hour, models.ClientPlayer, userID, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := VerifyToken("secret", token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Typ != models.ClientPlayer {
		t.Errorf("typ = %s, want %s", claims.Typ, models.ClientPlayer)
	}
	if claims.UserID() != userID {
		t.Errorf("uid = %s, want %s", claims.UserID(), userID)
	}
	if claims.Nic != "alice" {
		t.Errorf("nic = %s, want alice", claims.Nic)
	}
	if claims.Issuer != "webapi" || claims.Subject != "webgames" {
		t.Errorf("issuer/subject = %s/%s", claims.Issuer, claims.Subject)
	}
	if claims.ID == "" {
		t.Error("token must carry a unique id for revocation")
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, models.ClientPlayer, uuid.New(), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := VerifyToken("other", token); err == nil {
		t.Error("token signed with another secret must not verify")
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", -time.Minute, models.ClientPlayer, uuid.New(), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := VerifyToken("secret", token); err == nil {
		t.Error("expired token must not verify")
	}
}

func TestServiceTokenUserID(t *testing.T) {
	token, err := GenerateToken("secret", time.Minute, models.ClientAdmin, uuid.Nil, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := VerifyToken("secret", token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID() != uuid.Nil {
		t.Errorf("uid = %s, want nil uuid", claims.UserID())
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "hunter2") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter3") {
		t.Error("wrong password accepted")
	}
}
