package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSigner_MintAndParse(t *testing.T) {
	s := NewSigner("test-secret", "medifile")
	userID := uuid.New()

	token, expiresAt, err := s.Mint(userID, RoleDoctor, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Error("expiry should be about an hour out")
	}

	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.Role != RoleDoctor {
		t.Errorf("expected role doctor, got %s", claims.Role)
	}
}

func TestSigner_RejectsForeignSignature(t *testing.T) {
	a := NewSigner("secret-a", "medifile")
	b := NewSigner("secret-b", "medifile")

	token, _, err := a.Mint(uuid.New(), RolePatient, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := b.Parse(token); err == nil {
		t.Error("expected signature verification to fail")
	}
}

func TestSigner_ParseGarbage(t *testing.T) {
	s := NewSigner("test-secret", "medifile")
	if _, err := s.Parse("not-a-token"); err == nil {
		t.Error("expected parse error")
	}
}
