package util

import (
	"testing"
	"time"

	"evalhub_backend/internal/model"
)

const testSecret = "test-secret-0123456789-0123456789"

func testUser() *model.User {
	return &model.User{
		BaseModel: model.BaseModel{ID: 42},
		Name:      "张老师",
		Email:     "faculty@example.com",
		Role:      model.Faculty,
	}
}

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT(testUser(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseJWT(token, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Role != model.Faculty {
		t.Errorf("expected faculty role, got %s", claims.Role)
	}
	if claims.Email != "faculty@example.com" {
		t.Errorf("unexpected email: %s", claims.Email)
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT(testUser(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseJWT(token, "another-secret-another-secret-12"); err == nil {
		t.Error("expected parse failure with wrong secret")
	}
}

func TestParseJWTExpired(t *testing.T) {
	token, err := GenerateJWT(testUser(), testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseJWT(token, testSecret); err == nil {
		t.Error("expected parse failure for expired token")
	}
}
