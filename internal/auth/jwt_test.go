package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	token, err := mgr.GenerateToken("game-1", "germany")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Player != "germany" || claims.GameID != "game-1" {
		t.Errorf("expected germany in game-1, got %s in %s", claims.Player, claims.GameID)
	}
	if claims.Subject != "game-1/germany" {
		t.Errorf("expected subject=game-1/germany, got %s", claims.Subject)
	}
}

func TestIssueToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	resp, err := mgr.IssueToken("game-1", "russia")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected non-empty access token")
	}
	if resp.ExpiresIn != 12*60*60 {
		t.Errorf("expected expires_in=43200, got %d", resp.ExpiresIn)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr1 := NewJWTManager("secret-one")
	mgr2 := NewJWTManager("secret-two")

	token, err := mgr1.GenerateToken("game-1", "germany")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = mgr2.ValidateToken(token)
	if err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	_, err := mgr.ValidateToken("not-a-jwt")
	if err == nil {
		t.Error("expected error for garbage token")
	}
	_, err = mgr.ValidateToken("")
	if err == nil {
		t.Error("expected error for empty token")
	}
}

func TestValidateTokenWithoutSeat(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	token, _ := mgr.GenerateToken("game-1", "")
	if _, err := mgr.ValidateToken(token); err == nil {
		t.Error("expected error for token without a player")
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := &JWTManager{secret: []byte("test-secret"), expiry: -1 * time.Second}
	token, err := mgr.GenerateToken("game-1", "germany")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = mgr.ValidateToken(token)
	if err == nil {
		t.Error("expected error for expired token")
	}
}

func TestDifferentPlayersGetDifferentTokens(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	t1, _ := mgr.GenerateToken("game-1", "germany")
	t2, _ := mgr.GenerateToken("game-1", "russia")
	if t1 == t2 {
		t.Error("different players should get different tokens")
	}
}
