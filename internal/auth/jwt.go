package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

// Claims holds the JWT payload. A token speaks for one player in one game.
type Claims struct {
	Player string `json:"player"`
	GameID string `json:"game_id"`
	jwt.RegisteredClaims
}

// Identity is the authenticated seat a request acts for.
type Identity struct {
	Player string
	GameID string
}

// JWTManager handles token creation and validation.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: 12 * time.Hour,
	}
}

// GenerateToken creates a token for a player's seat in a game.
func (m *JWTManager) GenerateToken(gameID, player string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Player: player,
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   gameID + "/" + player,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Player == "" || claims.GameID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenResponse is returned to clients that log in.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// IssueToken wraps GenerateToken for handlers.
func (m *JWTManager) IssueToken(gameID, player string) (*TokenResponse, error) {
	tok, err := m.GenerateToken(gameID, player)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{AccessToken: tok, ExpiresIn: int(m.expiry.Seconds())}, nil
}
