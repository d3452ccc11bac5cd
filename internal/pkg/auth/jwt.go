// internal/pkg/auth/jwt.go
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/your-org/storefront-checkout/internal/config"
)

const tokenTypeSession = "session"

// Claims represents the session token claims
type Claims struct {
	ProfileID string `json:"profile_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates the signed tokens identifying a browser profile
type JWTManager struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secret: []byte(cfg.Session.Secret),
		issuer: cfg.App.Name,
		expiry: cfg.Session.Expiry,
	}
}

// NewProfile creates a fresh profile ID and its session token
func (j *JWTManager) NewProfile() (profileID, token string, err error) {
	profileID = uuid.New().String()
	token, err = j.GenerateSessionToken(profileID)
	return profileID, token, err
}

// GenerateSessionToken generates a session token for a profile
func (j *JWTManager) GenerateSessionToken(profileID string) (string, error) {
	now := time.Now().UTC()

	claims := &Claims{
		ProfileID: profileID,
		TokenType: tokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   fmt.Sprintf("profile:%s", profileID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateSessionToken validates and parses a session token
func (j *JWTManager) ValidateSessionToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.TokenType != tokenTypeSession {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", tokenTypeSession, claims.TokenType)
	}

	if _, err := uuid.Parse(claims.ProfileID); err != nil {
		return nil, fmt.Errorf("invalid profile id: %w", err)
	}

	return claims, nil
}
