// Package auth issues and checks per-canvas edit tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongCanvas  = errors.New("token does not grant access to this canvas")
)

const scopeEdit = "edit"

type Service struct {
	jwtSecret []byte
	ttl       time.Duration
}

func NewService(jwtSecret string, ttl time.Duration) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
	}
}

// IssueEditToken signs a token that allows changing canvasID.
func (s *Service) IssueEditToken(canvasID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   canvasID,
		"scope": scopeEdit,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken checks signature, expiry and scope and returns the canvas
// id the token was issued for.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if scope, _ := claims["scope"].(string); scope != scopeEdit {
		return "", fmt.Errorf("%w: missing edit scope", ErrInvalidToken)
	}

	canvasID, ok := claims["sub"].(string)
	if !ok || canvasID == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return canvasID, nil
}

// Authorize validates the token and checks that it was issued for
// canvasID.
func (s *Service) Authorize(tokenString, canvasID string) error {
	sub, err := s.ValidateToken(tokenString)
	if err != nil {
		return err
	}
	if sub != canvasID {
		return ErrWrongCanvas
	}
	return nil
}
