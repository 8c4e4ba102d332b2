// Package auth issues and verifies seat tokens. A seat token binds its bearer
// to one color of one game.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/justinabrahms/atchess3d/internal/chess"
)

const issuer = "atchess3d"

var (
	ErrInvalidToken = errors.New("invalid seat token")
	ErrWrongSeat    = errors.New("seat token does not match this game or color")
)

// SeatClaims are the claims carried by a seat token.
type SeatClaims struct {
	GameID string      `json:"gid"`
	Color  chess.Color `json:"color"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 seat tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns nil when secret is empty, which disables seat checks.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a token for color in gameID.
func (s *Signer) Issue(gameID string, color chess.Color) (string, error) {
	now := s.now()
	claims := SeatClaims{
		GameID: gameID,
		Color:  color,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  gameID + "/" + color.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign seat token: %w", err)
	}
	return signed, nil
}

// IssuePair creates tokens for both seats.
func (s *Signer) IssuePair(gameID string) (map[chess.Color]string, error) {
	tokens := make(map[chess.Color]string, 2)
	for _, color := range []chess.Color{chess.White, chess.Black} {
		token, err := s.Issue(gameID, color)
		if err != nil {
			return nil, err
		}
		tokens[color] = token
	}
	return tokens, nil
}

// Verify parses token and checks its signature, issuer and expiry.
func (s *Signer) Verify(token string) (*SeatClaims, error) {
	claims := &SeatClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Authorize checks that token grants color in gameID.
func (s *Signer) Authorize(token, gameID string, color chess.Color) error {
	claims, err := s.Verify(token)
	if err != nil {
		return err
	}
	if claims.GameID != gameID || claims.Color != color {
		return ErrWrongSeat
	}
	return nil
}
