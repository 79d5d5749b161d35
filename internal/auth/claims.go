package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTicketInvalid is returned for tickets that fail signature, expiry or
// field checks.
var ErrTicketInvalid = errors.New("invalid ticket")

// defaultTicketTTL applies when a non-positive TTL is requested.
const defaultTicketTTL = time.Minute

// TicketClaims are carried by a WebSocket ticket. SessionID is a
// fingerprint of the session token, so a ticket stops matching as soon as
// the session is replaced or ended.
type TicketClaims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	SessionID string `json:"sid"`
}

// SessionFingerprint returns a short digest identifying a session without
// revealing its token.
func SessionFingerprint(s *Session) string {
	if s == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(s.Token))
	return EncodeHex(sum[:8])
}

// IssueTicket signs a short-lived HS256 ticket for user's current session.
func IssueTicket(user *User, session *Session, secret string, ttl time.Duration) (string, error) {
	if user == nil || session == nil {
		return "", fmt.Errorf("%w: ticket requires a user and a session", ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}

	now := time.Now()
	claims := TicketClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role:      NormalizeRole(string(user.Role)),
		SessionID: SessionFingerprint(session),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing ticket: %w", err)
	}
	return signed, nil
}

// ParseTicket validates a ticket's signature and expiry and returns its
// claims.
func ParseTicket(ticket, secret string) (*TicketClaims, error) {
	token, err := jwt.ParseWithClaims(ticket, &TicketClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTicketInvalid, err)
	}

	claims, ok := token.Claims.(*TicketClaims)
	if !ok || !token.Valid {
		return nil, ErrTicketInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTicketInvalid)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session", ErrTicketInvalid)
	}
	return claims, nil
}
