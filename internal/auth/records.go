package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Record names in the shared store.
const (
	RecordUsers   = "app_users_v1"
	RecordSession = "app_session_v1"
)

// createdAtLayout is ISO-8601 with millisecond precision, always UTC.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

// RecordStore is the shared record store. *store.Store satisfies it.
type RecordStore interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, value []byte) error
	Remove(ctx context.Context, name string) error
	Watch(fn func(record string)) (cancel func())
}

// userRecord is the persisted shape of a User.
type userRecord struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Salt      string `json:"salt"`
	Hash      string `json:"hash"`
	CreatedAt string `json:"createdAt"`
}

// sessionRecord is the persisted shape of a Session.
type sessionRecord struct {
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	LoggedAt int64  `json:"loggedAt"` // epoch millis
}

// decodeUsers parses the directory record. Missing data is an empty
// directory. Malformed data is also an empty directory, reported through
// the error so the caller can log it. Entries without an id or email are
// skipped. Every role is normalised.
func decodeUsers(data []byte) ([]User, error) {
	if len(data) == 0 {
		return []User{}, nil
	}

	var records []userRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return []User{}, fmt.Errorf("decoding %s: %w", RecordUsers, err)
	}

	users := make([]User, 0, len(records))
	var skipped int
	for _, r := range records {
		if r.ID == "" || r.Email == "" {
			skipped++
			continue
		}
		createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt) //nolint:errcheck // zero time on bad input
		users = append(users, User{
			ID:        r.ID,
			Email:     r.Email,
			Name:      r.Name,
			Role:      NormalizeRole(r.Role),
			Salt:      r.Salt,
			Hash:      r.Hash,
			CreatedAt: createdAt,
		})
	}
	if skipped > 0 {
		return users, fmt.Errorf("decoding %s: skipped %d entries without id or email", RecordUsers, skipped)
	}
	return users, nil
}

func encodeUsers(users []User) ([]byte, error) {
	records := make([]userRecord, len(users))
	for i, u := range users {
		records[i] = userRecord{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      string(NormalizeRole(string(u.Role))),
			Salt:      u.Salt,
			Hash:      u.Hash,
			CreatedAt: u.CreatedAt.UTC().Format(createdAtLayout),
		}
	}
	return json.Marshal(records)
}

// decodeSession parses the session record. Missing data is no session.
// Malformed data, or a session without a user id, is also no session,
// reported through the error.
func decodeSession(data []byte) (*Session, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var r sessionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", RecordSession, err)
	}
	if r.UserID == "" {
		return nil, fmt.Errorf("decoding %s: missing userId", RecordSession)
	}
	return &Session{
		UserID:   r.UserID,
		Token:    r.Token,
		LoggedAt: time.UnixMilli(r.LoggedAt).UTC(),
	}, nil
}

func encodeSession(s *Session) ([]byte, error) {
	return json.Marshal(sessionRecord{
		UserID:   s.UserID,
		Token:    s.Token,
		LoggedAt: s.LoggedAt.UnixMilli(),
	})
}
