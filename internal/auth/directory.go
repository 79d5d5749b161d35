package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// userIDPrefix marks directory-issued user ids.
const userIDPrefix = "usr-"

// Directory is the in-memory projection of the users record.
//
// Mutations re-read the record, apply the change and write the whole
// record back, so a user registered by another context since the last
// Load is never lost by this one. Two contexts mutating at the same
// moment still race; the later write wins.
type Directory struct {
	store  RecordStore
	logger Logger
	now    func() time.Time

	// writeMu serialises read-modify-write cycles; mu guards users.
	writeMu sync.Mutex
	mu      sync.RWMutex
	users   []User

	// dummySalt is hashed against on unknown emails so Verify takes the
	// same time whether or not the email exists.
	dummySalt []byte
}

// NewDirectory returns an empty Directory over store. Call Load to hydrate.
func NewDirectory(store RecordStore) *Directory {
	salt, err := RandomBytes(SaltBytes)
	if err != nil {
		salt = make([]byte, SaltBytes)
	}
	return &Directory{
		store:     store,
		logger:    noopLogger{},
		now:       time.Now,
		users:     []User{},
		dummySalt: salt,
	}
}

// SetLogger sets the logger for the directory.
func (d *Directory) SetLogger(logger Logger) {
	d.logger = logger
}

// Load replaces the projection with the stored record.
func (d *Directory) Load(ctx context.Context) error {
	users, err := d.read(ctx)
	if err != nil {
		return err
	}
	d.replace(users)
	return nil
}

// read fetches and decodes the record. Only storage failures are errors;
// corrupt data degrades to whatever entries could be decoded.
func (d *Directory) read(ctx context.Context) ([]User, error) {
	data, err := d.store.Read(ctx, RecordUsers)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	users, err := decodeUsers(data)
	if err != nil {
		d.logger.Warn("user directory record is corrupt, using readable entries",
			"record", RecordUsers,
			"kept", len(users),
			"error", err,
		)
	}
	return users, nil
}

func (d *Directory) write(ctx context.Context, users []User) error {
	data, err := encodeUsers(users)
	if err != nil {
		return fmt.Errorf("encoding users: %w", err)
	}
	if err := d.store.Write(ctx, RecordUsers, data); err != nil {
		return fmt.Errorf("saving users: %w", err)
	}
	d.replace(users)
	return nil
}

func (d *Directory) replace(users []User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = users
}

// Register validates in, derives the password hash and appends a new
// user. Nothing is written unless every check passes. Checks run in this
// order: email shape, email uniqueness, password strength.
func (d *Directory) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := strings.TrimSpace(in.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	users, err := d.read(ctx)
	if err != nil {
		return nil, err
	}
	if indexByEmail(users, email) >= 0 {
		return nil, ErrConflict
	}

	if err := ValidatePasswordStrength(in.Password); err != nil {
		return nil, err
	}

	salt, hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = defaultName(email)
	}

	user := User{
		ID:        userIDPrefix + uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      NormalizeRole(in.Role),
		Salt:      salt,
		Hash:      hash,
		CreatedAt: d.now().UTC().Truncate(time.Millisecond),
	}

	if err := d.write(ctx, append(users, user)); err != nil {
		return nil, err
	}

	d.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return &user, nil
}

// Verify returns the user whose email and password match. Unknown emails
// and wrong passwords both fail with ErrInvalidCredentials.
func (d *Directory) Verify(ctx context.Context, email, password string) (*User, error) {
	users, err := d.read(ctx)
	if err != nil {
		return nil, err
	}
	d.replace(users)

	i := indexByEmail(users, email)
	if i < 0 {
		_, _ = DeriveKey(password, d.dummySalt, KeyIterations, KeyLength) //nolint:errcheck // timing only
		return nil, ErrInvalidCredentials
	}

	user := users[i]
	ok, err := VerifyPassword(password, user.Salt, user.Hash)
	if err != nil {
		d.logger.Warn("stored credentials are unreadable", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// UpsertRole sets the role of the user with email. It writes only when the
// normalised role differs, and never touches the credentials.
func (d *Directory) UpsertRole(ctx context.Context, email string, role Role) (*User, error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	users, err := d.read(ctx)
	if err != nil {
		return nil, err
	}

	i := indexByEmail(users, email)
	if i < 0 {
		d.replace(users)
		return nil, ErrUserNotFound
	}

	want := NormalizeRole(string(role))
	if users[i].Role == want {
		d.replace(users)
		user := users[i]
		return &user, nil
	}

	users[i].Role = want
	if err := d.write(ctx, users); err != nil {
		return nil, err
	}

	d.logger.Info("user role updated", "user_id", users[i].ID, "role", want)
	user := users[i]
	return &user, nil
}

// Lookup returns a copy of the user with id, or nil.
func (d *Directory) Lookup(id string) *User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.ID == id {
			return &u
		}
	}
	return nil
}

// FindByEmail returns a copy of the user with email (case-insensitive), or nil.
func (d *Directory) FindByEmail(email string) *User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := indexByEmail(d.users, email); i >= 0 {
		u := d.users[i]
		return &u
	}
	return nil
}

// List returns a copy of all users in insertion order.
func (d *Directory) List() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, len(d.users))
	copy(out, d.users)
	return out
}

// Count returns the number of users in the projection.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

func indexByEmail(users []User, email string) int {
	for i, u := range users {
		if sameEmail(u.Email, email) {
			return i
		}
	}
	return -1
}
