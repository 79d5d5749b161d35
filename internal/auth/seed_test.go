package auth

import (
	"errors"
	"testing"
)

func TestEnsureSeedAdmin_RequiresCredentials(t *testing.T) {
	svc := newTestService(t, newTestStore(t))

	tests := []struct {
		name, email, password string
	}{
		{"no email", "", "Secret123"},
		{"blank email", "   ", "Secret123"},
		{"no password", "admin@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.EnsureSeedAdmin(t.Context(), tt.email, tt.password); !errors.Is(err, ErrConfiguration) {
				t.Errorf("EnsureSeedAdmin() error = %v, want ErrConfiguration", err)
			}
		})
	}
	if svc.Directory().Count() != 0 {
		t.Error("misconfigured seed should not create users")
	}
}

func TestEnsureSeedAdmin_Creates(t *testing.T) {
	svc := newTestService(t, newTestStore(t))

	var states []State
	svc.Subscribe(func(s State) { states = append(states, s) })

	u, err := svc.EnsureSeedAdmin(t.Context(), "admin@example.com", "Secret123")
	if err != nil {
		t.Fatalf("EnsureSeedAdmin() error = %v", err)
	}
	if u.Role != RoleAdmin || u.Name != "admin" {
		t.Errorf("seeded user = %+v", u)
	}
	if svc.IsAuthenticated() {
		t.Error("seeding should not start a session")
	}
	if len(states) != 1 || states[0].Reason != ReasonSeed {
		t.Errorf("states = %+v, want one seed state", states)
	}

	if _, err := svc.Login(t.Context(), "admin@example.com", "Secret123"); err != nil {
		t.Errorf("seeded admin cannot log in: %v", err)
	}
}

func TestEnsureSeedAdmin_PromotesWithoutTouchingPassword(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	if _, err := svc.Register(t.Context(), RegisterInput{Email: "boss@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	before := svc.Directory().FindByEmail("boss@example.com")

	u, err := svc.EnsureSeedAdmin(t.Context(), "BOSS@example.com", "Different9")
	if err != nil {
		t.Fatalf("EnsureSeedAdmin() error = %v", err)
	}
	if u.Role != RoleAdmin || u.ID != before.ID {
		t.Errorf("promoted user = %+v", u)
	}
	if u.Hash != before.Hash {
		t.Error("seed must not replace an existing password")
	}
	if !svc.HasRole("admin") {
		t.Error("logged-in user should see the promotion")
	}
	if _, err := svc.Login(t.Context(), "boss@example.com", "Different9"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("seed password should not work for an existing account")
	}
}

func TestEnsureSeedAdmin_Unchanged(t *testing.T) {
	cs := newCountingStore(newTestStore(t))
	svc := newTestService(t, cs)

	if _, err := svc.EnsureSeedAdmin(t.Context(), "admin@example.com", "Secret123"); err != nil {
		t.Fatalf("first EnsureSeedAdmin() error = %v", err)
	}
	writes := cs.mutations(RecordUsers)

	published := 0
	svc.Subscribe(func(State) { published++ })

	if _, err := svc.EnsureSeedAdmin(t.Context(), "admin@example.com", "Secret123"); err != nil {
		t.Fatalf("second EnsureSeedAdmin() error = %v", err)
	}
	if cs.mutations(RecordUsers) != writes {
		t.Error("seeding an existing admin should not write")
	}
	if published != 0 {
		t.Error("seeding an existing admin should not publish")
	}
	if svc.Directory().Count() != 1 {
		t.Errorf("Count() = %d, want 1", svc.Directory().Count())
	}
}

func TestEnsureSeedAdmin_WeakPassword(t *testing.T) {
	svc := newTestService(t, newTestStore(t))

	if _, err := svc.EnsureSeedAdmin(t.Context(), "admin@example.com", "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("EnsureSeedAdmin() error = %v, want ErrWeakPassword", err)
	}
}
