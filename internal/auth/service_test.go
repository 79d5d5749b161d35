package auth

import (
	"context"
	"errors"
	"testing"
)

func TestNewService_RequiresStore(t *testing.T) {
	if _, err := NewService(Deps{}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("NewService() error = %v, want ErrConfiguration", err)
	}
}

func TestService_RegisterThenLogin(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := t.Context()

	registered, err := svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !svc.IsAuthenticated() {
		t.Error("Register() should log the new user in")
	}

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if svc.IsAuthenticated() || svc.CurrentUser() != nil {
		t.Error("Logout() should clear the session")
	}

	loggedIn, err := svc.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if loggedIn.ID != registered.ID {
		t.Errorf("Login() ID = %q, want %q", loggedIn.ID, registered.ID)
	}
}

func TestService_LoginFailuresIndistinguishable(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	if _, err := svc.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, wrongPassword := svc.Login(t.Context(), "alice@example.com", "Wrong1234")
	_, unknownEmail := svc.Login(t.Context(), "bob@example.com", testPassword)

	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("errors = %v / %v, want ErrInvalidCredentials", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestService_FailedLoginKeepsSession(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	alice, _ := svc.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword})

	if _, err := svc.Login(t.Context(), "alice@example.com", "Wrong1234"); err == nil {
		t.Fatal("Login() expected error")
	}
	if u := svc.CurrentUser(); u == nil || u.ID != alice.ID {
		t.Error("failed login should not end the current session")
	}
}

func TestService_DoubleLogout(t *testing.T) {
	cs := newCountingStore(newTestStore(t))
	svc := newTestService(t, cs)
	if _, err := svc.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.Logout(t.Context()); err != nil {
		t.Fatalf("first Logout() error = %v", err)
	}
	writes := cs.mutations(RecordSession)

	if err := svc.Logout(t.Context()); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}
	if cs.mutations(RecordSession) != writes {
		t.Error("second Logout() should not write")
	}
}

func TestService_HasRole(t *testing.T) {
	svc := newTestService(t, newTestStore(t))

	if svc.HasRole("User") {
		t.Error("HasRole() should be false when logged out")
	}
	if !svc.RequireRoles(nil) {
		t.Error("RequireRoles(nil) should allow everyone")
	}

	if _, err := svc.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !svc.HasRole("user") || svc.HasRole("admin") {
		t.Error("User should match user and not admin")
	}
	if !svc.HasRole("admin", "User") {
		t.Error("HasRole() should match any listed role")
	}
	if svc.RequireRoles([]string{"Admin"}) {
		t.Error("RequireRoles(Admin) should refuse a User")
	}
}

func TestService_PublishesState(t *testing.T) {
	svc := newTestService(t, newTestStore(t))

	var got []State
	unsubscribe := svc.Subscribe(func(s State) { got = append(got, s) })

	alice, _ := svc.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword})
	_ = svc.Logout(t.Context())
	_, _ = svc.Login(t.Context(), "alice@example.com", "Wrong1234")

	if len(got) != 2 {
		t.Fatalf("published %d states, want 2 (failed login publishes nothing)", len(got))
	}
	if got[0].Reason != ReasonRegister || !got[0].Authenticated || got[0].User.ID != alice.ID {
		t.Errorf("state[0] = %+v", got[0])
	}
	if got[1].Reason != ReasonLogout || got[1].Authenticated || got[1].User != nil {
		t.Errorf("state[1] = %+v", got[1])
	}

	// Subscribers receive copies.
	got[0].User.Role = RoleAdmin
	if svc.Directory().Lookup(alice.ID).Role != RoleUser {
		t.Error("subscriber mutated the directory")
	}

	unsubscribe()
	_, _ = svc.Login(t.Context(), "alice@example.com", testPassword)
	if len(got) != 2 {
		t.Error("unsubscribed callback still called")
	}
}

func TestService_Snapshot(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	if s := svc.Snapshot(); s.Authenticated || s.User != nil {
		t.Errorf("Snapshot() = %+v, want logged out", s)
	}

	_, _ = svc.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword})
	if s := svc.Snapshot(); !s.Authenticated || s.User.Email != "alice@example.com" {
		t.Errorf("Snapshot() = %+v, want alice", s)
	}
}

func TestService_HydratesOnStart(t *testing.T) {
	origin := newSharedOrigin()
	first := newTestService(t, origin.openStore(t))
	alice, err := first.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	second := newTestService(t, origin.openStore(t))
	if u := second.CurrentUser(); u == nil || u.ID != alice.ID {
		t.Errorf("new context CurrentUser() = %+v, want alice", u)
	}
}

func TestService_CrossContextLogin(t *testing.T) {
	origin := newSharedOrigin()
	a := newTestService(t, origin.openStore(t))
	b := newTestService(t, origin.openStore(t))
	waitB := watchStates(b)
	waitA := watchStates(a)

	if _, err := a.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	s := waitB.waitFor(t, "B authenticated", func(s State) bool { return s.Authenticated })
	if s.Reason != ReasonSync || s.User.Email != "alice@example.com" {
		t.Errorf("B state = %+v", s)
	}
	if !b.IsAuthenticated() {
		t.Error("B.IsAuthenticated() = false after sync")
	}

	// Drain A's own register publish, then log out from B.
	waitA.waitFor(t, "A register", func(s State) bool { return s.Reason == ReasonRegister })
	if err := b.Logout(t.Context()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	waitA.waitFor(t, "A logged out", func(s State) bool { return s.Reason == ReasonSync && !s.Authenticated })
	if a.IsAuthenticated() {
		t.Error("A should see B's logout")
	}
}

func TestService_LoginWithoutWaitingForSync(t *testing.T) {
	origin := newSharedOrigin()
	a := newTestService(t, origin.openStore(t))
	b := newTestService(t, origin.openStore(t))

	alice, err := a.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	u, err := b.Login(t.Context(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("Login() in other context error = %v", err)
	}
	if u.ID != alice.ID {
		t.Errorf("Login() ID = %q, want %q", u.ID, alice.ID)
	}
}

func TestService_SyncedDirectoryRemoval(t *testing.T) {
	origin := newSharedOrigin()
	a := newTestService(t, origin.openStore(t))
	waitA := watchStates(a)

	if _, err := a.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Another context wipes the directory; the session now dangles.
	other := origin.openStore(t)
	if err := other.Write(context.Background(), RecordUsers, []byte("[]")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	waitA.waitFor(t, "dangling session", func(s State) bool { return s.Reason == ReasonSync && !s.Authenticated })
	if a.CurrentUser() != nil {
		t.Error("CurrentUser() should be nil once the user is gone")
	}
}

func TestService_ClosedStopsSync(t *testing.T) {
	origin := newSharedOrigin()
	a := newTestService(t, origin.openStore(t))
	b := newTestService(t, origin.openStore(t))

	called := make(chan State, 8)
	b.Subscribe(func(s State) { called <- s })
	b.Close()

	if _, err := a.Register(t.Context(), RegisterInput{Email: "alice@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	// Give the store goroutine a chance to deliver anything it would.
	done := watchStates(a)
	_, _ = a.Login(t.Context(), "alice@example.com", testPassword)
	done.waitFor(t, "A login", func(s State) bool { return s.Reason == ReasonLogin })

	select {
	case s := <-called:
		t.Errorf("closed service published %+v", s)
	default:
	}
}

func TestService_RecordsEvents(t *testing.T) {
	events := &eventRecorder{}
	svc, err := NewService(Deps{Store: newTestStore(t), Events: events})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if err := svc.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(svc.Close)

	ctx := t.Context()
	_, _ = svc.Register(ctx, RegisterInput{Email: "bad", Password: testPassword})
	_, _ = svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "weak"})
	_, _ = svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: testPassword})
	_, _ = svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: testPassword})
	_, _ = svc.Login(ctx, "alice@example.com", "Wrong1234")
	_ = svc.Logout(ctx)

	want := []recordedEvent{
		{"register", "invalid_email"},
		{"register", "weak_password"},
		{"register", "success"},
		{"register", "conflict"},
		{"login", "invalid_credentials"},
		{"logout", "success"},
	}
	got := events.all()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRecorders_FanOut(t *testing.T) {
	a, b := &eventRecorder{}, &eventRecorder{}
	svc, err := NewService(Deps{Store: newTestStore(t), Events: Recorders{a, b}})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if err := svc.Logout(t.Context()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	want := recordedEvent{"logout", "success"}
	for name, r := range map[string]*eventRecorder{"first": a, "second": b} {
		if got := r.all(); len(got) != 1 || got[0] != want {
			t.Errorf("%s recorder got %v, want [%v]", name, got, want)
		}
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{ErrValidation, "validation_error"},
		{ErrConfiguration, "configuration_error"},
		{ErrUserNotFound, "error"},
		{errors.New("disk full"), "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestEndToEnd_AliceAndSeedAdmin(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := t.Context()

	if _, err := svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "Passw0rd"}); err != nil {
		t.Fatalf("Register(alice) error = %v", err)
	}
	u := svc.CurrentUser()
	if u == nil || u.Email != "alice@example.com" || u.Role != RoleUser {
		t.Fatalf("CurrentUser() = %+v, want alice as User", u)
	}

	if _, err := svc.EnsureSeedAdmin(ctx, "admin@example.com", "Secret123"); err != nil {
		t.Fatalf("EnsureSeedAdmin() error = %v", err)
	}
	admin := svc.Directory().FindByEmail("admin@example.com")
	if admin == nil || admin.Role != RoleAdmin {
		t.Fatalf("seeded admin = %+v, want Admin", admin)
	}

	if _, err := svc.Register(ctx, RegisterInput{Email: "admin@example.com", Password: "Secret123"}); !errors.Is(err, ErrConflict) {
		t.Errorf("Register(admin) error = %v, want ErrConflict", err)
	}
}
