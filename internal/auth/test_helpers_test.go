package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/clinic-auth/internal/store"
)

const (
	testPassword = "Passw0rd"
	waitTimeout  = 2 * time.Second
)

// countingStore wraps a RecordStore and counts mutations per record.
type countingStore struct {
	RecordStore
	mu     sync.Mutex
	writes map[string]int
}

func newCountingStore(inner RecordStore) *countingStore {
	return &countingStore{RecordStore: inner, writes: make(map[string]int)}
}

func (c *countingStore) Write(ctx context.Context, name string, value []byte) error {
	c.mu.Lock()
	c.writes[name]++
	c.mu.Unlock()
	return c.RecordStore.Write(ctx, name, value)
}

func (c *countingStore) Remove(ctx context.Context, name string) error {
	c.mu.Lock()
	c.writes[name]++
	c.mu.Unlock()
	return c.RecordStore.Remove(ctx, name)
}

func (c *countingStore) mutations(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[name]
}

// sharedOrigin is one simulated origin: a backend and a bus that any
// number of contexts can open stores on.
type sharedOrigin struct {
	backend *store.MemoryBackend
	bus     *store.LocalBus
}

func newSharedOrigin() *sharedOrigin {
	return &sharedOrigin{backend: store.NewMemoryBackend(), bus: store.NewLocalBus()}
}

// openStore opens a new context on the origin.
func (o *sharedOrigin) openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(o.backend, o.bus)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() }) //nolint:errcheck // test cleanup
	return st
}

// newTestStore opens a single isolated context.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return newSharedOrigin().openStore(t)
}

// newTestService starts a Service over st.
func newTestService(t *testing.T, st RecordStore) *Service {
	t.Helper()
	svc, err := NewService(Deps{Store: st})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if err := svc.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

// newTestDirectory returns a loaded Directory over st.
func newTestDirectory(t *testing.T, st RecordStore) *Directory {
	t.Helper()
	d := NewDirectory(st)
	if err := d.Load(t.Context()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return d
}

// mustRegister registers email with testPassword.
func mustRegister(t *testing.T, d *Directory, email string, role Role) *User {
	t.Helper()
	u, err := d.Register(t.Context(), RegisterInput{Email: email, Password: testPassword, Role: string(role)})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return u
}

// stateWaiter collects published States.
type stateWaiter struct {
	ch chan State
}

func watchStates(svc *Service) *stateWaiter {
	w := &stateWaiter{ch: make(chan State, 32)}
	svc.Subscribe(func(s State) { w.ch <- s })
	return w
}

// waitFor blocks until a State satisfying ok arrives.
func (w *stateWaiter) waitFor(t *testing.T, desc string, ok func(State) bool) State {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case s := <-w.ch:
			if ok(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timeout waiting for state: %s", desc)
			return State{}
		}
	}
}

type recordedEvent struct {
	action, outcome string
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) WriteAuthEvent(action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{action, outcome})
}

func (r *eventRecorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}
