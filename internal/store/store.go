package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Backend is the durable key/value storage shared by every context.
type Backend interface {
	// Get returns the stored value, or nil and no error when name is absent.
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
}

// Change announces that a record was written or removed.
type Change struct {
	Record string    `json:"record"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Notifier carries Changes between contexts.
type Notifier interface {
	Notify(ctx context.Context, c Change) error

	// Listen registers fn for every Change, including the listener's own.
	// fn must not block.
	Listen(fn func(Change)) (stop func(), err error)
}

// Logger is the logging interface used by Store.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type watcher struct {
	id int
	fn func(record string)
}

// Store is one context's handle on the shared records.
type Store struct {
	backend  Backend
	notifier Notifier
	origin   string

	logger   Logger
	loggerMu sync.RWMutex

	mu       sync.Mutex
	closed   bool
	watchers []watcher
	nextID   int
	pending  map[string]struct{}

	wake       chan struct{}
	done       chan struct{}
	stopListen func()
	wg         sync.WaitGroup
}

// Open creates a Store over backend. A nil notifier gives a store that
// neither announces nor receives changes.
func Open(backend Backend, notifier Notifier) (*Store, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}

	s := &Store{
		backend:  backend,
		notifier: notifier,
		origin:   uuid.NewString(),
		logger:   noopLogger{},
		pending:  make(map[string]struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	if notifier != nil {
		stop, err := notifier.Listen(s.receive)
		if err != nil {
			return nil, fmt.Errorf("listening for record changes: %w", err)
		}
		s.stopListen = stop
	}

	s.wg.Add(1)
	go s.run()

	return s, nil
}

// SetLogger sets the logger for notification failures and dropped changes.
func (s *Store) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = logger
}

func (s *Store) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Origin returns the id stamped on every Change this store announces.
func (s *Store) Origin() string {
	return s.origin
}

// Read returns the value of name, or nil when the record does not exist.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	value, err := s.backend.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", name, err)
	}
	return value, nil
}

// Write replaces the whole value of name and announces the change.
func (s *Store) Write(ctx context.Context, name string, value []byte) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := s.backend.Put(ctx, name, value); err != nil {
		return fmt.Errorf("writing record %s: %w", name, err)
	}
	s.announce(ctx, name)
	return nil
}

// Remove deletes name and announces the change. Removing an absent
// record is not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := s.backend.Delete(ctx, name); err != nil {
		return fmt.Errorf("removing record %s: %w", name, err)
	}
	s.announce(ctx, name)
	return nil
}

// announce publishes a Change. The write has already succeeded, so a
// failure here is logged rather than returned.
func (s *Store) announce(ctx context.Context, name string) {
	if s.notifier == nil {
		return
	}
	change := Change{Record: name, Origin: s.origin, At: time.Now().UTC()}
	if err := s.notifier.Notify(ctx, change); err != nil {
		s.getLogger().Warn("record change notification failed",
			"record", name,
			"error", err,
		)
	}
}

// Watch registers fn to be called with the record name whenever another
// context changes a record. The returned func unregisters fn.
func (s *Store) Watch(fn func(record string)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers = append(s.watchers, watcher{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w.id == id {
				s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}

// Close stops receiving changes and waits for in-flight watcher calls.
// The backend is not closed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.watchers = nil
	s.mu.Unlock()

	if s.stopListen != nil {
		s.stopListen()
	}
	close(s.done)
	s.wg.Wait()
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// receive is the Notifier callback. It only enqueues; delivery happens on
// the run goroutine.
func (s *Store) receive(c Change) {
	if c.Origin == s.origin {
		return
	}
	if c.Record == "" {
		s.getLogger().Debug("dropping record change without a name", "origin", c.Origin)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending[c.Record] = struct{}{}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			s.deliver()
		}
	}
}

// deliver drains pending changes, including any that arrive while
// watchers are running.
func (s *Store) deliver() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 || s.closed {
			s.mu.Unlock()
			return
		}
		records := make([]string, 0, len(s.pending))
		for name := range s.pending {
			records = append(records, name)
		}
		s.pending = make(map[string]struct{})
		watchers := make([]watcher, len(s.watchers))
		copy(watchers, s.watchers)
		s.mu.Unlock()

		sort.Strings(records)
		for _, record := range records {
			for _, w := range watchers {
				s.call(w, record)
			}
		}
	}
}

func (s *Store) call(w watcher, record string) {
	defer func() {
		if r := recover(); r != nil {
			s.getLogger().Warn("record watcher panic recovered",
				"record", record,
				"panic", r,
			)
		}
	}()
	w.fn(record)
}
