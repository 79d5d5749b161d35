package store

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/clinic-auth/internal/infrastructure/mqtt"
)

// fakeBroker routes published messages to subscribers whose pattern
// matches, supporting the single-level + wildcard.
type fakeBroker struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published []string
	errs      []error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeBroker) Publish(topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	f.published = append(f.published, topic)
	var matched []mqtt.MessageHandler
	for key, h := range f.handlers {
		pattern, _, _ := strings.Cut(key, "#")
		if topicMatches(pattern, topic) {
			matched = append(matched, h)
		}
	}
	f.mu.Unlock()

	for _, h := range matched {
		if err := h(topic, payload); err != nil {
			f.mu.Lock()
			f.errs = append(f.errs, err)
			f.mu.Unlock()
		}
	}
	return nil
}

func (f *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeBroker) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

func topicMatches(pattern, topic string) bool {
	p, t := strings.Split(pattern, "/"), strings.Split(topic, "/")
	if len(p) != len(t) {
		return false
	}
	for i := range p {
		if p[i] != "+" && p[i] != t[i] {
			return false
		}
	}
	return true
}

func TestMQTTNotifier_Notify(t *testing.T) {
	broker := newFakeBroker()
	topics := mqtt.NewTopics("clinicauth", "clinic-001")
	n := NewMQTTNotifier(broker, topics, 1)

	var got []Change
	stop, err := n.Listen(func(c Change) { got = append(got, c) })
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	change := Change{Record: "app_session_v1", Origin: "ctx-a", At: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	if err := n.Notify(t.Context(), change); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if len(broker.published) != 1 || broker.published[0] != topics.RecordChanged("app_session_v1") {
		t.Errorf("published = %v, want the record topic", broker.published)
	}
	if len(got) != 1 || got[0].Record != change.Record || got[0].Origin != change.Origin || !got[0].At.Equal(change.At) {
		t.Errorf("listener got %+v, want %+v", got, change)
	}

	stop()
	if err := n.Notify(t.Context(), change); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("listener called after stop: %d calls", len(got))
	}
}

func TestMQTTNotifier_MalformedPayload(t *testing.T) {
	broker := newFakeBroker()
	topics := mqtt.NewTopics("clinicauth", "clinic-001")
	n := NewMQTTNotifier(broker, topics, 1)

	called := false
	if _, err := n.Listen(func(Change) { called = true }); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	if err := broker.Publish(topics.RecordChanged("app_users_v1"), []byte("not json"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if called {
		t.Error("listener called for malformed payload")
	}
	if len(broker.errs) != 1 {
		t.Errorf("handler errors = %v, want one decode error", broker.errs)
	}
}

type refusingBroker struct{ fakeBroker }

func (*refusingBroker) Subscribe(string, byte, mqtt.MessageHandler) error {
	return mqtt.ErrNotConnected
}

func TestOpen_ListenFailure(t *testing.T) {
	n := NewMQTTNotifier(&refusingBroker{}, mqtt.NewTopics("clinicauth", "x"), 1)
	if _, err := Open(NewMemoryBackend(), n); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Open() error = %v, want ErrNotConnected", err)
	}
}

func TestMQTTNotifier_StoresAcrossProcesses(t *testing.T) {
	broker := newFakeBroker()
	topics := mqtt.NewTopics("clinicauth", "clinic-001")
	backend := NewMemoryBackend()

	// Each process has its own client and notifier on the shared broker.
	a := openStore(t, backend, NewMQTTNotifier(&sharedBroker{broker, "a"}, topics, 1))
	b := openStore(t, backend, NewMQTTNotifier(&sharedBroker{broker, "b"}, topics, 1))

	rec := newRecorder()
	b.Watch(rec.watch)
	seenByA := newRecorder()
	a.Watch(seenByA.watch)

	if err := a.Write(t.Context(), "app_users_v1", []byte(`[]`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	rec.wait(t, "app_users_v1")
	seenByA.expectNone(t)
}

// sharedBroker gives each simulated process its own subscription slot on
// one fakeBroker. Keys carry a "#id" suffix that Publish strips.
type sharedBroker struct {
	*fakeBroker
	id string
}

func (s *sharedBroker) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	return s.fakeBroker.Subscribe(topic+"#"+s.id, qos, handler)
}

func (s *sharedBroker) Unsubscribe(topic string) error {
	return s.fakeBroker.Unsubscribe(topic + "#" + s.id)
}
