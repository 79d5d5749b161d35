package audit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/nerrad567/clinic-auth/migrations"

	"github.com/nerrad567/clinic-auth/internal/infrastructure/database"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(t.Context(), database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

var base = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func seedEntries(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	entries := []Entry{
		{Action: "register", Outcome: "success"},
		{Action: "login", Outcome: "invalid_credentials"},
		{Action: "login", Outcome: "success"},
		{Action: "logout", Outcome: "success"},
		{Action: "register", Outcome: "conflict"},
	}
	for i := range entries {
		e := entries[i]
		e.Site = "clinic-001"
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.Create(t.Context(), &e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
}

func TestCreate_FillsIDAndTime(t *testing.T) {
	repo := openTestRepo(t)

	e := &Entry{Action: "login", Outcome: "success", Site: "clinic-001"}
	if err := repo.Create(t.Context(), e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(e.ID, "aud-") {
		t.Errorf("ID = %q, want aud- prefix", e.ID)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	res, err := repo.List(t.Context(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("List() = %+v, want one entry", res)
	}
	got := res.Entries[0]
	if got.ID != e.ID || got.Action != "login" || got.Outcome != "success" || got.Site != "clinic-001" {
		t.Errorf("stored entry = %+v, want %+v", got, *e)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestList_NewestFirst(t *testing.T) {
	repo := openTestRepo(t)
	seedEntries(t, repo)

	res, err := repo.List(t.Context(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 5 {
		t.Errorf("Total = %d, want 5", res.Total)
	}
	for i := 1; i < len(res.Entries); i++ {
		if res.Entries[i].CreatedAt.After(res.Entries[i-1].CreatedAt) {
			t.Fatalf("entries not newest first: %v after %v", res.Entries[i].CreatedAt, res.Entries[i-1].CreatedAt)
		}
	}
	if res.Entries[0].Outcome != "conflict" {
		t.Errorf("newest entry = %+v, want the register conflict", res.Entries[0])
	}
}

func TestList_SubSecondOrdering(t *testing.T) {
	repo := openTestRepo(t)

	// .1s and .12s must not swap when compared as text.
	for _, ns := range []int{100_000_000, 120_000_000} {
		e := &Entry{Action: "login", Outcome: fmt.Sprint(ns), Site: "s", CreatedAt: base.Add(time.Duration(ns))}
		if err := repo.Create(t.Context(), e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	res, err := repo.List(t.Context(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Entries[0].Outcome != "120000000" {
		t.Errorf("newest = %+v, want the .12s entry", res.Entries[0])
	}
}

func TestList_Filters(t *testing.T) {
	repo := openTestRepo(t)
	seedEntries(t, repo)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by action", Filter{Action: "login"}, 2},
		{"by outcome", Filter{Outcome: "success"}, 3},
		{"by both", Filter{Action: "register", Outcome: "conflict"}, 1},
		{"no match", Filter{Action: "seed"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(t.Context(), tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.want || len(res.Entries) != tt.want {
				t.Errorf("Total = %d, entries = %d, want %d", res.Total, len(res.Entries), tt.want)
			}
		})
	}
}

func TestList_Pagination(t *testing.T) {
	repo := openTestRepo(t)
	seedEntries(t, repo)

	res, err := repo.List(t.Context(), Filter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 5 || len(res.Entries) != 1 {
		t.Errorf("Total = %d, entries = %d, want 5 and 1", res.Total, len(res.Entries))
	}
	if res.Entries[0].Action != "register" || res.Entries[0].Outcome != "success" {
		t.Errorf("last page = %+v, want the oldest entry", res.Entries[0])
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want Filter
	}{
		{Filter{}, Filter{Limit: defaultLimit}},
		{Filter{Limit: 500}, Filter{Limit: maxLimit}},
		{Filter{Limit: 10, Offset: -3}, Filter{Limit: 10}},
	}
	for _, tt := range tests {
		if got := clamp(tt.in); got != tt.want {
			t.Errorf("clamp(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

type failingRepo struct{ Repository }

func (failingRepo) Create(context.Context, *Entry) error { return errors.New("disk full") }

type errorLog struct{ msgs []string }

func (l *errorLog) Error(msg string, _ ...any) { l.msgs = append(l.msgs, msg) }

func TestRecorder_WritesEntries(t *testing.T) {
	repo := openTestRepo(t)
	rec := NewRecorder(repo, "clinic-001")
	rec.now = func() time.Time { return base }

	rec.WriteAuthEvent("seed", "success")

	res, err := repo.List(t.Context(), Filter{Action: "seed"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}
	got := res.Entries[0]
	if got.Outcome != "success" || got.Site != "clinic-001" || !got.CreatedAt.Equal(base) {
		t.Errorf("entry = %+v", got)
	}
}

func TestRecorder_LogsFailures(t *testing.T) {
	log := &errorLog{}
	rec := NewRecorder(failingRepo{}, "clinic-001")
	rec.SetLogger(log)

	rec.WriteAuthEvent("login", "success")

	if len(log.msgs) != 1 {
		t.Errorf("logged %d errors, want 1", len(log.msgs))
	}
}
