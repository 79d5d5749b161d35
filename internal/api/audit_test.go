package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/nerrad567/clinic-auth/internal/audit"
)

type fakeAudit struct {
	last audit.Filter
	err  error
}

func (f *fakeAudit) Create(context.Context, *audit.Entry) error { return nil }

func (f *fakeAudit) List(_ context.Context, filter audit.Filter) (*audit.ListResult, error) {
	f.last = filter
	if f.err != nil {
		return nil, f.err
	}
	return &audit.ListResult{
		Entries: []audit.Entry{{ID: "aud-1", Action: "login", Outcome: "success", Site: "clinic-001"}},
		Total:   1,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func TestListAudit(t *testing.T) {
	srv, svc := testServer(t, nil)
	if _, err := svc.EnsureSeedAdmin(t.Context(), "admin@example.com", "Secret123"); err != nil {
		t.Fatalf("EnsureSeedAdmin() error = %v", err)
	}
	repo := &fakeAudit{}
	srv.audit = repo

	expectError(t, do(t, srv, http.MethodGet, "/api/v1/admin/audit", nil), http.StatusUnauthorized, ErrCodeUnauthorized)

	loginAs(t, srv, "admin@example.com", "Secret123")

	rec := do(t, srv, http.MethodGet, "/api/v1/admin/audit?action=login&outcome=success&limit=10&offset=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	want := audit.Filter{Action: "login", Outcome: "success", Limit: 10, Offset: 5}
	if repo.last != want {
		t.Errorf("filter = %+v, want %+v", repo.last, want)
	}
	res := decode[audit.ListResult](t, rec)
	if res.Total != 1 || len(res.Entries) != 1 || res.Entries[0].ID != "aud-1" {
		t.Errorf("result = %+v", res)
	}

	expectError(t, do(t, srv, http.MethodGet, "/api/v1/admin/audit?limit=ten", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, do(t, srv, http.MethodGet, "/api/v1/admin/audit?offset=x", nil), http.StatusBadRequest, ErrCodeBadRequest)

	repo.err = errors.New("database is locked")
	expectError(t, do(t, srv, http.MethodGet, "/api/v1/admin/audit", nil), http.StatusInternalServerError, ErrCodeInternal)
}

func TestListAudit_Disabled(t *testing.T) {
	srv, svc := testServer(t, nil)
	if _, err := svc.EnsureSeedAdmin(t.Context(), "admin@example.com", "Secret123"); err != nil {
		t.Fatalf("EnsureSeedAdmin() error = %v", err)
	}
	loginAs(t, srv, "admin@example.com", "Secret123")

	expectError(t, do(t, srv, http.MethodGet, "/api/v1/admin/audit", nil), http.StatusNotFound, ErrCodeNotFound)
}
