package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diaflow/diaflow/internal/domain/artifact"
)

type fakeQuotaStore struct {
	remaining int
	err       error
	seeded    int
}

func (f *fakeQuotaStore) Remaining(_ context.Context, _ string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.remaining, nil
}

func (f *fakeQuotaStore) EnsureQuota(_ context.Context, _ string, credits int) error {
	f.seeded = credits
	f.err = nil
	f.remaining = credits
	return nil
}

func TestGetQuota_ReturnsRemaining(t *testing.T) {
	t.Parallel()

	h := NewQuotaHandler(&fakeQuotaStore{remaining: 7}, 10)
	rec := httptest.NewRecorder()
	h.GetQuota(rec, authedRequest("GET", "/api/v1/quota", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"remaining":7`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetQuota_SeedsFirstTimeUser(t *testing.T) {
	t.Parallel()

	store := &fakeQuotaStore{err: artifact.ErrNotFound}
	h := NewQuotaHandler(store, 10)
	rec := httptest.NewRecorder()
	h.GetQuota(rec, authedRequest("GET", "/api/v1/quota", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if store.seeded != 10 {
		t.Errorf("seeded credits = %d; want 10", store.seeded)
	}
	if !strings.Contains(rec.Body.String(), `"remaining":10`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetQuota_MissingUserContext(t *testing.T) {
	t.Parallel()

	h := NewQuotaHandler(&fakeQuotaStore{}, 10)
	rec := httptest.NewRecorder()
	h.GetQuota(rec, httptest.NewRequest("GET", "/api/v1/quota", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
}

func TestGetQuota_StoreError(t *testing.T) {
	t.Parallel()

	h := NewQuotaHandler(&fakeQuotaStore{err: errors.New("db closed")}, 10)
	rec := httptest.NewRecorder()
	h.GetQuota(rec, authedRequest("GET", "/api/v1/quota", ""))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want 500", rec.Code)
	}
}
