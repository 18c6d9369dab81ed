package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/whoop-data-sync/internal/whoop"
)

// fakeStore serves canned records per category, or a failure.
type fakeStore struct {
	records map[whoop.Category][]whoop.Record
	err     error
}

func (f *fakeStore) Append(ctx context.Context, category whoop.Category, payload json.RawMessage, fetchedAt time.Time) error {
	return errors.New("read-only fake")
}

func (f *fakeStore) Latest(ctx context.Context, category whoop.Category, limit int) ([]whoop.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	records := f.records[category]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

type fakeSession struct{}

func (fakeSession) GetCollection(ctx context.Context, category whoop.Category, start, end time.Time) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (fakeSession) GetUserProfile(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"user_id":7,"first_name":"Ada"}`), nil
}

func (fakeSession) Close() {}

func newTestApp(st whoop.Store) *fiber.App {
	app := fiber.New()
	factory := func(ctx context.Context) (whoop.Session, error) {
		return fakeSession{}, nil
	}
	svc := whoop.NewService(st, factory, time.UTC)
	RegisterRoutes(app, svc)
	return app
}

// TestLatestEndpointReturnsPayloads verifies the category endpoints return the
// stored payloads most-recent-first.
func TestLatestEndpointReturnsPayloads(t *testing.T) {
	st := &fakeStore{records: map[whoop.Category][]whoop.Record{
		whoop.CategorySleep: {
			{ID: 2, Payload: json.RawMessage(`{"night":"latest"}`)},
			{ID: 1, Payload: json.RawMessage(`{"night":"older"}`)},
		},
	}}
	app := newTestApp(st)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sleep", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var payloads []map[string]string
	if err := json.Unmarshal(body, &payloads); err != nil {
		t.Fatalf("invalid response body %q: %v", body, err)
	}
	if len(payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(payloads))
	}
	if payloads[0]["night"] != "latest" {
		t.Fatalf("expected most recent payload first, got %v", payloads[0])
	}
}

// TestLatestEndpointEmptyCategory verifies that a category with no data
// degrades to an empty array, not an error.
func TestLatestEndpointEmptyCategory(t *testing.T) {
	app := newTestApp(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recovery", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "[]" {
		t.Fatalf("expected empty array, got %q", body)
	}
}

// TestLatestEndpointStorageError verifies storage failures map to a generic
// server error without leaking internals.
func TestLatestEndpointStorageError(t *testing.T) {
	app := newTestApp(&fakeStore{err: errors.New("database file corrupted at offset 4096")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workout", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) == "" || string(body) == "database file corrupted at offset 4096" {
		t.Fatalf("storage internals must not leak to callers, got %q", body)
	}
}

// TestLatestLimitValidation verifies the limit query parameter bounds.
func TestLatestLimitValidation(t *testing.T) {
	app := newTestApp(&fakeStore{})

	for _, limit := range []string{"0", "-1", "101", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cycle?limit="+limit, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("limit=%s: expected status %d, got %d", limit, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestProfileEndpoint(t *testing.T) {
	app := newTestApp(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var profile map[string]any
	if err := json.Unmarshal(body, &profile); err != nil {
		t.Fatalf("invalid profile body %q: %v", body, err)
	}
	if profile["first_name"] != "Ada" {
		t.Fatalf("unexpected profile %v", profile)
	}
}
