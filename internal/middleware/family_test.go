package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/dukerupert/kinship/internal/database"
	"github.com/dukerupert/kinship/internal/familyctx"
	"github.com/dukerupert/kinship/internal/store"
	"golang.org/x/crypto/bcrypt"
)

func setupFamilyMiddleware(t *testing.T) (*store.FamilyStore, http.Handler, *familyctx.FamilyContext) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	families := store.NewFamilyStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen familyctx.FamilyContext
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = familyctx.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	mux := http.NewServeMux()
	load := LoadFamily(families, logger)
	mux.Handle("GET /families/{family_id}", load(inner))
	mux.Handle("POST /families/{family_id}", load(RequireFamilyUnlocked(inner)))
	return families, mux, &seen
}

func serve(h http.Handler, method, path, pin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if pin != "" {
		req.Header.Set(PINHeader, pin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoadFamilyNotFound(t *testing.T) {
	_, h, _ := setupFamilyMiddleware(t)

	if rec := serve(h, "GET", "/families/99", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := serve(h, "GET", "/families/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLoadFamilyWithoutPIN(t *testing.T) {
	families, h, seen := setupFamilyMiddleware(t)
	f, err := families.Create("Smith")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	path := "/families/" + itoa(f.ID)
	if rec := serve(h, "POST", path, ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if seen.FamilyID != f.ID || !seen.Unlocked {
		t.Errorf("context = %+v, want family %d unlocked", *seen, f.ID)
	}
}

func TestRequireFamilyUnlocked(t *testing.T) {
	families, h, seen := setupFamilyMiddleware(t)
	f, _ := families.Create("Smith")
	hash, _ := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	if err := families.SetPIN(f.ID, string(hash)); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	path := "/families/" + itoa(f.ID)

	// Reads are allowed while locked.
	if rec := serve(h, "GET", path, ""); rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}
	if seen.Unlocked {
		t.Error("Unlocked = true without PIN")
	}

	if rec := serve(h, "POST", path, ""); rec.Code != http.StatusForbidden {
		t.Errorf("no PIN: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if rec := serve(h, "POST", path, "9999"); rec.Code != http.StatusForbidden {
		t.Errorf("wrong PIN: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if rec := serve(h, "POST", path, "1234"); rec.Code != http.StatusOK {
		t.Errorf("right PIN: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected generated request id")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc" {
		t.Errorf("request id = %q, want %q", got, "abc")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
