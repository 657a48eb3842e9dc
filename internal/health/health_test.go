package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fbruckner/takt/internal/health"
	"github.com/fbruckner/takt/internal/memory"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	h := health.New()
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyz_AllChecksPass(t *testing.T) {
	h := health.New(
		health.Checker{Name: "a", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "b", Check: func(context.Context) error { return nil }},
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	checks := body["checks"].(map[string]any)
	if checks["a"] != "ok" || checks["b"] != "ok" {
		t.Fatalf("checks = %v", checks)
	}
}

func TestReadyz_FailingCheckReturns503(t *testing.T) {
	h := health.New(
		health.Checker{Name: "good", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "bad", Check: func(context.Context) error { return errors.New("no route") }},
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "fail" {
		t.Fatalf("status field = %v", body["status"])
	}
	checks := body["checks"].(map[string]any)
	if checks["good"] != "ok" {
		t.Errorf("good check = %v", checks["good"])
	}
	if s, _ := checks["bad"].(string); !strings.HasPrefix(s, "fail:") {
		t.Errorf("bad check = %v", checks["bad"])
	}
}

func TestOllamaChecker(t *testing.T) {
	t.Run("healthy server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/tags" {
				t.Errorf("path = %q", r.URL.Path)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := health.OllamaChecker(srv.Client(), srv.URL)
		if err := c.Check(context.Background()); err != nil {
			t.Fatalf("check: %v", err)
		}
	})

	t.Run("error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := health.OllamaChecker(srv.Client(), srv.URL)
		if err := c.Check(context.Background()); err == nil {
			t.Fatal("expected error for 500 response")
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		c := health.OllamaChecker(&http.Client{}, "http://127.0.0.1:1")
		if err := c.Check(context.Background()); err == nil {
			t.Fatal("expected error for unreachable server")
		}
	})
}

func TestDatabaseChecker(t *testing.T) {
	store, err := memory.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	c := health.DatabaseChecker(store.DB())
	if c.Name != "database" {
		t.Fatalf("name = %q", c.Name)
	}
	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestRegister_Routes(t *testing.T) {
	mux := http.NewServeMux()
	health.New().Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := srv.Client().Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}
}
