package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stevemurr/collection-sync/handler"
	"github.com/stevemurr/collection-sync/store"
)

func setup(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	ts := httptest.NewServer(handler.New(s))
	t.Cleanup(ts.Close)
	return ts, s
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		r = bytes.NewReader(mustJSON(t, b))
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func decodeJSONArray(t *testing.T, r io.Reader) []any {
	t.Helper()
	var v []any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func TestRootAndHealth(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeJSON(t, resp.Body); body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}

	resp = do(t, http.MethodGet, ts.URL+"/health", nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestCollectionCRUD(t *testing.T) {
	ts, _ := setup(t)

	// GET /users - empty
	resp := do(t, http.MethodGet, ts.URL+"/users", nil)
	expectStatus(t, resp, http.StatusOK)
	if items := decodeJSONArray(t, resp.Body); len(items) != 0 {
		t.Fatalf("expected 0 users, got %d", len(items))
	}

	// POST assigns ids and ignores a client id
	resp = do(t, http.MethodPost, ts.URL+"/users", map[string]any{"id": 50, "name": "Ana"})
	expectStatus(t, resp, http.StatusCreated)
	ana := decodeJSON(t, resp.Body)
	if ana["id"] != float64(1) || ana["name"] != "Ana" {
		t.Fatalf("unexpected created user: %v", ana)
	}
	resp = do(t, http.MethodPost, ts.URL+"/users", map[string]any{"name": "Bo"})
	expectStatus(t, resp, http.StatusCreated)

	// GET /users/2
	resp = do(t, http.MethodGet, ts.URL+"/users/2", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decodeJSON(t, resp.Body); got["name"] != "Bo" {
		t.Fatalf("expected Bo, got %v", got["name"])
	}

	// PUT is a full replace
	resp = do(t, http.MethodPut, ts.URL+"/users/2", map[string]any{"id": 2, "name": "Bo2"})
	expectStatus(t, resp, http.StatusOK)
	if got := decodeJSON(t, resp.Body); got["name"] != "Bo2" || got["id"] != float64(2) {
		t.Fatalf("unexpected replaced user: %v", got)
	}

	// list order is insertion order
	resp = do(t, http.MethodGet, ts.URL+"/users", nil)
	items := decodeJSONArray(t, resp.Body)
	if len(items) != 2 {
		t.Fatalf("expected 2 users, got %d", len(items))
	}
	if items[0].(map[string]any)["name"] != "Ana" || items[1].(map[string]any)["name"] != "Bo2" {
		t.Fatalf("unexpected order: %v", items)
	}

	// DELETE
	resp = do(t, http.MethodDelete, ts.URL+"/users/2", nil)
	expectStatus(t, resp, http.StatusOK)
	resp = do(t, http.MethodGet, ts.URL+"/users/2", nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp = do(t, http.MethodDelete, ts.URL+"/users/2", nil)
	expectStatus(t, resp, http.StatusNotFound)

	// GET /collections
	resp = do(t, http.MethodGet, ts.URL+"/collections", nil)
	names := decodeJSONArray(t, resp.Body)
	if len(names) != 1 || names[0] != "users" {
		t.Fatalf("expected [users], got %v", names)
	}
}

func TestErrors(t *testing.T) {
	ts, _ := setup(t)
	do(t, http.MethodPost, ts.URL+"/tasks", map[string]any{"title": "one"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "put unknown id", method: http.MethodPut, path: "/tasks/9", body: map[string]any{"title": "x"}, want: http.StatusNotFound},
		{name: "put id mismatch", method: http.MethodPut, path: "/tasks/1", body: map[string]any{"id": 2, "title": "x"}, want: http.StatusBadRequest},
		{name: "put non-integer id", method: http.MethodPut, path: "/tasks/1", body: map[string]any{"id": "1", "title": "x"}, want: http.StatusBadRequest},
		{name: "bad path id", method: http.MethodGet, path: "/tasks/abc", want: http.StatusBadRequest},
		{name: "zero path id", method: http.MethodGet, path: "/tasks/0", want: http.StatusBadRequest},
		{name: "invalid json", method: http.MethodPost, path: "/tasks", body: "{", want: http.StatusBadRequest},
		{name: "array body", method: http.MethodPost, path: "/tasks", body: "[]", want: http.StatusBadRequest},
		{name: "null body", method: http.MethodPost, path: "/tasks", body: "null", want: http.StatusBadRequest},
		{name: "bad collection name", method: http.MethodGet, path: "/Tasks!", want: http.StatusNotFound},
		{name: "reserved collection", method: http.MethodPost, path: "/health", body: map[string]any{}, want: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, tc.method, ts.URL+tc.path, tc.body)
			expectStatus(t, resp, tc.want)
			if body := decodeJSON(t, resp.Body); body["detail"] == nil {
				t.Fatal("expected a detail message")
			}
		})
	}
}

func TestSchemaValidation(t *testing.T) {
	ts, _ := setup(t)

	sch := map[string]any{
		"type":     "object",
		"required": []string{"name", "price"},
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"price": map[string]any{"type": "number", "minimum": 0},
		},
	}
	resp := do(t, http.MethodPut, ts.URL+"/schemas/products", sch)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, http.MethodPost, ts.URL+"/products", map[string]any{"name": "Pen"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = do(t, http.MethodPost, ts.URL+"/products", map[string]any{"name": "Pen", "price": -1})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = do(t, http.MethodPost, ts.URL+"/products", map[string]any{"name": "Pen", "price": 1.5})
	expectStatus(t, resp, http.StatusCreated)

	resp = do(t, http.MethodPut, ts.URL+"/products/1", map[string]any{"name": "Pen"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = do(t, http.MethodGet, ts.URL+"/schemas", nil)
	expectStatus(t, resp, http.StatusOK)
	if all := decodeJSON(t, resp.Body); all["products"] == nil {
		t.Fatalf("expected products schema, got %v", all)
	}

	resp = do(t, http.MethodDelete, ts.URL+"/schemas/products", nil)
	expectStatus(t, resp, http.StatusOK)
	resp = do(t, http.MethodGet, ts.URL+"/schemas/products", nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = do(t, http.MethodPost, ts.URL+"/products", map[string]any{"name": "Pen"})
	expectStatus(t, resp, http.StatusCreated)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := httptest.NewServer(handler.New(store.NewMemoryStore(), handler.WithRegistry(reg)))
	defer ts.Close()

	do(t, http.MethodGet, ts.URL+"/books", nil)
	do(t, http.MethodGet, ts.URL+"/books", nil)
	do(t, http.MethodGet, ts.URL+"/books/7", nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	series := 0
	for _, mf := range mfs {
		if mf.GetName() == "collections_http_requests_total" {
			series = len(mf.GetMetric())
		}
	}
	if series != 2 {
		t.Fatalf("expected 2 label sets, got %d", series)
	}

	resp := do(t, http.MethodGet, ts.URL+"/metrics", nil)
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `route="/{collection}"`) {
		t.Fatalf("expected route label in metrics output:\n%s", body)
	}
}

func TestCORS(t *testing.T) {
	h := handler.CORS(handler.New(store.NewMemoryStore()), []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin, got %q", got)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
