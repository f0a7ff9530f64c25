package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stevemurr/collection-sync/entity"
	"github.com/stevemurr/collection-sync/remote"
)

func newTaskSource(t *testing.T, h http.HandlerFunc, opts ...remote.Option) *remote.HTTPSource[entity.Task, entity.TaskDraft] {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	src, err := remote.NewHTTPSource[entity.Task, entity.TaskDraft](ts.URL+"/", opts...)
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func TestList(t *testing.T) {
	src := newTaskSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[{"id":1,"title":"a","completed":true},{"id":2,"title":"b"}]`))
	})

	got, err := src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []entity.Task{{ID: 1, Title: "a", Completed: true}, {ID: 2, Title: "b"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list (-want +got):\n%s", diff)
	}
}

func TestListNullIsEmpty(t *testing.T) {
	src := newTaskSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})
	got, err := src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestCreate(t *testing.T) {
	src := newTaskSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if _, ok := body["id"]; ok {
			t.Errorf("draft must not carry an id: %v", body)
		}
		body["id"] = 7
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	})

	got, err := src.Create(context.Background(), entity.TaskDraft{Title: "new"})
	if err != nil {
		t.Fatal(err)
	}
	if got != (entity.Task{ID: 7, Title: "new"}) {
		t.Fatalf("unexpected task %+v", got)
	}
}

func TestReplace(t *testing.T) {
	src := newTaskSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/tasks/3" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var task entity.Task
		if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
			t.Errorf("decode: %v", err)
		}
		task.Completed = true
		json.NewEncoder(w).Encode(task)
	})

	got, err := src.Replace(context.Background(), entity.Task{ID: 3, Title: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if got != (entity.Task{ID: 3, Title: "x", Completed: true}) {
		t.Fatalf("expected server version, got %+v", got)
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		body   string
		detail string
	}{
		{name: "detail", code: http.StatusNotFound, body: `{"detail":"document not found"}`, detail: "document not found"},
		{name: "plain", code: http.StatusBadGateway, body: "upstream down\n", detail: "upstream down"},
		{name: "empty", code: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := newTaskSource(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				w.Write([]byte(tc.body))
			})
			_, err := src.Replace(context.Background(), entity.Task{ID: 1})
			var se *remote.StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if se.Code != tc.code || se.Detail != tc.detail || se.Method != http.MethodPut {
				t.Fatalf("unexpected error %+v", se)
			}
		})
	}
}

func TestUndecodableResponse(t *testing.T) {
	src := newTaskSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":`))
	})
	if _, err := src.List(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHeadersAndEndpoint(t *testing.T) {
	var got string
	src := newTaskSource(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}, remote.WithHeader("Authorization", "Bearer t0ken"))

	if _, err := src.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer t0ken" {
		t.Fatalf("expected header to be sent, got %q", got)
	}

	books, err := remote.NewHTTPSource[entity.Book, entity.BookDraft]("https://api.example.com/v1")
	if err != nil {
		t.Fatal(err)
	}
	if want := "https://api.example.com/v1/books"; books.Endpoint() != want {
		t.Fatalf("expected %s, got %s", want, books.Endpoint())
	}
}

func TestNewHTTPSourceRejectsScheme(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "example.com", "://bad"} {
		if _, err := remote.NewHTTPSource[entity.User, entity.UserDraft](raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
