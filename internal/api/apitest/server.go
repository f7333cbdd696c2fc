// Package apitest provides an in-memory fake of the todo HTTP API for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/idilsaglam/todo-client/internal/model"
)

// Server is an httptest server speaking the /api/todos protocol.
// Failures can be injected per HTTP method.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	items  []model.Item
	nextID int
	fail   map[string]int
	from   map[string]failFrom
	drop   map[string]bool
	holds  map[string]chan struct{}
	calls  map[string]int
	bodies map[string][]json.RawMessage
}

// NewServer starts a fake seeded with items. It is closed on test cleanup.
func NewServer(t testing.TB, seed ...model.Item) *Server {
	t.Helper()
	s := &Server{
		items:  slices.Clone(seed),
		nextID: 100,
		fail:   make(map[string]int),
		from:   make(map[string]failFrom),
		drop:   make(map[string]bool),
		holds:  make(map[string]chan struct{}),
		calls:  make(map[string]int),
		bodies: make(map[string][]json.RawMessage),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/todos", s.list)
	mux.HandleFunc("POST /api/todos", s.create)
	mux.HandleFunc("PUT /api/todos/{id}", s.update)
	mux.HandleFunc("DELETE /api/todos/{id}", s.remove)
	s.Server = httptest.NewServer(s.intercept(mux))
	t.Cleanup(s.Close)
	return s
}

// Fail makes every request with method answer status until Reset.
func (s *Server) Fail(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = status
}

type failFrom struct{ call, status int }

// FailFrom makes requests with method answer status starting with the nth
// one (1-based), until Reset. Earlier requests are served normally.
func (s *Server) FailFrom(method string, n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.from[method] = failFrom{call: n, status: status}
}

// Drop makes every request with method lose its connection until Reset.
func (s *Server) Drop(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop[method] = true
}

// Hold blocks requests with method until the returned func is called.
func (s *Server) Hold(method string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[method] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, method)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Reset clears injected failures.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.fail)
	clear(s.from)
	clear(s.drop)
}

// Calls is the number of requests received with method.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Bodies returns the raw JSON request bodies received with method.
func (s *Server) Bodies(method string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bodies[method])
}

// Items returns the server-side collection.
func (s *Server) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// SetItems replaces the server-side collection.
func (s *Server) SetItems(items ...model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(items)
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method]++
		if b, err := io.ReadAll(r.Body); err == nil && len(b) > 0 {
			s.bodies[r.Method] = append(s.bodies[r.Method], json.RawMessage(b))
			r.Body = io.NopCloser(bytes.NewReader(b))
		}
		hold := s.holds[r.Method]
		status, failing := s.fail[r.Method]
		if ff, ok := s.from[r.Method]; ok && !failing && s.calls[r.Method] >= ff.call {
			status, failing = ff.status, true
		}
		dropping := s.drop[r.Method]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if dropping {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if failing {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Items())
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.nextID++
	it := model.Item{
		ID:        strconv.Itoa(s.nextID),
		Title:     req.Title,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	s.items = append(s.items, it)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	s.mu.Lock()
	i := slices.IndexFunc(s.items, func(it model.Item) bool { return it.ID == id })
	if i < 0 {
		s.mu.Unlock()
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.items[i].Completed = req.Completed
	it := s.items[i]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	i := slices.IndexFunc(s.items, func(it model.Item) bool { return it.ID == id })
	if i < 0 {
		s.mu.Unlock()
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
