package syncer

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/idilsaglam/todo-client/internal/api"
	"github.com/idilsaglam/todo-client/internal/api/apitest"
	"github.com/idilsaglam/todo-client/internal/model"
	"github.com/idilsaglam/todo-client/internal/store"
)

type fixture struct {
	srv    *apitest.Server
	store  *store.Store
	sync   *Syncer
	logbuf *bytes.Buffer
}

func newFixture(t *testing.T, seed ...model.Item) *fixture {
	t.Helper()
	srv := apitest.NewServer(t, seed...)
	c, err := api.New(srv.URL)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	buf := &bytes.Buffer{}
	st := store.New()
	return &fixture{
		srv:    srv,
		store:  st,
		sync:   New(c, st, log.New(buf)),
		logbuf: buf,
	}
}

func (f *fixture) run(t Task) { Run(context.Background(), t) }

func TestRefreshMirrorsServer(t *testing.T) {
	seed := []model.Item{{ID: "2", Title: "B"}, {ID: "1", Title: "A", Completed: true}}
	f := newFixture(t, seed...)
	f.store.Append(model.Item{ID: "stale"})

	f.run(f.sync.Refresh())

	if diff := cmp.Diff(seed, f.store.Items()); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshFailureKeepsStaleView(t *testing.T) {
	f := newFixture(t, model.Item{ID: "1"})
	f.store.Append(model.Item{ID: "stale"})
	f.srv.Fail(http.MethodGet, http.StatusServiceUnavailable)

	f.run(f.sync.Refresh())

	if diff := cmp.Diff([]model.Item{{ID: "stale"}}, f.store.Items()); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(f.logbuf.String(), "fetch todos") {
		t.Errorf("failure not logged: %q", f.logbuf.String())
	}
}

func TestStaleTracksLastRefresh(t *testing.T) {
	f := newFixture(t, model.Item{ID: "1"})
	f.srv.Fail(http.MethodGet, http.StatusServiceUnavailable)

	f.run(f.sync.Refresh())
	if !f.sync.Stale() {
		t.Error("Stale: got false after failed refresh")
	}

	f.srv.Reset()
	f.run(f.sync.Refresh())
	if f.sync.Stale() {
		t.Error("Stale: got true after successful refresh")
	}
}

func TestRefreshLoadsRowsWithOddFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"_id":1,"title":"A","createdAt":"2024-01-01 10:00:00"},{"_id":"b","title":"B","createdAt":""}]`))
	}))
	defer srv.Close()
	c, err := api.New(srv.URL)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	st := store.New()
	st.Append(model.Item{ID: "stale"})

	Run(context.Background(), New(c, st, nil).Refresh())

	want := []model.Item{{ID: "1", Title: "A"}, {ID: "b", Title: "B"}}
	if diff := cmp.Diff(want, st.Items()); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateBlankSendsNothing(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n"} {
		f := newFixture(t)
		f.store.SetDraft(title)

		if task := f.sync.Create(title); task != nil {
			t.Errorf("Create(%q): got non-nil task", title)
		}
		if task := f.sync.Submit(); task != nil {
			t.Errorf("Submit with draft %q: got non-nil task", title)
		}
		if n := f.srv.Calls(http.MethodPost); n != 0 {
			t.Errorf("Create(%q): %d POST requests", title, n)
		}
		if f.store.Len() != 0 {
			t.Errorf("Create(%q): store changed", title)
		}
	}
}

func TestCreateAppendsServerItem(t *testing.T) {
	f := newFixture(t, model.Item{ID: "1", Title: "A"})
	f.run(f.sync.Refresh())
	f.store.SetDraft("  Buy milk ")

	task := f.sync.Submit()
	if f.store.Len() != 1 {
		t.Fatalf("item shown before the server answered")
	}
	f.run(task)

	items := f.store.Items()
	if len(items) != 2 {
		t.Fatalf("Len: got %d, want 2", len(items))
	}
	last := items[1]
	if last.Title != "Buy milk" || last.Completed || last.ID == "" {
		t.Errorf("appended item: got %+v", last)
	}
	if f.store.Draft() != "" {
		t.Errorf("draft not cleared: %q", f.store.Draft())
	}
	if got := string(f.srv.Bodies(http.MethodPost)[0]); got != `{"title":"Buy milk"}` {
		t.Errorf("POST body: got %s", got)
	}
}

func TestCreateFailureKeepsDraft(t *testing.T) {
	for name, inject := range map[string]func(*apitest.Server){
		"status":    func(s *apitest.Server) { s.Fail(http.MethodPost, http.StatusInternalServerError) },
		"transport": func(s *apitest.Server) { s.Drop(http.MethodPost) },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			inject(f.srv)
			f.store.SetDraft("Buy milk")

			f.run(f.sync.Submit())

			if f.store.Len() != 0 {
				t.Errorf("store changed: %+v", f.store.Items())
			}
			if f.store.Draft() != "Buy milk" {
				t.Errorf("draft: got %q, want Buy milk", f.store.Draft())
			}
		})
	}
}

func TestToggleFlipsEvenOnFailure(t *testing.T) {
	for name, inject := range map[string]func(*apitest.Server){
		"ok":        func(*apitest.Server) {},
		"status":    func(s *apitest.Server) { s.Fail(http.MethodPut, http.StatusInternalServerError) },
		"transport": func(s *apitest.Server) { s.Drop(http.MethodPut) },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, model.Item{ID: "1", Title: "A"})
			f.run(f.sync.Refresh())
			inject(f.srv)

			f.run(f.sync.Toggle("1", false))
			if it, _ := f.store.Find("1"); !it.Completed {
				t.Fatalf("after Toggle(1, false): completed=false")
			}

			f.run(f.sync.Toggle("1", true))
			if it, _ := f.store.Find("1"); it.Completed {
				t.Errorf("after Toggle(1, true): completed=true")
			}
		})
	}
}

func TestToggleUsesCallerSnapshot(t *testing.T) {
	f := newFixture(t, model.Item{ID: "1"})
	f.run(f.sync.Refresh())

	// Both calls saw completed=false, so both send and apply true.
	a := f.sync.Toggle("1", false)
	b := f.sync.Toggle("1", false)
	f.run(a)
	f.run(b)

	if it, _ := f.store.Find("1"); !it.Completed {
		t.Error("completed: got false, want true")
	}
	for _, body := range f.srv.Bodies(http.MethodPut) {
		if string(body) != `{"completed":true}` {
			t.Errorf("PUT body: got %s", body)
		}
	}
}

func TestDeleteIsImmediate(t *testing.T) {
	f := newFixture(t, model.Item{ID: "1"}, model.Item{ID: "2"})
	f.run(f.sync.Refresh())

	task := f.sync.Delete("1")
	if _, ok := f.store.Find("1"); ok {
		t.Fatal("item still present before the request was sent")
	}
	if n := f.srv.Calls(http.MethodDelete); n != 0 {
		t.Fatalf("DELETE sent by the local half: %d", n)
	}

	f.run(task)
	if diff := cmp.Diff([]model.Item{{ID: "2"}}, f.store.Items()); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
	if n := f.srv.Calls(http.MethodGet); n != 1 {
		t.Errorf("GET calls: got %d, want 1 (no refresh after success)", n)
	}
}

func TestDeleteFailureRefreshes(t *testing.T) {
	for name, inject := range map[string]func(*apitest.Server){
		"status":    func(s *apitest.Server) { s.Fail(http.MethodDelete, http.StatusInternalServerError) },
		"transport": func(s *apitest.Server) { s.Drop(http.MethodDelete) },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, model.Item{ID: "1", Title: "A"})
			f.run(f.sync.Refresh())
			inject(f.srv)

			f.run(f.sync.Delete("1"))

			if diff := cmp.Diff(f.srv.Items(), f.store.Items()); diff != "" {
				t.Errorf("store did not converge (-server +store):\n%s", diff)
			}
			if f.store.Len() != 1 {
				t.Errorf("Len: got %d, want 1", f.store.Len())
			}
			if n := f.srv.Calls(http.MethodGet); n != 2 {
				t.Errorf("GET calls: got %d, want 2", n)
			}
			if !strings.Contains(f.logbuf.String(), "delete todo") {
				t.Errorf("failure not logged: %q", f.logbuf.String())
			}
		})
	}
}

func TestToggleThenFailedDeleteScenario(t *testing.T) {
	f := newFixture(t, model.Item{ID: "1", Title: "A"})
	f.run(f.sync.Refresh())

	f.run(f.sync.Toggle("1", false))
	want := []model.Item{{ID: "1", Title: "A", Completed: true}}
	if diff := cmp.Diff(want, f.store.Items()); diff != "" {
		t.Fatalf("after toggle (-want +got):\n%s", diff)
	}

	f.srv.Fail(http.MethodDelete, http.StatusInternalServerError)
	task := f.sync.Delete("1")
	if f.store.Len() != 0 {
		t.Fatalf("after delete call: got %+v, want []", f.store.Items())
	}

	f.run(task)
	if diff := cmp.Diff(want, f.store.Items()); diff != "" {
		t.Errorf("after refresh (-want +got):\n%s", diff)
	}
}

func TestDispatcherDeleteIsVisibleWhileInFlight(t *testing.T) {
	f := newFixture(t, model.Item{ID: "1"})
	f.run(f.sync.Refresh())
	release := f.srv.Hold(http.MethodDelete)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d := NewDispatcher(ctx)
	f.srv.Fail(http.MethodDelete, http.StatusInternalServerError)
	d.Go(f.sync.Delete("1"))

	if f.store.Len() != 0 || d.Pending() != 1 {
		t.Fatalf("in flight: len=%d pending=%d", f.store.Len(), d.Pending())
	}

	release()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if d.Pending() != 0 {
		t.Errorf("Pending after drain: %d", d.Pending())
	}
	if f.store.Len() != 1 {
		t.Errorf("follow-up refresh not applied: %+v", f.store.Items())
	}
}

func TestDispatcherRunsTasksIndependently(t *testing.T) {
	f := newFixture(t, model.Item{ID: "1"}, model.Item{ID: "2"}, model.Item{ID: "3"})
	f.run(f.sync.Refresh())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d := NewDispatcher(ctx)
	for _, it := range f.store.Items() {
		d.Go(f.sync.Toggle(it.ID, it.Completed))
	}
	d.Go(nil)
	if d.Pending() != 3 {
		t.Fatalf("Pending: got %d, want 3", d.Pending())
	}
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	for _, it := range f.store.Items() {
		if !it.Completed {
			t.Errorf("item %s not completed", it.ID)
		}
	}
}

func TestDrainStopsOnContext(t *testing.T) {
	f := newFixture(t)
	release := f.srv.Hold(http.MethodGet)
	defer release()

	dctx, dcancel := context.WithCancel(context.Background())
	defer dcancel()
	d := NewDispatcher(dctx)
	d.Go(f.sync.Refresh())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.Drain(ctx); err == nil {
		t.Error("Drain: expected context error")
	}
}
