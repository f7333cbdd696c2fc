// Package syncer turns user intents into API requests and folds the results
// back into a store.Store.
//
// Every operation is split in two. The local half runs immediately, on the
// goroutine that owns the store, and returns a Task. The Task is the network
// half: it may run on any goroutine and hands back a Settle, which must be
// applied on the owner goroutine again. Errors are logged and swallowed; the
// only corrective action is the refresh that follows a failed delete.
package syncer

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todo-client/internal/api"
	"github.com/idilsaglam/todo-client/internal/model"
	"github.com/idilsaglam/todo-client/internal/store"
)

// Task performs one request and returns how to apply its outcome.
type Task func(ctx context.Context) Settle

// Settle applies a finished request to the store. It may return a follow-up
// Task, or nil when the operation is complete.
type Settle func() Task

// Syncer is the only component that talks to the API.
type Syncer struct {
	todos  api.Todos
	store  *store.Store
	logger *log.Logger

	stale bool
}

// New wires a Syncer to its API and store. A nil logger discards output.
func New(todos api.Todos, st *store.Store, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Syncer{todos: todos, store: st, logger: logger}
}

// Store returns the store this Syncer writes to.
func (s *Syncer) Store() *store.Store { return s.store }

// Stale reports whether the most recent Refresh failed, so the store may not
// match the server. Owner goroutine only.
func (s *Syncer) Stale() bool { return s.stale }

// Refresh fetches the whole collection and replaces the store's contents.
// On failure the store is left as it was.
func (s *Syncer) Refresh() Task {
	return func(ctx context.Context) Settle {
		items, err := s.todos.List(ctx)
		return func() Task {
			if err != nil {
				s.stale = true
				s.logger.Error("fetch todos", "op", "refresh", "err", err)
				return nil
			}
			s.stale = false
			s.store.ReplaceAll(items)
			s.logger.Debug("refreshed", "items", len(items))
			return nil
		}
	}
}

// Create posts a new item. The item only appears once the server has assigned
// its id; on success the draft is cleared, on failure it is kept for a retry.
// A blank title returns a nil Task and sends nothing.
func (s *Syncer) Create(title string) Task {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	return func(ctx context.Context) Settle {
		it, err := s.todos.Create(ctx, title)
		return func() Task {
			if err != nil {
				s.logger.Error("add todo", "op", "create", "title", title, "err", err)
				return nil
			}
			s.store.Append(it)
			s.store.ClearDraft()
			return nil
		}
	}
}

// Submit creates an item from the store's draft text.
func (s *Syncer) Submit() Task {
	return s.Create(s.store.Draft())
}

// Toggle asks the server to invert completed for id. completed is the
// caller's view of the flag at call time; once the request finishes the local
// item is set to !completed whether or not the server accepted it.
func (s *Syncer) Toggle(id string, completed bool) Task {
	want := !completed
	return func(ctx context.Context) Settle {
		err := s.todos.SetCompleted(ctx, id, want)
		return func() Task {
			if err != nil {
				s.logger.Error("toggle todo", "op", "toggle", "id", id, "err", err)
			}
			s.store.UpdateOne(id, model.SetCompleted(want))
			return nil
		}
	}
}

// Delete removes id from the store right away and then asks the server to
// delete it. If the request fails the returned Settle schedules a Refresh so
// the store converges on the server's view.
func (s *Syncer) Delete(id string) Task {
	s.store.RemoveOne(id)
	return func(ctx context.Context) Settle {
		err := s.todos.Delete(ctx, id)
		return func() Task {
			if err == nil {
				return nil
			}
			fields := []any{"op", "delete", "id", id, "err", err}
			if api.IsStatus(err) {
				fields = append(fields, "kind", "status")
			} else {
				fields = append(fields, "kind", "transport")
			}
			s.logger.Error("delete todo", fields...)
			return s.Refresh()
		}
	}
}

// Run drives t and every follow-up it produces to completion on the calling
// goroutine, which must own the store.
func Run(ctx context.Context, t Task) {
	for t != nil {
		t = t(ctx)()
	}
}
