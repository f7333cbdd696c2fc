// Package store holds the todo items currently shown and the pending draft text.
//
// A Store has exactly one owner goroutine. It is not safe for concurrent use:
// network results are handed back to the owner (see package syncer) and
// applied there, so no locking is needed.
package store

import (
	"slices"

	"github.com/idilsaglam/todo-client/internal/model"
)

// Store is the ordered item collection plus the new-item text buffer.
// Every mutation notifies subscribers synchronously, after the change.
type Store struct {
	items []model.Item
	draft string

	subs   map[int]func()
	nextID int
}

// New returns an empty store.
func New() *Store {
	return &Store{subs: make(map[int]func())}
}

// Subscribe registers fn to run after every mutation and returns a func that
// removes it.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

func (s *Store) notify() {
	for _, fn := range s.subs {
		fn()
	}
}

// Items returns a copy of the collection in display order.
func (s *Store) Items() []model.Item {
	return slices.Clone(s.items)
}

// Len is the number of items.
func (s *Store) Len() int { return len(s.items) }

// Find returns the item with id, if present.
func (s *Store) Find(id string) (model.Item, bool) {
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return model.Item{}, false
}

// At returns the item at a 0-based position.
func (s *Store) At(i int) (model.Item, bool) {
	if i < 0 || i >= len(s.items) {
		return model.Item{}, false
	}
	return s.items[i], true
}

// ReplaceAll overwrites the collection with items, keeping their order.
// Later duplicates of an id are dropped so ids stay unique.
func (s *Store) ReplaceAll(items []model.Item) {
	out := make([]model.Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	s.items = out
	s.notify()
}

// Append adds it at the end. An item whose id is already present replaces
// the existing entry in place instead.
func (s *Store) Append(it model.Item) {
	if i := s.index(it.ID); i >= 0 {
		s.items[i] = it
	} else {
		s.items = append(s.items, it)
	}
	s.notify()
}

// UpdateOne merges p into the item with id. Unknown ids are a no-op and
// notify nobody.
func (s *Store) UpdateOne(id string, p model.Patch) {
	i := s.index(id)
	if i < 0 {
		return
	}
	s.items[i] = p.Apply(s.items[i])
	s.notify()
}

// RemoveOne deletes the item with id. Unknown ids are a no-op and notify
// nobody.
func (s *Store) RemoveOne(id string) {
	i := s.index(id)
	if i < 0 {
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.notify()
}

// Draft is the text typed for the next item.
func (s *Store) Draft() string { return s.draft }

// SetDraft replaces the draft text.
func (s *Store) SetDraft(text string) {
	s.draft = text
	s.notify()
}

// ClearDraft empties the draft text.
func (s *Store) ClearDraft() { s.SetDraft("") }

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.items, func(it model.Item) bool { return it.ID == id })
}
