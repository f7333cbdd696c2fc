package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Item is the domain model for a todo entry as the API returns it.
// ID and CreatedAt are assigned by the server; Title never changes after creation.
type Item struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts a string or numeric _id and treats createdAt as
// best effort: a missing or unparseable timestamp leaves the zero time.
func (it *Item) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"_id"`
		Title     string          `json:"title"`
		Completed bool            `json:"completed"`
		CreatedAt json.RawMessage `json:"createdAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}
	*it = Item{
		ID:        id,
		Title:     raw.Title,
		Completed: raw.Completed,
		CreatedAt: decodeTime(raw.CreatedAt),
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("_id: want string or number, got %s", raw)
	}
	return n.String(), nil
}

func decodeTime(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Patch is a partial update merged into an Item. Nil fields are left alone.
type Patch struct {
	Completed *bool
}

// Apply returns a copy of it with p merged in.
func (p Patch) Apply(it Item) Item {
	if p.Completed != nil {
		it.Completed = *p.Completed
	}
	return it
}

// SetCompleted is shorthand for a Patch that only touches Completed.
func SetCompleted(v bool) Patch { return Patch{Completed: &v} }

// Stats counts done and pending items.
func Stats(items []Item) (done, pending int) {
	for _, it := range items {
		if it.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}
