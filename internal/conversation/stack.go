// Package conversation keeps the bounded per-session history of completed
// turns and resolves references like "el segundo" or "ella" against it.
package conversation

import (
	"slices"
	"time"

	"github.com/garyellow/school-records-go/internal/storage"
)

// DefaultCapacity is the number of turns kept when none is configured.
const DefaultCapacity = 10

// Awaiting tells what the assistant asked for at the end of a turn.
type Awaiting string

const (
	AwaitingNone         Awaiting = "none"
	AwaitingSelection    Awaiting = "selection"
	AwaitingConfirmation Awaiting = "confirmation"
)

// Turn is one completed exchange.
type Turn struct {
	Query     string
	Rows      []storage.Row
	RowCount  int
	Awaiting  Awaiting
	Timestamp time.Time
}

// NewTurn builds a turn whose RowCount matches rows.
func NewTurn(query string, rows []storage.Row, awaiting Awaiting) Turn {
	if awaiting == "" {
		awaiting = AwaitingNone
	}
	return Turn{
		Query:     query,
		Rows:      rows,
		RowCount:  len(rows),
		Awaiting:  awaiting,
		Timestamp: time.Now(),
	}
}

// Stack is a bounded history; pushing past capacity drops the oldest turn.
// It is owned by one session and is not safe for concurrent use.
type Stack struct {
	capacity int
	turns    []Turn
}

// NewStack creates an empty stack. capacity <= 0 selects DefaultCapacity.
func NewStack(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{capacity: capacity, turns: make([]Turn, 0, capacity)}
}

// Push appends t, evicting the oldest turn when full.
func (s *Stack) Push(t Turn) {
	if t.Awaiting == "" {
		t.Awaiting = AwaitingNone
	}
	t.RowCount = len(t.Rows)
	if len(s.turns) == s.capacity {
		s.turns = slices.Delete(s.turns, 0, 1)
	}
	s.turns = append(s.turns, t)
}

// Top returns up to n of the most recent turns, oldest first.
// n <= 0 returns every turn.
func (s *Stack) Top(n int) []Turn {
	if n <= 0 || n > len(s.turns) {
		n = len(s.turns)
	}
	return slices.Clone(s.turns[len(s.turns)-n:])
}

// Last returns the most recent turn.
func (s *Stack) Last() (Turn, bool) {
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1], true
}

// Len returns the number of stored turns.
func (s *Stack) Len() int {
	return len(s.turns)
}

// Capacity returns the maximum number of stored turns.
func (s *Stack) Capacity() int {
	return s.capacity
}

// Clear drops every turn.
func (s *Stack) Clear() {
	s.turns = s.turns[:0]
}

// Resolved is a row picked out of the most recent result set.
type Resolved struct {
	Row      storage.Row
	Position int // 1-based
}

// ResolveReference maps a positional or pronominal expression to a row of
// the most recent turn only. Older turns are never searched.
func (s *Stack) ResolveReference(expr string) (Resolved, bool) {
	last, ok := s.Last()
	if !ok || len(last.Rows) == 0 {
		return Resolved{}, false
	}

	ref, ok := ParseReference(expr)
	if !ok {
		return Resolved{}, false
	}

	switch ref.Kind {
	case RefPronoun:
		// A pronoun is only unambiguous when the last result had one row.
		if len(last.Rows) != 1 {
			return Resolved{}, false
		}
		return Resolved{Row: last.Rows[0], Position: 1}, true
	case RefLast:
		return Resolved{Row: last.Rows[len(last.Rows)-1], Position: len(last.Rows)}, true
	default:
		if ref.Position < 1 || ref.Position > len(last.Rows) {
			return Resolved{}, false
		}
		return Resolved{Row: last.Rows[ref.Position-1], Position: ref.Position}, true
	}
}
