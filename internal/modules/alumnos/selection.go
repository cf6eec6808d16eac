package alumnos

import (
	"strconv"
	"strings"

	"github.com/garyellow/school-records-go/internal/conversation"
	"github.com/garyellow/school-records-go/internal/intent"
	"github.com/garyellow/school-records-go/internal/storage"
	"github.com/garyellow/school-records-go/internal/stringutil"
)

// Selection is an open disambiguation: the candidates shown and the intent
// to resume once one is picked.
type Selection struct {
	Candidates []storage.Row
	Intent     intent.Intent
}

// cancelWords clear a pending selection.
var cancelWords = map[string]bool{"cancelar": true, "cancela": true, "ninguno": true, "ninguna": true, "nada": true}

// IsCancel reports whether text abandons the selection.
func IsCancel(text string) bool {
	for _, w := range stringutil.Words(stringutil.Fold(text)) {
		if cancelWords[w] {
			return true
		}
	}
	return false
}

// Choose picks a candidate by number ("2"), by position ("el segundo",
// "el último") or by a name that matches exactly one candidate.
func (s *Selection) Choose(text string) (storage.Row, bool) {
	if s == nil || len(s.Candidates) == 0 {
		return nil, false
	}
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "."))

	if n, err := strconv.Atoi(trimmed); err == nil {
		return s.at(n)
	}
	if ref, ok := conversation.ParseReference(trimmed); ok {
		switch ref.Kind {
		case conversation.RefPosition:
			return s.at(ref.Position)
		case conversation.RefLast:
			return s.at(len(s.Candidates))
		}
	}

	query := stringutil.Fold(stringutil.NormalizeWhitespace(trimmed))
	if query == "" {
		return nil, false
	}
	var match storage.Row
	for _, row := range s.Candidates {
		name := stringutil.Fold(row.String("nombre"))
		if name == query {
			return row, true
		}
		if strings.Contains(name, query) {
			if match != nil {
				return nil, false
			}
			match = row
		}
	}
	return match, match != nil
}

func (s *Selection) at(position int) (storage.Row, bool) {
	if position < 1 || position > len(s.Candidates) {
		return nil, false
	}
	return s.Candidates[position-1], true
}
