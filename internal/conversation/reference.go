package conversation

import (
	"strconv"
	"strings"

	"github.com/garyellow/school-records-go/internal/stringutil"
)

// RefKind classifies a reference expression.
type RefKind int

const (
	RefPosition RefKind = iota // "el segundo", "el número 3", "#2"
	RefLast                    // "el último"
	RefPronoun                 // "él", "ella", "ese alumno"
)

// Reference is a parsed reference expression.
type Reference struct {
	Kind     RefKind
	Position int // 1-based, only for RefPosition
}

var ordinalPositions = map[string]int{
	"primero": 1, "primera": 1, "primer": 1,
	"segundo": 2, "segunda": 2,
	"tercero": 3, "tercera": 3, "tercer": 3,
	"cuarto": 4, "cuarta": 4,
	"quinto": 5, "quinta": 5,
	"sexto": 6, "sexta": 6,
	"septimo": 7, "septima": 7,
	"octavo": 8, "octava": 8,
	"noveno": 9, "novena": 9,
	"decimo": 10, "decima": 10,
}

var lastWords = map[string]bool{"ultimo": true, "ultima": true}

// Demonstratives count as pronouns only when followed by a student noun
// ("ese alumno") or standing alone at the end ("genera una para esa").
var (
	pronouns      = map[string]bool{"ella": true, "dicho": true, "dicha": true, "mismo": true, "misma": true}
	demonstrative = map[string]bool{"ese": true, "esa": true, "este": true, "esta": true, "aquel": true, "aquella": true}
	studentNouns  = map[string]bool{"alumno": true, "alumna": true, "estudiante": true, "nino": true, "nina": true}
	numberMarkers = map[string]bool{"numero": true, "num": true, "no": true, "opcion": true, "el": true, "la": true}
)

// ParseReference recognises positional and pronominal references.
//
// Example:
//
//	ParseReference("dame la constancia del segundo") returns {RefPosition, 2}
//	ParseReference("genera una para él") returns {RefPronoun, 0}
func ParseReference(expr string) (Reference, bool) {
	raw := stringutil.Words(strings.ToLower(expr))
	if len(raw) == 0 {
		return Reference{}, false
	}
	folded := make([]string, len(raw))
	for i, w := range raw {
		folded[i] = stringutil.FoldAccents(w)
	}

	for i, w := range folded {
		if p, ok := ordinalPositions[w]; ok && !nextToGrade(folded, i) {
			return Reference{Kind: RefPosition, Position: p}, true
		}
		if lastWords[w] {
			return Reference{Kind: RefLast}, true
		}
		if numberMarkers[w] && i+1 < len(folded) && stringutil.IsNumeric(folded[i+1]) {
			if p, err := strconv.Atoi(folded[i+1]); err == nil {
				return Reference{Kind: RefPosition, Position: p}, true
			}
		}
	}
	if strings.Contains(expr, "#") {
		for _, w := range folded {
			if p, err := strconv.Atoi(w); err == nil {
				return Reference{Kind: RefPosition, Position: p}, true
			}
		}
	}

	for i, w := range folded {
		switch {
		case raw[i] == "él":
			return Reference{Kind: RefPronoun}, true
		case pronouns[w]:
			return Reference{Kind: RefPronoun}, true
		case demonstrative[w] && i+1 < len(folded) && studentNouns[folded[i+1]]:
			return Reference{Kind: RefPronoun}, true
		case demonstrative[w] && i == len(folded)-1:
			return Reference{Kind: RefPronoun}, true
		}
	}
	// "para el" at the end is almost always "para él" typed without the accent.
	if n := len(raw); n >= 2 && raw[n-1] == "el" && (raw[n-2] == "para" || raw[n-2] == "de") {
		return Reference{Kind: RefPronoun}, true
	}
	return Reference{}, false
}

// nextToGrade reports "segundo grado" or "grado segundo", which name a grade.
func nextToGrade(words []string, i int) bool {
	if i+1 < len(words) && (words[i+1] == "grado" || (words[i+1] == "de" && i+2 < len(words) && words[i+2] == "grado")) {
		return true
	}
	return i > 0 && words[i-1] == "grado"
}

// HasReference reports whether expr contains a reference expression.
func HasReference(expr string) bool {
	_, ok := ParseReference(expr)
	return ok
}
