// Package sqltemplate holds the catalogue of named SQL templates and the
// executor that turns an utterance or an explicit template call into rows.
package sqltemplate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	domerrors "github.com/garyellow/school-records-go/internal/errors"
)

// Template is a named parameterized SQL statement with {name} placeholders.
type Template struct {
	Name               string
	Description        string
	SQL                string
	Parameters         []string
	ReturnsMultiple    bool
	RequiresExactMatch bool
	// DecodesGrades marks templates whose rows carry a calificaciones JSON column.
	DecodesGrades bool
}

// Entry is the public view of a template used for help text.
type Entry struct {
	Name        string
	Description string
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders returns the distinct placeholder names in sql, sorted.
func Placeholders(sql string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(sql, -1) {
		if _, ok := seen[m[1]]; !ok {
			seen[m[1]] = struct{}{}
			names = append(names, m[1])
		}
	}
	slices.Sort(names)
	return names
}

// Validate checks that the placeholder set equals the declared parameter set.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return domerrors.NewValidationError("name", "template name is empty")
	}
	if strings.TrimSpace(t.SQL) == "" {
		return domerrors.NewValidationError(t.Name, "template SQL is empty")
	}

	declared := slices.Clone(t.Parameters)
	slices.Sort(declared)
	if len(slices.Compact(slices.Clone(declared))) != len(declared) {
		return domerrors.NewValidationError(t.Name, "duplicate parameter declared")
	}

	found := Placeholders(t.SQL)
	if !slices.Equal(found, declared) {
		return domerrors.NewValidationError(t.Name,
			fmt.Sprintf("placeholders %v do not match parameters %v", found, declared))
	}
	return nil
}

// Registry is an immutable, validated set of templates.
type Registry struct {
	templates map[string]*Template
	order     []string
}

// NewRegistry validates every template and rejects duplicate names.
// Any violation is returned as an error and the registry is not built.
func NewRegistry(templates []Template) (*Registry, error) {
	r := &Registry{templates: make(map[string]*Template, len(templates))}
	for i := range templates {
		t := templates[i]
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
		if _, dup := r.templates[t.Name]; dup {
			return nil, fmt.Errorf("invalid template: %w",
				domerrors.NewValidationError(t.Name, "duplicate template name"))
		}
		t.Parameters = slices.Clone(t.Parameters)
		r.templates[t.Name] = &t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

// DefaultRegistry builds the registry from the built-in catalogue.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(Catalog())
}

// MustDefaultRegistry is DefaultRegistry for process start; it panics on an invalid catalogue.
func MustDefaultRegistry() *Registry {
	r, err := DefaultRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the template by name.
func (r *Registry) Get(name string) (Template, bool) {
	t, ok := r.templates[name]
	if !ok {
		return Template{}, false
	}
	return *t, true
}

// Enumerate lists templates in catalogue order.
func (r *Registry) Enumerate() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Entry{Name: name, Description: r.templates[name].Description})
	}
	return out
}

// Len returns the number of templates.
func (r *Registry) Len() int {
	return len(r.order)
}
