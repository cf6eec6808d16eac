package sqltemplate

import (
	"context"
	"fmt"
	"strings"
	"time"

	domerrors "github.com/garyellow/school-records-go/internal/errors"
	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/metrics"
	"github.com/garyellow/school-records-go/internal/storage"
	"github.com/garyellow/school-records-go/internal/stringutil"
)

// numericParams are substituted unquoted and must be plain integers.
var numericParams = map[string]bool{"grado": true}

// Result is the outcome of one template execution.
type Result struct {
	Success  bool
	Rows     []storage.Row
	RowCount int
	Template string
	Params   map[string]string
	// SQL is the statement actually run. Logged, never shown to users.
	SQL     string
	Message string
	Kind    domerrors.Kind // Set when Success is false
}

// Err converts a failed result into a domain error; nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return &domerrors.Error{Kind: r.Kind, Op: "sqltemplate:" + r.Template, Message: r.Message}
}

// Executor selects templates and runs them against the store.
type Executor struct {
	registry *Registry
	store    storage.QueryExecutor
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewExecutor creates an executor. log and m may be nil.
func NewExecutor(registry *Registry, store storage.QueryExecutor, log *logger.Logger, m *metrics.Metrics) *Executor {
	if log == nil {
		log = logger.Discard()
	}
	return &Executor{registry: registry, store: store, logger: log.WithModule("sqltemplate"), metrics: m}
}

// Registry returns the template registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// RunQuery selects a template from free text with the ordered heuristic rules
// and runs it. When no rule matches the result has Kind no_match and no Template.
func (e *Executor) RunQuery(ctx context.Context, utterance string) Result {
	sel, ok := selectTemplate(utterance)
	if !ok {
		e.logger.DebugContext(ctx, "no template matched utterance",
			"utterance", stringutil.TruncateRunes(utterance, 80))
		return Result{
			Kind:    domerrors.KindNoMatch,
			Message: "No identifiqué qué alumnos buscas. Indica un nombre, una CURP, un grado o un grupo.",
		}
	}
	e.logger.DebugContext(ctx, "template selected by heuristics",
		"rule", sel.rule, "template", sel.template)
	return e.RunTemplate(ctx, sel.template, sel.params)
}

// RunTemplate runs a named template. Every declared parameter must be present
// and non-empty; extra parameters are ignored.
func (e *Executor) RunTemplate(ctx context.Context, name string, params map[string]string) Result {
	tpl, ok := e.registry.Get(name)
	if !ok {
		return Result{
			Template: name,
			Kind:     domerrors.KindInvalidInput,
			Message:  fmt.Sprintf("La consulta %q no existe.", name),
		}
	}

	query, used, err := render(tpl, params)
	if err != nil {
		return Result{
			Template: name,
			Params:   used,
			Kind:     domerrors.KindOf(err),
			Message:  domerrors.UserMessage(err),
		}
	}

	start := time.Now()
	rows, err := e.store.Execute(ctx, query)
	elapsed := time.Since(start)

	if err != nil {
		e.metrics.RecordTemplate(name, "error", elapsed.Seconds())
		e.logger.WithError(err).WarnContext(ctx, "template execution failed", "template", name)
		return Result{
			Template: name,
			Params:   used,
			SQL:      query,
			Kind:     domerrors.KindStoreError,
			Message:  storeMessage(err, query),
		}
	}

	if tpl.DecodesGrades {
		for _, row := range rows {
			decodeGrades(row)
		}
	}

	status := "success"
	if len(rows) == 0 {
		status = "no_rows"
	}
	e.metrics.RecordTemplate(name, status, elapsed.Seconds())
	e.logger.DebugContext(ctx, "template executed",
		"template", name, "rows", len(rows), "duration_ms", elapsed.Milliseconds())

	return Result{
		Success:  true,
		Rows:     rows,
		RowCount: len(rows),
		Template: name,
		Params:   used,
		SQL:      query,
	}
}

// render substitutes every declared parameter into the template SQL.
// String values are quote-escaped; LIKE templates also escape wildcards.
func render(tpl Template, params map[string]string) (string, map[string]string, error) {
	used := make(map[string]string, len(tpl.Parameters))
	query := tpl.SQL
	isLike := strings.Contains(strings.ToUpper(tpl.SQL), " LIKE ")

	for _, p := range tpl.Parameters {
		value := strings.TrimSpace(params[p])
		if value == "" {
			return "", used, fmt.Errorf("%w: %s", domerrors.ErrMissingParameter, p)
		}
		if numericParams[p] && !stringutil.IsNumeric(value) {
			return "", used, domerrors.New(domerrors.KindInvalidInput, "render",
				fmt.Sprintf("El valor %q no es un número válido para %s.", value, p))
		}
		used[p] = value

		escaped := strings.ReplaceAll(value, "'", "''")
		if isLike {
			escaped = escapeLike(escaped)
		}
		query = strings.ReplaceAll(query, "{"+p+"}", escaped)
	}
	return query, used, nil
}

// escapeLike escapes SQLite LIKE wildcards for use with ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// decodeGrades replaces the calificaciones JSON string with decoded entries.
// Undecodable or missing values become an empty slice.
func decodeGrades(row storage.Row) {
	raw, _ := row["calificaciones"].(string)
	row["calificaciones"] = storage.DecodeGrades(raw)
}

// storeMessage surfaces the adapter's error text without the executed SQL.
func storeMessage(err error, query string) string {
	msg := strings.ReplaceAll(err.Error(), query, "")
	return domerrors.DefaultMessage(domerrors.KindStoreError) + " (" + strings.TrimSpace(msg) + ")"
}
