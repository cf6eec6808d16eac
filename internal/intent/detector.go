package intent

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/garyellow/school-records-go/internal/conversation"
	domerrors "github.com/garyellow/school-records-go/internal/errors"
	"github.com/garyellow/school-records-go/internal/genai"
	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/metrics"
	"github.com/garyellow/school-records-go/internal/sqltemplate"
	"github.com/garyellow/school-records-go/internal/storage"
)

// DefaultTimeout bounds one detection, retries included.
const DefaultTimeout = 15 * time.Second

// Detector turns an utterance into an Intent. It is stateless; all
// conversational state is read from the stack passed to Detect.
type Detector struct {
	generator genai.TextGenerator
	prompts   *PromptManager
	timeout   time.Duration
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) DetectorOption {
	return func(det *Detector) {
		if d > 0 {
			det.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) DetectorOption {
	return func(det *Detector) {
		if l != nil {
			det.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) DetectorOption {
	return func(det *Detector) { det.metrics = m }
}

// NewDetector creates a Detector. A nil generator makes every detection a
// transport failure.
func NewDetector(gen genai.TextGenerator, prompts *PromptManager, opts ...DetectorOption) *Detector {
	d := &Detector{
		generator: gen,
		prompts:   prompts,
		timeout:   DefaultTimeout,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithModule("intent")
	return d
}

// HasGenerator reports whether detections can reach a model.
func (d *Detector) HasGenerator() bool {
	return d.generator != nil
}

// Detect classifies utterance. It always returns an Intent; failures are
// reported through Intent.Failure:
//   - transport errors give conversacion_general with an apology in Reply
//   - unparsable replies give aclaracion_requerida
//   - unresolvable references give aclaracion_requerida
func (d *Detector) Detect(ctx context.Context, utterance string, stack *conversation.Stack) *Intent {
	var turns []conversation.Turn
	if stack != nil {
		turns = stack.Top(0)
	}
	prompt := d.prompts.Build(utterance, turns)

	in := d.classify(ctx, prompt)
	if in.Failure == "" {
		d.resolveReference(in, utterance, stack)
		fillFromUtterance(in, utterance)
		in = enforceIdentification(in)
	}

	d.metrics.RecordIntent(string(in.Kind), string(in.SubKind))
	d.logger.DebugContext(ctx, "intent detected",
		slog.String("kind", string(in.Kind)),
		slog.String("sub_kind", string(in.SubKind)),
		slog.Float64("confidence", in.Confidence),
		slog.String("reasoning", in.Reasoning),
		slog.String("failure", string(in.Failure)))
	return in
}

func (d *Detector) classify(ctx context.Context, prompt string) *Intent {
	if d.generator == nil {
		return transportFailure()
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	reply, err := d.generator.Generate(ctx, prompt)
	if err != nil {
		d.logger.WithError(err).WarnContext(ctx, "intent generation failed")
		return transportFailure()
	}

	in, err := ParseReply(reply)
	if err != nil {
		d.logger.WithError(err).WarnContext(ctx, "intent reply rejected",
			slog.Int("reply_length", len(reply)))
		return clarification(DefaultClarification, domerrors.KindParseFailure)
	}
	return in
}

// resolveReference fills ResolvedStudent from the top turn. A deterministic
// resolution always wins over the model's guess, and a model guess whose id
// is not in the top turn is dropped.
func (d *Detector) resolveReference(in *Intent, utterance string, stack *conversation.Stack) {
	if stack == nil {
		in.Entities.ResolvedStudent = nil
		return
	}

	wantsReference := in.Entities.DataSource == SourceConversacionPrevia ||
		(len(in.Entities.Names) == 0 && conversation.HasReference(utterance))

	if wantsReference {
		if r, ok := stack.ResolveReference(utterance); ok {
			in.Entities.ResolvedStudent = toResolved(r)
			in.Entities.DataSource = SourceConversacionPrevia
			return
		}
		if last, ok := stack.Last(); ok && len(last.Rows) == 1 && in.Entities.DataSource == SourceConversacionPrevia {
			in.Entities.ResolvedStudent = toResolved(conversation.Resolved{Row: last.Rows[0], Position: 1})
			return
		}
	}

	if rs := in.Entities.ResolvedStudent; rs != nil {
		if row, ok := topTurnRow(stack, rs.ID); ok {
			rs.Name = row.String("nombre")
		} else {
			in.Entities.ResolvedStudent = nil
		}
	}

	if wantsReference && in.Entities.ResolvedStudent == nil && len(in.Entities.Names) == 0 && needsStudent(in) {
		in.Failure = domerrors.KindAmbiguousReference
	}
}

func toResolved(r conversation.Resolved) *ResolvedStudent {
	id, _ := r.Row.ID()
	return &ResolvedStudent{ID: id, Name: r.Row.String("nombre"), Position: r.Position}
}

func topTurnRow(stack *conversation.Stack, id int64) (storage.Row, bool) {
	last, ok := stack.Last()
	if !ok {
		return nil, false
	}
	for _, row := range last.Rows {
		if rid, ok := row.ID(); ok && rid == id {
			return row, true
		}
	}
	return nil, false
}

// needsStudent reports intents that cannot proceed without a student or filter.
func needsStudent(in *Intent) bool {
	return in.Kind == KindConsultaAlumnos && in.SubKind != SubEstadisticas
}

// fillFromUtterance adds names and filters the deterministic extractors
// find when the model returned none.
func fillFromUtterance(in *Intent, utterance string) {
	if in.Kind != KindConsultaAlumnos || in.Identifies() {
		return
	}
	in.Entities.Filters = FiltersFromText(utterance)
	if name, _, ok := sqltemplate.ExtractName(utterance); ok {
		in.Entities.Names = []string{name}
	}
}

// FiltersFromText runs the template extractors over text.
func FiltersFromText(text string) []Filter {
	var out []Filter
	if g, ok := sqltemplate.ExtractGrade(text); ok {
		out = append(out, Filter{Field: "grado", Value: strconv.Itoa(g)})
	}
	if g, ok := sqltemplate.ExtractGroup(text); ok {
		out = append(out, Filter{Field: "grupo", Value: g})
	}
	if s, ok := sqltemplate.ExtractShift(text); ok {
		out = append(out, Filter{Field: "turno", Value: s})
	}
	if c, ok := sqltemplate.ExtractCURP(text); ok {
		out = append(out, Filter{Field: "curp", Value: c})
	}
	if m, ok := sqltemplate.ExtractMatricula(text); ok {
		out = append(out, Filter{Field: "matricula", Value: m})
	}
	if f, ok := sqltemplate.GradesFilter(text); ok {
		out = append(out, Filter{Field: "calificaciones", Value: f})
	}
	return out
}

// enforceIdentification turns a student query that names nobody into a
// clarification request. Statistics are exempt.
func enforceIdentification(in *Intent) *Intent {
	if in.Failure == domerrors.KindAmbiguousReference {
		return clarification(domerrors.DefaultMessage(domerrors.KindAmbiguousReference), domerrors.KindAmbiguousReference)
	}
	if !needsStudent(in) || in.Identifies() {
		return in
	}
	question := "¿De qué alumno o grupo necesitas la información? Puedes indicar un nombre, un grado y grupo o una CURP."
	if in.SubKind == SubGenerarConstancia {
		question = "¿Para qué alumno genero la constancia? Indica su nombre completo."
	}
	out := clarification(question, "")
	out.Confidence = in.Confidence
	out.Reasoning = strings.TrimSpace(in.Reasoning + " (sin alumno identificado)")
	return out
}
