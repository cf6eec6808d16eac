// Package alumnos routes student queries to SQL templates and the
// constancia service, and shapes the results into replies.
package alumnos

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/garyellow/school-records-go/internal/constancia"
	"github.com/garyellow/school-records-go/internal/conversation"
	domerrors "github.com/garyellow/school-records-go/internal/errors"
	"github.com/garyellow/school-records-go/internal/intent"
	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/preview"
	"github.com/garyellow/school-records-go/internal/sliceutil"
	"github.com/garyellow/school-records-go/internal/sqltemplate"
	"github.com/garyellow/school-records-go/internal/storage"
	"github.com/garyellow/school-records-go/internal/stringutil"
)

// Handler constants.
const (
	ModuleName      = "alumnos"
	DefaultPageSize = 50 // Rows listed in one reply
)

// Actions reported in Outcome.Action.
const (
	ActionDetail         = "detalle_alumno"
	ActionList           = "lista_alumnos"
	ActionStats          = "estadisticas"
	ActionSelect         = "seleccionar_alumno"
	ActionPreview        = "vista_previa_constancia"
	ActionNoMatch        = "sin_resultados"
	ActionRequestedField = "dato_alumno"
)

// Env carries session inputs the router needs beyond the intent.
type Env struct {
	Utterance string
	LoadedPDF string // Path of the PDF loaded in the session, if any
}

// Outcome is the router's reply. Failure is set only when the request could
// not be served; an empty result is a normal Outcome with no rows.
type Outcome struct {
	Text      string
	Data      storage.Row   // Single-student detail
	Rows      []storage.Row // Rows the reply was built from
	Action    string
	FilePath  string
	Awaiting  conversation.Awaiting
	Preview   *preview.Pending // Produced preview awaiting a decision
	Selection *Selection       // Set with Awaiting selection
	Failure   domerrors.Kind
}

// Handler routes consulta_alumnos and transformacion_pdf intents.
type Handler struct {
	executor    *sqltemplate.Executor
	constancias constancia.Service
	pageSize    int
	logger      *logger.Logger
}

// NewHandler creates a Handler. pageSize <= 0 selects DefaultPageSize.
func NewHandler(executor *sqltemplate.Executor, constancias constancia.Service, pageSize int, log *logger.Logger) *Handler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		executor:    executor,
		constancias: constancias,
		pageSize:    pageSize,
		logger:      log.WithModule(ModuleName),
	}
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

// DispatchIntent serves one intent.
//
// Supported sub-kinds:
//   - busqueda_simple, busqueda_compleja: template lookup, detail or list reply
//   - estadisticas: counting templates
//   - generar_constancia: preview for one student, or a selection when ambiguous
//   - transformacion_pdf: preview from the loaded PDF
func (h *Handler) DispatchIntent(ctx context.Context, in *intent.Intent, env Env) Outcome {
	h.logger.DebugContext(ctx, "dispatching intent",
		slog.String("kind", string(in.Kind)),
		slog.String("sub_kind", string(in.SubKind)))

	if in.Kind == intent.KindTransformacionPDF {
		return h.transformPDF(ctx, in, env)
	}

	switch in.SubKind {
	case intent.SubEstadisticas:
		return h.statistics(ctx, in, env)
	case intent.SubGenerarConstancia:
		return h.generateConstancia(ctx, in, env)
	default:
		return h.search(ctx, in, env)
	}
}

func (h *Handler) search(ctx context.Context, in *intent.Intent, env Env) Outcome {
	rows, res, ok := h.lookup(ctx, in, env)
	if !ok {
		return failure(res)
	}
	if field := in.Entities.RequestedField; field != "" {
		switch len(rows) {
		case 0:
			return noMatch()
		case 1:
			return requestedField(rows[0], field)
		default:
			return h.selection(in, rows)
		}
	}
	return h.shape(rows)
}

// shape renders rows as a detail, a list or a no-match reply.
func (h *Handler) shape(rows []storage.Row) Outcome {
	switch len(rows) {
	case 0:
		return noMatch()
	case 1:
		return Outcome{
			Text:   FormatStudent(rows[0]),
			Data:   rows[0],
			Rows:   rows,
			Action: ActionDetail,
		}
	default:
		return Outcome{
			Text:   FormatList(rows, h.pageSize),
			Rows:   rows,
			Action: ActionList,
		}
	}
}

// lookup runs the template the entities describe. A resolved student is
// fetched by name and matched by id; names try the exact template before the
// substring one; remaining filters narrow the rows.
func (h *Handler) lookup(ctx context.Context, in *intent.Intent, env Env) ([]storage.Row, sqltemplate.Result, bool) {
	e := in.Entities

	if rs := e.ResolvedStudent; rs != nil {
		res := h.executor.RunTemplate(ctx, sqltemplate.BuscarAlumnoExacto, map[string]string{"nombre": rs.Name})
		if !res.Success {
			return nil, res, false
		}
		for _, row := range res.Rows {
			if id, ok := row.ID(); ok && id == rs.ID {
				return []storage.Row{row}, res, true
			}
		}
		return nil, res, true
	}

	if len(e.Names) > 0 {
		var rows []storage.Row
		for _, name := range e.Names {
			res := h.searchName(ctx, name)
			if !res.Success {
				return nil, res, false
			}
			rows = appendUnique(rows, res.Rows)
		}
		return applyFilters(rows, e.Filters), sqltemplate.Result{Success: true}, true
	}

	if name, params, ok := templateFromEntities(e); ok {
		res := h.executor.RunTemplate(ctx, name, params)
		return res.Rows, res, res.Success
	}

	res := h.executor.RunQuery(ctx, env.Utterance)
	if res.Kind == domerrors.KindNoMatch && res.Template == "" {
		return nil, res, false
	}
	return res.Rows, res, res.Success
}

// searchName tries buscar_alumno_exacto first and falls back to the
// substring search when nothing matched exactly. Each stage is retried with
// accents removed ("García" finds "GARCIA").
func (h *Handler) searchName(ctx context.Context, name string) sqltemplate.Result {
	name = strings.TrimSpace(name)
	variants := []string{name}
	if folded := stringutil.FoldAccents(name); folded != name {
		variants = append(variants, folded)
	}

	var res sqltemplate.Result
	for _, tpl := range []string{sqltemplate.BuscarAlumnoExacto, sqltemplate.BuscarAlumno} {
		for _, v := range variants {
			res = h.executor.RunTemplate(ctx, tpl, map[string]string{"nombre": v})
			if !res.Success || res.RowCount > 0 {
				return res
			}
		}
	}
	return res
}

// templateFromEntities maps filters onto the most specific template.
func templateFromEntities(e intent.Entities) (string, map[string]string, bool) {
	if v, ok := e.Filter("curp"); ok {
		return sqltemplate.BuscarPorCURP, map[string]string{"curp": strings.ToUpper(v)}, true
	}
	if v, ok := e.Filter("matricula"); ok {
		return sqltemplate.BuscarPorMatricula, map[string]string{"matricula": strings.ToUpper(v)}, true
	}

	grade, hasGrade := gradeFilter(e)
	group, hasGroup := e.Filter("grupo")
	shift, hasShift := shiftFilter(e)
	group = strings.ToUpper(group)

	switch {
	case hasGrade && hasGroup:
		return sqltemplate.FiltrarGradoGrupo, map[string]string{"grado": grade, "grupo": group}, true
	case hasGrade && hasShift:
		return sqltemplate.FiltrarGradoTurno, map[string]string{"grado": grade, "turno": shift}, true
	case hasGrade:
		return sqltemplate.FiltrarPorGrado, map[string]string{"grado": grade}, true
	case hasGroup:
		return sqltemplate.FiltrarPorGrupo, map[string]string{"grupo": group}, true
	case hasShift:
		return sqltemplate.FiltrarPorTurno, map[string]string{"turno": shift}, true
	}

	if v, ok := e.Filter("calificaciones"); ok {
		switch stringutil.Fold(v) {
		case "con", "si", "true":
			return sqltemplate.AlumnosConCalificaciones, nil, true
		case "sin", "no", "false":
			return sqltemplate.AlumnosSinCalificaciones, nil, true
		}
	}
	return "", nil, false
}

func gradeFilter(e intent.Entities) (string, bool) {
	v, ok := e.Filter("grado")
	if !ok {
		return "", false
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 1 && n <= 6 {
		return strconv.Itoa(n), true
	}
	if n, ok := sqltemplate.ExtractGrade(v + " grado"); ok {
		return strconv.Itoa(n), true
	}
	return "", false
}

func shiftFilter(e intent.Entities) (string, bool) {
	v, ok := e.Filter("turno")
	if !ok {
		return "", false
	}
	switch stringutil.Fold(strings.TrimSpace(v)) {
	case "matutino", "manana":
		return sqltemplate.ShiftMorning, true
	case "vespertino", "tarde":
		return sqltemplate.ShiftAfternoon, true
	}
	return "", false
}

// applyFilters keeps rows matching every grade, group and shift filter.
func applyFilters(rows []storage.Row, filters []intent.Filter) []storage.Row {
	e := intent.Entities{Filters: filters}
	grade, hasGrade := gradeFilter(e)
	group, hasGroup := e.Filter("grupo")
	shift, hasShift := shiftFilter(e)
	if !hasGrade && !hasGroup && !hasShift {
		return rows
	}

	out := rows[:0:0]
	for _, row := range rows {
		if hasGrade && row.String("grado") != grade {
			continue
		}
		if hasGroup && !strings.EqualFold(row.String("grupo"), group) {
			continue
		}
		if hasShift && row.String("turno") != shift {
			continue
		}
		out = append(out, row)
	}
	return out
}

func appendUnique(dst, rows []storage.Row) []storage.Row {
	return sliceutil.Deduplicate(append(dst, rows...), storage.Row.ID)
}

func (h *Handler) statistics(ctx context.Context, in *intent.Intent, env Env) Outcome {
	e := in.Entities
	if name, params, ok := templateFromEntities(e); ok {
		res := h.executor.RunTemplate(ctx, name, params)
		if !res.Success {
			return failure(res)
		}
		return Outcome{Text: FormatFilteredCount(len(res.Rows), e), Action: ActionStats}
	}

	name := sqltemplate.ContarAlumnosTotal
	if sqltemplate.HasGradeWord(env.Utterance) || strings.Contains(stringutil.Fold(env.Utterance), "por grado") {
		name = sqltemplate.EstadisticasPorGrado
	}
	res := h.executor.RunTemplate(ctx, name, nil)
	if !res.Success {
		return failure(res)
	}
	if name == sqltemplate.EstadisticasPorGrado {
		return Outcome{Text: FormatGradeStats(res.Rows), Action: ActionStats}
	}
	total := 0
	if len(res.Rows) > 0 {
		n, _ := res.Rows[0].Int64("total")
		total = int(n)
	}
	return Outcome{Text: FormatTotal(total), Action: ActionStats}
}

func (h *Handler) generateConstancia(ctx context.Context, in *intent.Intent, env Env) Outcome {
	if rs := in.Entities.ResolvedStudent; rs != nil {
		return h.GenerateForStudent(ctx, rs.ID, in.Entities)
	}

	rows, res, ok := h.lookup(ctx, in, env)
	if !ok {
		return failure(res)
	}
	switch len(rows) {
	case 0:
		return noMatch()
	case 1:
		id, ok := rows[0].ID()
		if !ok {
			return noMatch()
		}
		return h.GenerateForStudent(ctx, id, in.Entities)
	default:
		return h.selection(in, rows)
	}
}

// GenerateForStudent renders a preview constancia for one student.
func (h *Handler) GenerateForStudent(ctx context.Context, id int64, e intent.Entities) Outcome {
	typ := constanciaType(e)
	res, err := h.constancias.GenerateFromStudent(ctx, id, typ, e.IncludePhoto, true)
	if err != nil {
		h.logger.WithError(err).WarnContext(ctx, "constancia generation failed", slog.Int64("alumno_id", id))
		return Outcome{Text: domerrors.UserMessage(err), Failure: failureKind(err)}
	}

	var rows []storage.Row
	if res.Data != nil {
		rows = []storage.Row{res.Data}
	}
	return Outcome{
		Text:     res.Message + "\n\n" + preview.PromptText,
		Data:     res.Data,
		Rows:     rows,
		Action:   ActionPreview,
		FilePath: res.Path,
		Awaiting: conversation.AwaitingConfirmation,
		Preview: &preview.Pending{
			TempPDFPath:  res.Path,
			Original:     preview.OriginalContext{StudentID: id, Data: res.Data},
			Type:         typ,
			IncludePhoto: e.IncludePhoto,
		},
	}
}

func (h *Handler) transformPDF(ctx context.Context, in *intent.Intent, env Env) Outcome {
	if env.LoadedPDF == "" {
		return Outcome{
			Text:    "Primero carga un PDF de constancia para poder transformarlo.",
			Failure: domerrors.KindMissingParameter,
		}
	}

	typ := constanciaType(in.Entities)
	res, err := h.constancias.GenerateFromPDF(ctx, env.LoadedPDF, typ, in.Entities.IncludePhoto, false, true)
	if err != nil {
		h.logger.WithError(err).WarnContext(ctx, "pdf transformation failed")
		return Outcome{Text: domerrors.UserMessage(err), Failure: failureKind(err)}
	}

	return Outcome{
		Text:     res.Message + "\n\n" + preview.PromptText,
		Data:     res.Data,
		Action:   ActionPreview,
		FilePath: res.Path,
		Awaiting: conversation.AwaitingConfirmation,
		Preview: &preview.Pending{
			TempPDFPath:  res.Path,
			Original:     preview.OriginalContext{SourcePDF: env.LoadedPDF, Data: res.Data},
			Type:         typ,
			IncludePhoto: in.Entities.IncludePhoto,
		},
	}
}

// selection offers the rows shown in the reply; only those can be picked.
func (h *Handler) selection(in *intent.Intent, rows []storage.Row) Outcome {
	shown := rows
	if len(shown) > h.pageSize {
		shown = shown[:h.pageSize]
	}
	sel := &Selection{Candidates: shown, Intent: *in}
	return Outcome{
		Text:      FormatSelection(rows, h.pageSize),
		Rows:      rows,
		Action:    ActionSelect,
		Awaiting:  conversation.AwaitingSelection,
		Selection: sel,
	}
}

// Select continues an intent after the user picked one candidate.
func (h *Handler) Select(ctx context.Context, sel *Selection, row storage.Row) Outcome {
	if sel.Intent.SubKind == intent.SubGenerarConstancia {
		id, ok := row.ID()
		if !ok {
			return noMatch()
		}
		return h.GenerateForStudent(ctx, id, sel.Intent.Entities)
	}
	if field := sel.Intent.Entities.RequestedField; field != "" {
		return requestedField(row, field)
	}
	return h.shape([]storage.Row{row})
}

func constanciaType(e intent.Entities) constancia.Type {
	if e.ConstanciaType.Valid() {
		return e.ConstanciaType
	}
	return constancia.DefaultType
}

func requestedField(row storage.Row, field string) Outcome {
	return Outcome{
		Text:   FormatField(row, field),
		Data:   row,
		Rows:   []storage.Row{row},
		Action: ActionRequestedField,
	}
}

func noMatch() Outcome {
	return Outcome{Text: domerrors.DefaultMessage(domerrors.KindNoMatch), Action: ActionNoMatch}
}

func failure(res sqltemplate.Result) Outcome {
	kind := res.Kind
	if kind == "" {
		kind = domerrors.KindInternal
	}
	text := res.Message
	if text == "" {
		text = domerrors.DefaultMessage(kind)
	}
	return Outcome{Text: text, Failure: kind}
}

func failureKind(err error) domerrors.Kind {
	return domerrors.KindOf(err)
}
