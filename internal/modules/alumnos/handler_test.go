package alumnos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/school-records-go/internal/constancia"
	"github.com/garyellow/school-records-go/internal/conversation"
	domerrors "github.com/garyellow/school-records-go/internal/errors"
	"github.com/garyellow/school-records-go/internal/intent"
	"github.com/garyellow/school-records-go/internal/sqltemplate"
	"github.com/garyellow/school-records-go/internal/storage"
)

type call struct {
	id      int64
	pdf     string
	typ     constancia.Type
	persist bool
	preview bool
}

type fakeConstancias struct {
	calls []call
	err   error
}

func (f *fakeConstancias) GenerateFromStudent(_ context.Context, id int64, typ constancia.Type, _, preview bool) (constancia.Result, error) {
	f.calls = append(f.calls, call{id: id, typ: typ, preview: preview})
	if f.err != nil {
		return constancia.Result{}, f.err
	}
	return constancia.Result{OK: true, Path: "/tmp/preview.pdf", Data: storage.Row{"id": id, "nombre": "ALUMNO"}, Message: "Constancia generada."}, nil
}

func (f *fakeConstancias) GenerateFromPDF(_ context.Context, path string, typ constancia.Type, _, persist, preview bool) (constancia.Result, error) {
	f.calls = append(f.calls, call{pdf: path, typ: typ, persist: persist, preview: preview})
	if f.err != nil {
		return constancia.Result{}, f.err
	}
	return constancia.Result{OK: true, Path: "/tmp/from_pdf.pdf", Data: storage.Row{"nombre": "DEL PDF"}, Message: "Constancia generada."}, nil
}

func setupHandler(t *testing.T) (*Handler, *fakeConstancias, *storage.DB) {
	t.Helper()
	db, err := storage.NewSeededTestDB(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	exec := sqltemplate.NewExecutor(sqltemplate.MustDefaultRegistry(), db, nil, nil)
	svc := &fakeConstancias{}
	return NewHandler(exec, svc, 0, nil), svc, db
}

func query(sub intent.SubKind, e intent.Entities) *intent.Intent {
	return &intent.Intent{Kind: intent.KindConsultaAlumnos, SubKind: sub, Entities: e}
}

func TestSearchExactName(t *testing.T) {
	t.Parallel()
	h, _, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(),
		query(intent.SubBusquedaSimple, intent.Entities{Names: []string{"ELENA JIMENEZ HERNANDEZ"}}), Env{})

	assert.Empty(t, out.Failure)
	assert.Equal(t, ActionDetail, out.Action)
	require.NotNil(t, out.Data)
	assert.Equal(t, "ELENA JIMENEZ HERNANDEZ", out.Data.String("nombre"))
	assert.Contains(t, out.Text, "CURP: JIHE100512MDFMRLA5")
	assert.Contains(t, out.Text, "Grado y grupo: 3° A")
	assert.Contains(t, out.Text, "Calificaciones: ESPAÑOL 9.1, MATEMÁTICAS 8.7")
	assert.Len(t, out.Rows, 1)
}

func TestSearchFallsBackToSubstring(t *testing.T) {
	t.Parallel()
	h, _, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(),
		query(intent.SubBusquedaSimple, intent.Entities{Names: []string{"juan garcia"}}), Env{})

	assert.Equal(t, ActionList, out.Action)
	require.Len(t, out.Rows, 2)
	assert.Contains(t, out.Text, "Encontré 2 alumnos")
	assert.Contains(t, out.Text, "1. JUAN GARCIA LOPEZ (2° B, VESPERTINO)")
	assert.Contains(t, out.Text, "2. JUAN GARCIA MARTINEZ (2° A, MATUTINO)")
}

func TestSearchByFilters(t *testing.T) {
	t.Parallel()
	h, _, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(), query(intent.SubBusquedaCompleja, intent.Entities{
		Filters: []intent.Filter{{Field: "grado", Value: "2"}, {Field: "grupo", Value: "a"}},
	}), Env{})

	require.Len(t, out.Rows, 2)
	assert.Equal(t, "JUAN GARCIA MARTINEZ", out.Rows[0].String("nombre"))
	assert.Equal(t, "SOFIA RODRIGUEZ PEREZ", out.Rows[1].String("nombre"))
}

func TestSearchNameNarrowedByFilter(t *testing.T) {
	t.Parallel()
	h, _, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(), query(intent.SubBusquedaCompleja, intent.Entities{
		Names:   []string{"JUAN GARCIA"},
		Filters: []intent.Filter{{Field: "turno", Value: "vespertino"}},
	}), Env{})

	assert.Equal(t, ActionDetail, out.Action)
	assert.Equal(t, "JUAN GARCIA LOPEZ", out.Data.String("nombre"))
}

func TestSearchHeuristicFallback(t *testing.T) {
	t.Parallel()
	h, _, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(), query(intent.SubBusquedaSimple, intent.Entities{}),
		Env{Utterance: "alumnos del turno vespertino"})

	require.Len(t, out.Rows, 1)
	assert.Equal(t, "JUAN GARCIA LOPEZ", out.Rows[0].String("nombre"))
}

func TestSearchNoMatch(t *testing.T) {
	t.Parallel()
	h, _, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(),
		query(intent.SubBusquedaSimple, intent.Entities{Names: []string{"PEDRO INFANTE"}}), Env{})

	assert.Empty(t, out.Failure)
	assert.Empty(t, out.Rows)
	assert.Equal(t, ActionNoMatch, out.Action)
	assert.Equal(t, domerrors.DefaultMessage(domerrors.KindNoMatch), out.Text)
}

func TestSearchStoreError(t *testing.T) {
	t.Parallel()
	h, _, db := setupHandler(t)
	require.NoError(t, db.Close())

	out := h.DispatchIntent(context.Background(),
		query(intent.SubBusquedaSimple, intent.Entities{Names: []string{"ELENA"}}), Env{})

	assert.Equal(t, domerrors.KindStoreError, out.Failure)
	assert.NotContains(t, out.Text, "SELECT")
}

func TestRequestedField(t *testing.T) {
	t.Parallel()
	h, _, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(), query(intent.SubBusquedaSimple, intent.Entities{
		Names: []string{"ELENA JIMENEZ HERNANDEZ"}, RequestedField: "curp",
	}), Env{})

	assert.Equal(t, ActionRequestedField, out.Action)
	assert.Equal(t, "La CURP de ELENA JIMENEZ HERNANDEZ: JIHE100512MDFMRLA5", out.Text)
}

func TestRequestedFieldWithSeveralMatchesAsksToChoose(t *testing.T) {
	t.Parallel()
	h, _, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(), query(intent.SubBusquedaSimple, intent.Entities{
		Names: []string{"JUAN GARCIA"}, RequestedField: "matricula",
	}), Env{})

	assert.Equal(t, conversation.AwaitingSelection, out.Awaiting)
	require.NotNil(t, out.Selection)

	row, ok := out.Selection.Choose("el segundo")
	require.True(t, ok)
	next := h.Select(context.Background(), out.Selection, row)
	assert.Equal(t, "La matrícula de JUAN GARCIA MARTINEZ: A2020014", next.Text)
}

func TestStatistics(t *testing.T) {
	t.Parallel()
	h, _, _ := setupHandler(t)
	ctx := context.Background()

	total := h.DispatchIntent(ctx, query(intent.SubEstadisticas, intent.Entities{}), Env{Utterance: "¿cuántos alumnos hay?"})
	assert.Equal(t, "Hay 4 alumnos registrados.", total.Text)
	assert.Empty(t, total.Rows)

	byGrade := h.DispatchIntent(ctx, query(intent.SubEstadisticas, intent.Entities{}), Env{Utterance: "alumnos por grado"})
	assert.Contains(t, byGrade.Text, "• 2°: 3")
	assert.Contains(t, byGrade.Text, "• 3°: 1")
	assert.Contains(t, byGrade.Text, "Total: 4")

	second := h.DispatchIntent(ctx, query(intent.SubEstadisticas, intent.Entities{
		Filters: []intent.Filter{{Field: "grado", Value: "2"}},
	}), Env{Utterance: "¿cuántos hay en segundo?"})
	assert.Equal(t, "Hay 3 alumnos en 2° grado.", second.Text)

	filtered := []struct {
		name    string
		filters []intent.Filter
		want    string
	}{
		{"shift only", []intent.Filter{{Field: "turno", Value: "vespertino"}}, "Hay 1 alumno en turno vespertino."},
		{"group only", []intent.Filter{{Field: "grupo", Value: "b"}}, "Hay 1 alumno en grupo B."},
		{"grade and group", []intent.Filter{{Field: "grado", Value: "2"}, {Field: "grupo", Value: "A"}}, "Hay 2 alumnos en 2° grado grupo A."},
		{"grade and shift", []intent.Filter{{Field: "grado", Value: "2"}, {Field: "turno", Value: "matutino"}}, "Hay 2 alumnos en 2° grado turno matutino."},
	}
	for _, tt := range filtered {
		t.Run(tt.name, func(t *testing.T) {
			out := h.DispatchIntent(ctx, query(intent.SubEstadisticas, intent.Entities{Filters: tt.filters}),
				Env{Utterance: "¿cuántos alumnos hay?"})
			assert.Equal(t, tt.want, out.Text)
			assert.Equal(t, ActionStats, out.Action)
		})
	}
}

func TestGenerateConstanciaForResolvedStudent(t *testing.T) {
	t.Parallel()
	h, svc, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(), query(intent.SubGenerarConstancia, intent.Entities{
		ResolvedStudent: &intent.ResolvedStudent{ID: 4, Name: "SOFIA RODRIGUEZ PEREZ", Position: 2},
	}), Env{})

	require.Len(t, svc.calls, 1)
	assert.Equal(t, call{id: 4, typ: constancia.TypeEstudio, preview: true}, svc.calls[0])
	require.NotNil(t, out.Preview)
	assert.Equal(t, "/tmp/preview.pdf", out.Preview.TempPDFPath)
	assert.Equal(t, int64(4), out.Preview.Original.StudentID)
	assert.Equal(t, conversation.AwaitingConfirmation, out.Awaiting)
	assert.Contains(t, out.Text, "1. Guardar el archivo")
}

func TestGenerateConstanciaAmbiguousName(t *testing.T) {
	t.Parallel()
	h, svc, _ := setupHandler(t)

	out := h.DispatchIntent(context.Background(), query(intent.SubGenerarConstancia, intent.Entities{
		Names: []string{"JUAN GARCIA"}, ConstanciaType: constancia.TypeCalificaciones,
	}), Env{})

	assert.Empty(t, svc.calls)
	assert.Equal(t, ActionSelect, out.Action)
	assert.Equal(t, conversation.AwaitingSelection, out.Awaiting)
	require.NotNil(t, out.Selection)
	assert.Len(t, out.Selection.Candidates, 2)
	assert.Contains(t, out.Text, "¿Cuál de ellos?")

	row, ok := out.Selection.Choose("2")
	require.True(t, ok)
	id, _ := row.ID()

	next := h.Select(context.Background(), out.Selection, row)
	require.NotNil(t, next.Preview)
	require.Len(t, svc.calls, 1)
	assert.Equal(t, id, svc.calls[0].id)
	assert.Equal(t, constancia.TypeCalificaciones, svc.calls[0].typ)
}

func TestGenerateConstanciaUnknownStudent(t *testing.T) {
	t.Parallel()
	h, svc, _ := setupHandler(t)
	svc.err = domerrors.Wrap(domerrors.ErrNotFound, domerrors.KindNoMatch, "generate_from_student", "No encontré al alumno con id 99.")

	out := h.DispatchIntent(context.Background(), query(intent.SubGenerarConstancia, intent.Entities{
		ResolvedStudent: &intent.ResolvedStudent{ID: 99},
	}), Env{})

	assert.Equal(t, domerrors.KindNoMatch, out.Failure)
	assert.Equal(t, "No encontré al alumno con id 99.", out.Text)
	assert.Nil(t, out.Preview)
}

func TestTransformPDF(t *testing.T) {
	t.Parallel()
	h, svc, _ := setupHandler(t)
	in := &intent.Intent{Kind: intent.KindTransformacionPDF, SubKind: intent.SubTransformacionPDF,
		Entities: intent.Entities{ConstanciaType: constancia.TypeTraslado}}

	missing := h.DispatchIntent(context.Background(), in, Env{})
	assert.Equal(t, domerrors.KindMissingParameter, missing.Failure)
	assert.Empty(t, svc.calls)

	out := h.DispatchIntent(context.Background(), in, Env{LoadedPDF: "/in/archivo.pdf"})
	require.Len(t, svc.calls, 1)
	assert.Equal(t, call{pdf: "/in/archivo.pdf", typ: constancia.TypeTraslado, preview: true}, svc.calls[0])
	require.NotNil(t, out.Preview)
	assert.Equal(t, "/in/archivo.pdf", out.Preview.Original.SourcePDF)
}

func TestTemplateFromEntities(t *testing.T) {
	t.Parallel()
	f := func(pairs ...string) intent.Entities {
		var e intent.Entities
		for i := 0; i+1 < len(pairs); i += 2 {
			e.Filters = append(e.Filters, intent.Filter{Field: pairs[i], Value: pairs[i+1]})
		}
		return e
	}
	tests := []struct {
		name     string
		entities intent.Entities
		template string
		params   map[string]string
	}{
		{"curp", f("curp", "jihe100512mdfmrla5"), sqltemplate.BuscarPorCURP, map[string]string{"curp": "JIHE100512MDFMRLA5"}},
		{"matricula", f("matricula", "a2019001"), sqltemplate.BuscarPorMatricula, map[string]string{"matricula": "A2019001"}},
		{"grade and group", f("grado", "3", "grupo", "b"), sqltemplate.FiltrarGradoGrupo, map[string]string{"grado": "3", "grupo": "B"}},
		{"ordinal grade", f("grado", "2do"), sqltemplate.FiltrarPorGrado, map[string]string{"grado": "2"}},
		{"grade and shift", f("grado", "1", "turno", "mañana"), sqltemplate.FiltrarGradoTurno, map[string]string{"grado": "1", "turno": "MATUTINO"}},
		{"group only", f("grupo", "C"), sqltemplate.FiltrarPorGrupo, map[string]string{"grupo": "C"}},
		{"shift only", f("turno", "Vespertino"), sqltemplate.FiltrarPorTurno, map[string]string{"turno": "VESPERTINO"}},
		{"with grades", f("calificaciones", "con"), sqltemplate.AlumnosConCalificaciones, nil},
		{"without grades", f("calificaciones", "sin"), sqltemplate.AlumnosSinCalificaciones, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, params, ok := templateFromEntities(tt.entities)
			require.True(t, ok)
			assert.Equal(t, tt.template, name)
			assert.Equal(t, tt.params, params)
		})
	}

	if _, _, ok := templateFromEntities(f("grado", "nueve")); ok {
		t.Error("templateFromEntities accepted an invalid grade")
	}
}

func TestSelectionOffersOnlyShownRows(t *testing.T) {
	t.Parallel()
	_, svc, db := setupHandler(t)
	exec := sqltemplate.NewExecutor(sqltemplate.MustDefaultRegistry(), db, nil, nil)
	h := NewHandler(exec, svc, 1, nil)

	out := h.DispatchIntent(context.Background(), query(intent.SubGenerarConstancia, intent.Entities{
		Names: []string{"JUAN GARCIA"},
	}), Env{})

	require.NotNil(t, out.Selection)
	assert.Len(t, out.Selection.Candidates, 1)
	assert.Contains(t, out.Text, "Solo puedes elegir entre los 1 mostrados")
	assert.Empty(t, svc.calls)

	_, ok := out.Selection.Choose("2")
	assert.False(t, ok, "a row that was not listed must not be selectable")
	_, ok = out.Selection.Choose("1")
	assert.True(t, ok)
}

func TestSelectionChoose(t *testing.T) {
	t.Parallel()
	sel := &Selection{Candidates: []storage.Row{
		{"id": int64(2), "nombre": "JUAN GARCIA MARTINEZ"},
		{"id": int64(3), "nombre": "JUAN GARCIA LOPEZ"},
	}}
	tests := []struct {
		in     string
		wantID int64
		ok     bool
	}{
		{"1", 2, true},
		{"2.", 3, true},
		{"el último", 3, true},
		{"juan garcía lópez", 3, true},
		{"martinez", 2, true},
		{"juan", 0, false},
		{"7", 0, false},
	}
	for _, tt := range tests {
		row, ok := sel.Choose(tt.in)
		if ok != tt.ok {
			t.Errorf("Choose(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok {
			id, _ := row.ID()
			assert.Equal(t, tt.wantID, id, tt.in)
		}
	}

	assert.True(t, IsCancel("cancelar"))
	assert.True(t, IsCancel("ninguno de esos"))
	assert.False(t, IsCancel("el primero"))
}

func TestFormatListTruncates(t *testing.T) {
	t.Parallel()
	rows := []storage.Row{{"nombre": "A"}, {"nombre": "B"}, {"nombre": "C"}}
	text := FormatList(rows, 2)
	assert.Contains(t, text, "Encontré 3 alumnos")
	assert.Contains(t, text, "2. B")
	assert.NotContains(t, text, "3. C")
	assert.Contains(t, text, "y 1 más")
}

func TestFormatFieldMissingValue(t *testing.T) {
	t.Parallel()
	row := storage.Row{"nombre": "ANA", "calificaciones": []storage.Grade{}}
	assert.Equal(t, "ANA no tiene calificaciones registradas.", FormatField(row, "calificaciones"))
	assert.Equal(t, "No tengo registrado ese dato de ANA.", FormatField(row, "matrícula"))
}
