// Package intent classifies a user utterance with one LLM call and resolves
// conversational references against the session's conversation stack.
package intent

import (
	"github.com/garyellow/school-records-go/internal/constancia"
	domerrors "github.com/garyellow/school-records-go/internal/errors"
)

// Kind is the top-level intention.
type Kind string

const (
	KindConsultaAlumnos     Kind = "consulta_alumnos"
	KindTransformacionPDF   Kind = "transformacion_pdf"
	KindAyudaSistema        Kind = "ayuda_sistema"
	KindConversacionGeneral Kind = "conversacion_general"
	KindAclaracion          Kind = "aclaracion_requerida"
)

// Valid reports whether k is in the closed set.
func (k Kind) Valid() bool {
	_, ok := subKinds[k]
	return ok
}

// SubKind refines a Kind.
type SubKind string

const (
	SubBusquedaSimple      SubKind = "busqueda_simple"
	SubBusquedaCompleja    SubKind = "busqueda_compleja"
	SubEstadisticas        SubKind = "estadisticas"
	SubGenerarConstancia   SubKind = "generar_constancia"
	SubTransformacionPDF   SubKind = "transformacion_pdf"
	SubPreguntaCapacidades SubKind = "pregunta_capacidades"
	SubTutorialUso         SubKind = "tutorial_uso"
	SubChatCasual          SubKind = "chat_casual"
	SubSaludo              SubKind = "saludo"
	SubAgradecimiento      SubKind = "agradecimiento"
	SubDespedida           SubKind = "despedida"
	SubAclaracion          SubKind = "aclaracion"
)

// subKinds lists the permitted sub-kinds per kind; the first is the default.
var subKinds = map[Kind][]SubKind{
	KindConsultaAlumnos:     {SubBusquedaSimple, SubBusquedaCompleja, SubEstadisticas, SubGenerarConstancia},
	KindTransformacionPDF:   {SubTransformacionPDF},
	KindAyudaSistema:        {SubPreguntaCapacidades, SubTutorialUso},
	KindConversacionGeneral: {SubChatCasual, SubSaludo, SubAgradecimiento, SubDespedida},
	KindAclaracion:          {SubAclaracion},
}

// SubKindsOf returns the permitted sub-kinds of k, default first.
func SubKindsOf(k Kind) []SubKind {
	return subKinds[k]
}

// normalizeSubKind returns s when it belongs to k, otherwise k's default.
func normalizeSubKind(k Kind, s SubKind) SubKind {
	allowed := subKinds[k]
	for _, a := range allowed {
		if a == s {
			return s
		}
	}
	if len(allowed) == 0 {
		return ""
	}
	return allowed[0]
}

// Action is the main verb of the request.
type Action string

const (
	ActionBuscar      Action = "buscar"
	ActionGenerar     Action = "generar"
	ActionContar      Action = "contar"
	ActionListar      Action = "listar"
	ActionTransformar Action = "transformar"
	ActionAyudar      Action = "ayudar"
)

// DataSource tells where the answer should come from.
type DataSource string

const (
	SourceBaseDatos          DataSource = "base_datos"
	SourceConversacionPrevia DataSource = "conversacion_previa"
	SourcePDFCargado         DataSource = "pdf_cargado"
	SourceSistema            DataSource = "sistema"
)

// Filter is one "campo: valor" pair.
type Filter struct {
	Field string
	Value string
}

// ResolvedStudent is a student picked out of the previous result set.
type ResolvedStudent struct {
	ID       int64
	Name     string
	Position int // 1-based position in the previous result, 0 if unknown
}

// Entities are the values extracted from the utterance.
type Entities struct {
	Names           []string
	ConstanciaType  constancia.Type // Empty when not mentioned
	IncludePhoto    bool
	Action          Action
	DataSource      DataSource
	Filters         []Filter
	ResolvedStudent *ResolvedStudent
	RequestedField  string
}

// Filter returns the value of the first filter on field.
func (e Entities) Filter(field string) (string, bool) {
	for _, f := range e.Filters {
		if f.Field == field {
			return f.Value, true
		}
	}
	return "", false
}

// Categorization is the optional routing hint for student queries.
type Categorization struct {
	Category        string
	SubType         string
	Complexity      string
	RequiresContext bool
	OptimalFlow     string
}

// Intent is the structured classification of one utterance.
type Intent struct {
	Kind                  Kind
	SubKind               SubKind
	Confidence            float64
	Reasoning             string // Logged at debug level, never shown
	Entities              Entities
	Categorization        *Categorization
	ClarificationQuestion string // Set iff Kind is KindAclaracion

	// Reply is a ready user message for degraded intents (e.g. LLM outage).
	Reply string
	// Failure is set when the intent was synthesized from a failure.
	Failure domerrors.Kind
}

// Identifies reports whether the intent names a student or a filter.
func (i *Intent) Identifies() bool {
	return i.Entities.ResolvedStudent != nil || len(i.Entities.Names) > 0 || len(i.Entities.Filters) > 0
}

// DefaultClarification is asked when the reply could not be understood.
const DefaultClarification = "No entendí, ¿puedes reformular?"

func clarification(question string, failure domerrors.Kind) *Intent {
	if question == "" {
		question = DefaultClarification
	}
	return &Intent{
		Kind:                  KindAclaracion,
		SubKind:               SubAclaracion,
		ClarificationQuestion: question,
		Failure:               failure,
	}
}

func transportFailure() *Intent {
	return &Intent{
		Kind:    KindConversacionGeneral,
		SubKind: SubChatCasual,
		Reply:   domerrors.DefaultMessage(domerrors.KindLLMTransport),
		Failure: domerrors.KindLLMTransport,
	}
}
