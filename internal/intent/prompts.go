package intent

import (
	"fmt"
	"strings"

	"github.com/garyellow/school-records-go/internal/conversation"
)

// SchoolInfo is frozen into the school context block.
type SchoolInfo struct {
	Name         string
	CCT          string
	StudentCount int
}

// PromptManager builds the intent-detection prompt. The frozen blocks are
// rendered once at construction; Build only adds the history and the utterance.
type PromptManager struct {
	header        string
	schoolContext string
	rules         string
	output        string
}

// NewPromptManager renders the frozen blocks for school.
func NewPromptManager(school SchoolInfo) *PromptManager {
	return &PromptManager{
		header:        headerBlock,
		schoolContext: renderSchoolContext(school),
		rules:         rulesBlock,
		output:        outputBlock,
	}
}

// Build returns the prompt for utterance given the prior turns (oldest first).
// The result depends only on its inputs.
func (p *PromptManager) Build(utterance string, turns []conversation.Turn) string {
	var b strings.Builder
	b.Grow(len(p.header) + len(p.schoolContext) + len(p.rules) + len(p.output) + len(utterance) + 512)

	b.WriteString(p.header)
	b.WriteString("\n\n")
	b.WriteString(p.schoolContext)
	b.WriteString("\n\n## CONTEXTO CONVERSACIONAL\n")
	b.WriteString(conversation.Format(turns))
	b.WriteString("\n\n## CONSULTA ACTUAL\n")
	fmt.Fprintf(&b, "%q", utterance)
	b.WriteString("\n\n")
	b.WriteString(p.rules)
	b.WriteString("\n\n")
	b.WriteString(p.output)
	return b.String()
}

// SchoolContext returns the frozen school block.
func (p *PromptManager) SchoolContext() string {
	return p.schoolContext
}

func renderSchoolContext(s SchoolInfo) string {
	name := s.Name
	if name == "" {
		name = "la escuela"
	}
	var b strings.Builder
	b.WriteString("## CONTEXTO ESCOLAR\n")
	fmt.Fprintf(&b, "Escuela: %s", name)
	if s.CCT != "" {
		fmt.Fprintf(&b, " (CCT %s)", s.CCT)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "La base de datos contiene %d alumnos registrados.\n", s.StudentCount)
	b.WriteString(`El usuario es personal autorizado de la escuela y tiene acceso completo a la información de los alumnos.
Todos los datos del sistema son datos de alumnos: "información de la escuela", "los datos" o "la base"
se refieren siempre a los alumnos registrados.`)
	return b.String()
}

const headerBlock = `Eres el asistente de control escolar de una escuela primaria. Tu tarea es clasificar la
intención de cada mensaje del usuario, extraer sus entidades y resolver referencias a resultados
anteriores. No respondes al usuario: solo produces un objeto JSON.`

const rulesBlock = `## REGLAS DE CLASIFICACIÓN

Intenciones permitidas (intention_type) y sus sub_intention:
- consulta_alumnos: busqueda_simple | busqueda_compleja | estadisticas | generar_constancia
- transformacion_pdf: transformacion_pdf (convertir el PDF cargado a otro tipo de constancia)
- ayuda_sistema: pregunta_capacidades | tutorial_uso
- conversacion_general: chat_casual | saludo | agradecimiento | despedida
- aclaracion_requerida: aclaracion

Completitud: antes de clasificar pregúntate si el mensaje dice QUÉ quiere, de QUIÉN o de CUÁLES alumnos.
- busqueda_simple: un alumno o un filtro ("información de ELENA", "alumnos de 2do A").
- busqueda_compleja: varios filtros combinados ("alumnos de 3er grado del turno vespertino").
- estadisticas: conteos y distribuciones ("¿cuántos alumnos hay?", "alumnos por grado").
- generar_constancia: se pide una constancia para un alumno identificado por nombre o por referencia.

REGLA CRÍTICA: un mensaje vago sin pregunta explícita con "¿" ("dame información", "busca", "quiero datos")
es aclaracion_requerida, NUNCA ayuda_sistema. Usa ayuda_sistema solo cuando pregunta qué puede hacer el
sistema o cómo usarlo.

Referencias: "el primero", "el segundo", "el último", "el número 3", "él", "ella", "ese alumno" se refieren
a los resultados más recientes del contexto conversacional. En ese caso fuente_datos es
"conversacion_previa" y, si puedes identificarlo, llena alumno_resuelto con id, nombre y posición (base 1).
Si no hay resultados previos, pide aclaración.

Filtros ("campo: valor"): grado (1-6), grupo (A-F), turno (MATUTINO o VESPERTINO), curp, matricula,
calificaciones (con o sin).

Tipo de constancia (tipo_constancia):
- "estudio": estudios, inscripción, constancia simple (es el valor por omisión)
- "calificaciones": calificaciones, boleta, notas, promedios
- "traslado": traslado, cambio de escuela, baja

Foto (incluir_foto): true solo si el mensaje pide foto ("con foto", "incluye fotografía"); en otro caso false.

campo_solicitado: cuando se pregunta un solo dato ("¿cuál es la CURP de ...?") indica la columna:
curp, matricula, fecha_nacimiento, grado, grupo, turno, ciclo_escolar, calificaciones.`

const outputBlock = `## FORMATO DE RESPUESTA
Responde ÚNICAMENTE con un objeto JSON válido, sin texto adicional ni bloques de código:
{
  "intention_type": "consulta_alumnos",
  "sub_intention": "busqueda_simple",
  "confidence": 0.95,
  "reasoning": "breve explicación",
  "detected_entities": {
    "nombres": [],
    "tipo_constancia": null,
    "accion_principal": "buscar",
    "fuente_datos": "base_datos",
    "filtros": [],
    "incluir_foto": false,
    "alumno_resuelto": null,
    "campo_solicitado": null
  },
  "student_categorization": {
    "category": "busqueda",
    "sub_type": "por_nombre",
    "complexity": "baja",
    "requires_context": false,
    "optimal_flow": "sql_template"
  },
  "clarification_question": null
}
accion_principal es uno de: buscar, generar, contar, listar, transformar, ayudar.
fuente_datos es uno de: base_datos, conversacion_previa, pdf_cargado, sistema.
clarification_question solo se llena cuando intention_type es aclaracion_requerida.`
