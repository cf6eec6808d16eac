package intent

import (
	"strings"
	"testing"

	"github.com/garyellow/school-records-go/internal/conversation"
	"github.com/garyellow/school-records-go/internal/storage"
)

func TestBuildIsDeterministic(t *testing.T) {
	t.Parallel()
	pm := NewPromptManager(SchoolInfo{Name: "Escuela Primaria Benito Juárez", CCT: "09DPR0001A", StudentCount: 4})

	stack := conversation.NewStack(5)
	stack.Push(conversation.NewTurn("alumnos de 2do A", []storage.Row{
		{"id": int64(2), "nombre": "JUAN GARCIA MARTINEZ"},
		{"id": int64(4), "nombre": "SOFIA RODRIGUEZ PEREZ"},
	}, conversation.AwaitingNone))

	a := pm.Build("genera una constancia para el segundo", stack.Top(0))
	b := pm.Build("genera una constancia para el segundo", stack.Top(0))
	if a != b {
		t.Fatal("Build() must be byte-identical for identical inputs")
	}

	for _, want := range []string{
		"Escuela Primaria Benito Juárez (CCT 09DPR0001A)",
		"4 alumnos registrados",
		"2. SOFIA RODRIGUEZ PEREZ (id 4)",
		`"genera una constancia para el segundo"`,
		"aclaracion_requerida",
		`"intention_type"`,
	} {
		if !strings.Contains(a, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildEmptyHistory(t *testing.T) {
	t.Parallel()
	pm := NewPromptManager(SchoolInfo{})
	p := pm.Build("hola", nil)

	if !strings.Contains(p, conversation.EmptyHistoryMarker) {
		t.Error("empty history must render the new-session marker")
	}
	if !strings.Contains(pm.SchoolContext(), "la escuela") {
		t.Errorf("SchoolContext() = %q", pm.SchoolContext())
	}
}

func TestFrozenBlocksDoNotDependOnUtterance(t *testing.T) {
	t.Parallel()
	pm := NewPromptManager(SchoolInfo{Name: "X"})
	a := pm.Build("uno", nil)
	b := pm.Build("dos", nil)

	tail := func(s string) string { return s[strings.Index(s, "## REGLAS"):] }
	if tail(a) != tail(b) {
		t.Error("rule and output blocks must not change with the utterance")
	}
}
