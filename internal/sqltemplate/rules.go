package sqltemplate

import "strconv"

// selection is a template chosen by the heuristic rules with its parameters.
type selection struct {
	rule     string
	template string
	params   map[string]string
}

// rule inspects an utterance and either selects a template or passes.
type rule struct {
	name  string
	apply func(text string) (selection, bool)
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{"grade_and_group", func(text string) (selection, bool) {
		grade, okGrade := ExtractGrade(text)
		group, okGroup := ExtractGroup(text)
		if !okGrade || !okGroup {
			return selection{}, false
		}
		return selection{template: FiltrarGradoGrupo, params: map[string]string{
			"grado": strconv.Itoa(grade), "grupo": group,
		}}, true
	}},
	{"grade_word", func(text string) (selection, bool) {
		if !HasGradeWord(text) {
			return selection{}, false
		}
		grade, ok := ExtractGrade(text)
		if !ok {
			return selection{}, false
		}
		return selection{template: FiltrarPorGrado, params: map[string]string{"grado": strconv.Itoa(grade)}}, true
	}},
	{"grade_ordinal", func(text string) (selection, bool) {
		grade, ok := ExtractGrade(text)
		if !ok {
			return selection{}, false
		}
		if group, ok := ExtractGroup(text); ok {
			return selection{template: FiltrarGradoGrupo, params: map[string]string{
				"grado": strconv.Itoa(grade), "grupo": group,
			}}, true
		}
		return selection{template: FiltrarPorGrado, params: map[string]string{"grado": strconv.Itoa(grade)}}, true
	}},
	{"shift", func(text string) (selection, bool) {
		shift, ok := ExtractShift(text)
		if !ok {
			return selection{}, false
		}
		return selection{template: FiltrarPorTurno, params: map[string]string{"turno": shift}}, true
	}},
	{"curp", func(text string) (selection, bool) {
		curp, ok := ExtractCURP(text)
		if !ok {
			return selection{}, false
		}
		return selection{template: BuscarPorCURP, params: map[string]string{"curp": curp}}, true
	}},
	{"matricula", func(text string) (selection, bool) {
		m, ok := ExtractMatricula(text)
		if !ok {
			return selection{}, false
		}
		return selection{template: BuscarPorMatricula, params: map[string]string{"matricula": m}}, true
	}},
	{"grades_filter", func(text string) (selection, bool) {
		switch f, _ := GradesFilter(text); f {
		case "con":
			return selection{template: AlumnosConCalificaciones}, true
		case "sin":
			return selection{template: AlumnosSinCalificaciones}, true
		}
		return selection{}, false
	}},
	{"count", func(text string) (selection, bool) {
		if !HasCountKeyword(text) {
			return selection{}, false
		}
		return selection{template: ContarAlumnosTotal}, true
	}},
	{"name", func(text string) (selection, bool) {
		name, exact, ok := ExtractName(text)
		if !ok {
			return selection{}, false
		}
		tpl := BuscarAlumno
		if exact {
			tpl = BuscarAlumnoExacto
		}
		return selection{template: tpl, params: map[string]string{"nombre": name}}, true
	}},
}

// selectTemplate applies the rules in order.
func selectTemplate(text string) (selection, bool) {
	for _, r := range rules {
		if sel, ok := r.apply(text); ok {
			sel.rule = r.name
			return sel, true
		}
	}
	return selection{}, false
}
