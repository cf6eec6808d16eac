package sqltemplate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/garyellow/school-records-go/internal/stringutil"
)

// All patterns below run on stringutil.Fold output (lowercase, no accents)
// unless noted otherwise.
const (
	ordinalSuffix = `(?:ro|do|er|to|vo|o|°|º)`
	boundaryStart = `(?:^|[^\p{L}\p{N}])`
	boundaryEnd   = `(?:$|[^\p{L}\p{N}])`
)

var (
	gradeAfterWordPattern  = regexp.MustCompile(`\bgrado\s*(?:de\s+)?([1-6])` + boundaryEnd)
	gradeBeforeWordPattern = regexp.MustCompile(boundaryStart + `([1-6])\s*` + ordinalSuffix + `?\s*(?:de\s+)?grado\b`)
	gradeWordOrdinal       = regexp.MustCompile(`\b(primer|primero|segundo|tercer|tercero|cuarto|quinto|sexto)\s+(?:de\s+)?grado\b|\bgrado\s+(primero|segundo|tercero|cuarto|quinto|sexto)\b`)
	gradeOrdinalPattern    = regexp.MustCompile(boundaryStart + `([1-6])\s*` + ordinalSuffix + boundaryEnd)
	gradeWordPattern       = regexp.MustCompile(`\bgrado\b`)

	groupWordPattern = regexp.MustCompile(`\bgrupo\s*["']?([a-f])["']?` + boundaryEnd)
	gradeGroupPair   = regexp.MustCompile(boundaryStart + `([1-6])\s*` + ordinalSuffix + `?\s*(?:grado\s*)?(?:grupo\s*)?["']?([a-f])["']?` + boundaryEnd)

	shiftMorningPattern   = regexp.MustCompile(`\bmatutino\b|\bturno\s+(?:de\s+la\s+)?manana\b`)
	shiftAfternoonPattern = regexp.MustCompile(`\bvespertino\b|\bturno\s+(?:de\s+la\s+)?tarde\b`)

	// Runs on uppercase raw text.
	curpPattern = regexp.MustCompile(`\b[A-Z]{4}\d{6}[HMX][A-Z]{5}[A-Z0-9]\d\b`)

	matriculaPattern = regexp.MustCompile(`\bmatricula\s*(?:es\s+|:\s*|#\s*|numero\s+|no\.?\s*)?([a-z0-9][a-z0-9-]{2,})\b`)

	withGradesPattern    = regexp.MustCompile(`\bcon\s+calificaciones\b`)
	withoutGradesPattern = regexp.MustCompile(`\bsin\s+calificaciones\b`)
	countPattern         = regexp.MustCompile(`\bcuant[oa]s\b|\btotal\b|\bcantidad\b|\bnumero\s+de\s+alumn`)
	exactNamePattern     = regexp.MustCompile(`\binformacion\s+(?:de|del)\b|\bdatos\s+(?:de|del)\b|\bexpediente\s+de\b|\bficha\s+de\b|\bnombre\s+completo\b`)
)

var ordinalWords = map[string]int{
	"primer": 1, "primero": 1,
	"segundo": 2,
	"tercer":  3, "tercero": 3,
	"cuarto": 4,
	"quinto": 5,
	"sexto":  6,
}

// Shift values as stored in the turno column.
const (
	ShiftMorning   = "MATUTINO"
	ShiftAfternoon = "VESPERTINO"
)

// ExtractGrade finds a school grade (1-6) in numeric ("3", "grado 3"),
// ordinal ("2do", "3er", "4to", "5°") or word ("segundo grado") form.
func ExtractGrade(text string) (int, bool) {
	f := stringutil.Fold(text)
	for _, re := range []*regexp.Regexp{gradeAfterWordPattern, gradeBeforeWordPattern, gradeOrdinalPattern} {
		if m := re.FindStringSubmatch(f); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n, true
		}
	}
	if m := gradeWordOrdinal.FindStringSubmatch(f); m != nil {
		word := m[1]
		if word == "" {
			word = m[2]
		}
		return ordinalWords[word], true
	}
	if m := gradeGroupPair.FindStringSubmatch(f); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	return 0, false
}

// HasGradeWord reports whether the word "grado" appears.
func HasGradeWord(text string) bool {
	return gradeWordPattern.MatchString(stringutil.Fold(text))
}

// ExtractGroup finds a group letter A-F, either after "grupo" or paired
// with a grade ("2do A", "3°B"). Returned uppercase.
func ExtractGroup(text string) (string, bool) {
	f := stringutil.Fold(text)
	if m := groupWordPattern.FindStringSubmatch(f); m != nil {
		return strings.ToUpper(m[1]), true
	}
	if m := gradeGroupPair.FindStringSubmatch(f); m != nil {
		return strings.ToUpper(m[2]), true
	}
	return "", false
}

// ExtractShift maps shift keywords to MATUTINO or VESPERTINO.
func ExtractShift(text string) (string, bool) {
	f := stringutil.Fold(text)
	switch {
	case shiftMorningPattern.MatchString(f):
		return ShiftMorning, true
	case shiftAfternoonPattern.MatchString(f):
		return ShiftAfternoon, true
	}
	return "", false
}

// ExtractCURP finds an 18-character CURP, case-insensitively. Returned uppercase.
func ExtractCURP(text string) (string, bool) {
	m := curpPattern.FindString(strings.ToUpper(stringutil.FoldAccents(text)))
	return m, m != ""
}

// ExtractMatricula finds the value following the word "matrícula". Returned uppercase.
func ExtractMatricula(text string) (string, bool) {
	m := matriculaPattern.FindStringSubmatch(stringutil.Fold(text))
	if m == nil || !strings.ContainsAny(m[1], "0123456789") {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// GradesFilter reports "con" or "sin" for "con/sin calificaciones".
func GradesFilter(text string) (string, bool) {
	f := stringutil.Fold(text)
	switch {
	case withoutGradesPattern.MatchString(f):
		return "sin", true
	case withGradesPattern.MatchString(f):
		return "con", true
	}
	return "", false
}

// HasCountKeyword reports counting words such as "cuántos" or "total".
func HasCountKeyword(text string) bool {
	return countPattern.MatchString(stringutil.Fold(text))
}

// HasExactNameKeyword reports phrases that ask for one specific student
// ("información de", "datos de").
func HasExactNameKeyword(text string) bool {
	return exactNamePattern.MatchString(stringutil.Fold(text))
}

// nameStopwords are folded words that never belong to a student name.
var nameStopwords = toSet(
	"busca", "buscar", "buscame", "busque", "encuentra", "encontrar", "localiza",
	"dame", "dime", "muestra", "muestrame", "mostrar", "ver", "quiero", "necesito", "puedes",
	"informacion", "datos", "expediente", "ficha", "nombre", "completo", "sobre", "acerca",
	"alumno", "alumna", "alumnos", "alumnas", "estudiante", "estudiantes", "nino", "nina",
	"del", "las", "los", "que", "quien", "quienes", "cual", "cuales", "para", "por", "con", "sin",
	"constancia", "constancias", "genera", "generar", "generame", "hazme", "haz", "crea", "crear",
	"estudio", "estudios", "calificaciones", "calificacion", "traslado", "boleta",
	"grado", "grupo", "turno", "matutino", "vespertino", "manana", "tarde",
	"hay", "son", "esta", "este", "esa", "ese", "ella", "todos", "todas", "lista", "listado",
	"cuantos", "cuantas", "total", "cantidad", "escuela", "favor", "hola", "gracias",
	"curp", "matricula", "fecha", "nacimiento", "tiene", "tienen", "una", "uno", "unos", "unas",
	"foto", "pdf", "sus", "mis", "primaria", "ciclo", "escolar", "promedio", "inscritos",
	"primer", "primero", "segundo", "tercer", "tercero", "cuarto", "quinto", "sexto", "ultimo",
)

// nameConnectors may appear inside a name ("MARÍA DE LA LUZ") but never start or end one.
var nameConnectors = toSet("de", "del", "la", "las", "los", "y")

func toSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func isNameToken(tok string) bool {
	if !stringutil.IsAlphabetic(tok) || utf8.RuneCountInString(tok) < 3 {
		return false
	}
	_, stop := nameStopwords[stringutil.Fold(tok)]
	return !stop
}

// ExtractName returns the longest run of name-like words (at least two words
// of three or more letters) keeping the user's spelling. exact reports whether
// the utterance asked for one specific student.
//
// Example:
//
//	ExtractName("información de ELENA JIMENEZ HERNANDEZ") returns ("ELENA JIMENEZ HERNANDEZ", true, true)
//	ExtractName("busca información") returns ("", false, false)
func ExtractName(text string) (name string, exact bool, ok bool) {
	words := stringutil.Words(text)

	bestStart, bestEnd, bestCount := -1, -1, 0
	for i := 0; i < len(words); i++ {
		if !isNameToken(words[i]) {
			continue
		}
		count, end := 1, i
		for j := i + 1; j < len(words); j++ {
			if isNameToken(words[j]) {
				count++
				end = j
				continue
			}
			if _, conn := nameConnectors[stringutil.Fold(words[j])]; conn {
				continue
			}
			break
		}
		if count > bestCount {
			bestStart, bestEnd, bestCount = i, end, count
		}
		i = end
	}

	if bestCount < 2 {
		return "", false, false
	}
	return strings.Join(words[bestStart:bestEnd+1], " "), HasExactNameKeyword(text), true
}
