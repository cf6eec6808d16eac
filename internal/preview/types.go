// Package preview tracks a generated temporary constancia through the
// user's save / open / persist / discard decision.
package preview

import (
	"strings"
	"time"

	"github.com/garyellow/school-records-go/internal/constancia"
	"github.com/garyellow/school-records-go/internal/storage"
	"github.com/garyellow/school-records-go/internal/stringutil"
)

// Option is one of the four choices offered after a preview.
type Option int

const (
	OptionSave    Option = iota + 1 // Copy to the constancias directory
	OptionOpen                      // Open the temporary file
	OptionPersist                   // Store the data and record the constancia
	OptionDiscard                   // Do nothing
)

// String returns the metric label for the option.
func (o Option) String() string {
	switch o {
	case OptionSave:
		return "save"
	case OptionOpen:
		return "open"
	case OptionPersist:
		return "persist"
	case OptionDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// PromptText lists the options after a preview is produced.
const PromptText = "¿Qué deseas hacer con la constancia?\n" +
	"1. Guardar el archivo\n" +
	"2. Abrir (e imprimir)\n" +
	"3. Guardar los datos en la base de datos\n" +
	"4. No hacer nada"

// OriginalContext is where the previewed constancia came from. Exactly one
// of StudentID and SourcePDF is set.
type OriginalContext struct {
	StudentID int64       `json:"student_id,omitempty"`
	SourcePDF string      `json:"source_pdf,omitempty"`
	Data      storage.Row `json:"data"`
}

// Pending is a preview awaiting a decision.
type Pending struct {
	TempPDFPath  string          `json:"temp_pdf_path"`
	Original     OriginalContext `json:"original_context"`
	Type         constancia.Type `json:"constancia_type"`
	IncludePhoto bool            `json:"include_photo"`
	CreatedAt    time.Time       `json:"created_at"`
}

var optionWords = []struct {
	option Option
	words  []string
}{
	// Persist first: "guardar en la base de datos" also contains "guardar".
	{OptionPersist, []string{"base de datos", "base", "registrar", "registra", "persistir", "bd"}},
	{OptionSave, []string{"guardar", "guarda", "guardalo", "guardala", "salvar"}},
	{OptionOpen, []string{"abrir", "abre", "abrelo", "abrela", "imprimir", "imprime", "imprimela", "imprimelo", "ver"}},
	{OptionDiscard, []string{"nada", "ninguna", "ninguno", "cancelar", "cancela", "descartar", "no"}},
}

var optionDigits = map[string]Option{
	"1": OptionSave, "uno": OptionSave,
	"2": OptionOpen, "dos": OptionOpen,
	"3": OptionPersist, "tres": OptionPersist,
	"4": OptionDiscard, "cuatro": OptionDiscard,
}

// optionFillers may surround a bare option number ("la opción 2 por favor").
var optionFillers = map[string]struct{}{
	"opcion": {}, "la": {}, "el": {}, "numero": {}, "por": {}, "favor": {}, "porfa": {}, "gracias": {},
}

// ParseOption reads a decision such as "2", "opción 3" or "abrir". A number
// only counts when it is the whole answer, so "guardar 2 copias" saves.
func ParseOption(text string) (Option, bool) {
	words := stringutil.Words(stringutil.Fold(text))
	if len(words) == 0 {
		return 0, false
	}

	var rest []string
	for _, w := range words {
		if _, filler := optionFillers[w]; !filler {
			rest = append(rest, w)
		}
	}
	if len(rest) == 1 {
		if o, ok := optionDigits[rest[0]]; ok {
			return o, true
		}
	}

	joined := " " + strings.Join(words, " ") + " "
	for _, group := range optionWords {
		for _, w := range group.words {
			if strings.Contains(joined, " "+w+" ") {
				return group.option, true
			}
		}
	}
	return 0, false
}

var (
	yesWords = map[string]struct{}{"si": {}, "claro": {}, "ok": {}, "okay": {}, "dale": {}, "abrir": {}, "abrela": {}, "abrelo": {}, "va": {}}
	noWords  = map[string]struct{}{"no": {}, "nel": {}, "despues": {}, "luego": {}, "gracias": {}}
)

// ParseConfirmation reads a yes/no answer. ok is false when the text is
// neither.
func ParseConfirmation(text string) (yes bool, ok bool) {
	for _, w := range stringutil.Words(stringutil.Fold(text)) {
		if _, found := noWords[w]; found {
			return false, true
		}
		if _, found := yesWords[w]; found {
			return true, true
		}
	}
	return false, false
}
