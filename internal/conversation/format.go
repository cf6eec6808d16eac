package conversation

import (
	"fmt"
	"strings"
)

// EmptyHistoryMarker is rendered when a session has no completed turns.
const EmptyHistoryMarker = "SESIÓN NUEVA: no hay conversación previa."

// maxListedRows bounds how many rows of the latest turn are spelled out.
const maxListedRows = 10

// Format renders turns (oldest first) as prompt text: one paragraph per turn
// with the utterance, row count and an example name. The latest turn also
// lists its rows by position so references can be resolved.
// The output depends only on turns.
func Format(turns []Turn) string {
	if len(turns) == 0 {
		return EmptyHistoryMarker
	}

	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Turno %d: el usuario dijo %q. Resultado: %d %s.",
			i+1, t.Query, t.RowCount, plural(t.RowCount, "registro", "registros"))
		if t.RowCount > 0 {
			if name := t.Rows[0].String("nombre"); name != "" {
				fmt.Fprintf(&b, " Ejemplo: %s.", name)
			}
		}
		switch t.Awaiting {
		case AwaitingSelection:
			b.WriteString(" El asistente pidió elegir un alumno de la lista.")
		case AwaitingConfirmation:
			b.WriteString(" El asistente pidió una confirmación.")
		}

		if i == len(turns)-1 && t.RowCount > 0 {
			b.WriteString("\nResultados más recientes:")
			for pos, row := range t.Rows {
				if pos == maxListedRows {
					fmt.Fprintf(&b, "\n  … y %d más", t.RowCount-maxListedRows)
					break
				}
				fmt.Fprintf(&b, "\n  %d. %s (id %s)", pos+1, displayName(row.String("nombre")), row.String("id"))
			}
		}
	}
	return b.String()
}

func displayName(name string) string {
	if name == "" {
		return "sin nombre"
	}
	return name
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
