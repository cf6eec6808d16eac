package chat

import (
	"strings"

	"github.com/garyellow/school-records-go/internal/intent"
	"github.com/garyellow/school-records-go/internal/sqltemplate"
)

func generalReply(sub intent.SubKind) string {
	switch sub {
	case intent.SubSaludo:
		return "¡Hola! Soy el asistente de control escolar. Puedo buscar alumnos y generar constancias. ¿En qué te ayudo?"
	case intent.SubAgradecimiento:
		return "¡Con gusto! Si necesitas algo más, aquí estoy."
	case intent.SubDespedida:
		return "¡Hasta luego! Cuando quieras seguimos."
	default:
		return "Estoy aquí para ayudarte con la información de los alumnos. Puedes preguntarme por un alumno, un grupo o pedirme una constancia."
	}
}

func helpReply(sub intent.SubKind, registry *sqltemplate.Registry) string {
	if sub == intent.SubTutorialUso {
		return "Así puedes usarme:\n" +
			"• \"información de ELENA JIMENEZ HERNANDEZ\" muestra los datos de un alumno\n" +
			"• \"alumnos de 2do A\" lista un grupo\n" +
			"• \"¿cuántos alumnos hay?\" da el total\n" +
			"• \"genera una constancia de estudios para el segundo\" usa el resultado anterior\n" +
			"• Carga un PDF y pide \"transforma la constancia a calificaciones\"\n" +
			"Después de cada vista previa elige: 1 guardar, 2 abrir, 3 guardar en la base de datos, 4 nada."
	}

	var sb strings.Builder
	sb.WriteString("Puedo ayudarte con:\n")
	sb.WriteString("• Consultar alumnos por nombre, CURP, matrícula, grado, grupo o turno\n")
	sb.WriteString("• Generar constancias de estudios, calificaciones o traslado\n")
	sb.WriteString("• Transformar una constancia en PDF que cargues\n")
	if registry != nil {
		sb.WriteString("\nConsultas disponibles:\n")
		for _, entry := range registry.Enumerate() {
			sb.WriteString("• ")
			sb.WriteString(entry.Description)
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
