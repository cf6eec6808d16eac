package sqltemplate

// Template names. Callers use these instead of string literals.
const (
	BuscarAlumno             = "buscar_alumno"
	BuscarAlumnoExacto       = "buscar_alumno_exacto"
	BuscarPorCURP            = "buscar_por_curp"
	BuscarPorMatricula       = "buscar_por_matricula"
	FiltrarPorGrado          = "filtrar_por_grado"
	FiltrarPorGrupo          = "filtrar_por_grupo"
	FiltrarPorTurno          = "filtrar_por_turno"
	FiltrarGradoGrupo        = "filtrar_grado_grupo"
	FiltrarGradoTurno        = "filtrar_grado_turno"
	ContarAlumnosTotal       = "contar_alumnos_total"
	EstadisticasPorGrado     = "estadisticas_por_grado"
	AlumnosConCalificaciones = "alumnos_con_calificaciones"
	AlumnosSinCalificaciones = "alumnos_sin_calificaciones"
)

const (
	detailColumns = `id, nombre, curp, matricula, fecha_nacimiento, grado, grupo, turno,
		ciclo_escolar, escuela, cct, calificaciones`
	listColumns  = `id, nombre, curp, matricula, grado, grupo, turno`
	listOrdering = `ORDER BY grado, grupo, nombre`
)

// Catalog returns the built-in templates in presentation order.
func Catalog() []Template {
	return []Template{
		{
			Name:            BuscarAlumno,
			Description:     "Buscar alumnos cuyo nombre contiene un texto",
			SQL:             `SELECT ` + detailColumns + ` FROM alumnos WHERE nombre LIKE '%{nombre}%' ESCAPE '\' ORDER BY nombre`,
			Parameters:      []string{"nombre"},
			ReturnsMultiple: true,
			DecodesGrades:   true,
		},
		{
			Name:               BuscarAlumnoExacto,
			Description:        "Buscar un alumno por su nombre completo",
			SQL:                `SELECT ` + detailColumns + ` FROM alumnos WHERE nombre = '{nombre}' COLLATE NOCASE ORDER BY nombre`,
			Parameters:         []string{"nombre"},
			ReturnsMultiple:    true,
			RequiresExactMatch: true,
			DecodesGrades:      true,
		},
		{
			Name:               BuscarPorCURP,
			Description:        "Buscar un alumno por su CURP",
			SQL:                `SELECT ` + detailColumns + ` FROM alumnos WHERE curp = '{curp}'`,
			Parameters:         []string{"curp"},
			RequiresExactMatch: true,
			DecodesGrades:      true,
		},
		{
			Name:               BuscarPorMatricula,
			Description:        "Buscar un alumno por su matrícula",
			SQL:                `SELECT ` + detailColumns + ` FROM alumnos WHERE matricula = '{matricula}' COLLATE NOCASE`,
			Parameters:         []string{"matricula"},
			RequiresExactMatch: true,
			DecodesGrades:      true,
		},
		{
			Name:            FiltrarPorGrado,
			Description:     "Listar los alumnos de un grado",
			SQL:             `SELECT ` + listColumns + ` FROM alumnos WHERE grado = {grado} ` + listOrdering,
			Parameters:      []string{"grado"},
			ReturnsMultiple: true,
		},
		{
			Name:            FiltrarPorGrupo,
			Description:     "Listar los alumnos de un grupo",
			SQL:             `SELECT ` + listColumns + ` FROM alumnos WHERE grupo = '{grupo}' ` + listOrdering,
			Parameters:      []string{"grupo"},
			ReturnsMultiple: true,
		},
		{
			Name:            FiltrarPorTurno,
			Description:     "Listar los alumnos de un turno (matutino o vespertino)",
			SQL:             `SELECT ` + listColumns + ` FROM alumnos WHERE turno = '{turno}' ` + listOrdering,
			Parameters:      []string{"turno"},
			ReturnsMultiple: true,
		},
		{
			Name:            FiltrarGradoGrupo,
			Description:     "Listar los alumnos de un grado y grupo",
			SQL:             `SELECT ` + listColumns + ` FROM alumnos WHERE grado = {grado} AND grupo = '{grupo}' ORDER BY nombre`,
			Parameters:      []string{"grado", "grupo"},
			ReturnsMultiple: true,
		},
		{
			Name:            FiltrarGradoTurno,
			Description:     "Listar los alumnos de un grado en un turno",
			SQL:             `SELECT ` + listColumns + ` FROM alumnos WHERE grado = {grado} AND turno = '{turno}' ORDER BY grupo, nombre`,
			Parameters:      []string{"grado", "turno"},
			ReturnsMultiple: true,
		},
		{
			Name:        ContarAlumnosTotal,
			Description: "Contar el total de alumnos inscritos",
			SQL:         `SELECT COUNT(*) AS total FROM alumnos`,
		},
		{
			Name:            EstadisticasPorGrado,
			Description:     "Número de alumnos por grado",
			SQL:             `SELECT grado, COUNT(*) AS total FROM alumnos GROUP BY grado ORDER BY grado`,
			ReturnsMultiple: true,
		},
		{
			Name:            AlumnosConCalificaciones,
			Description:     "Listar los alumnos que tienen calificaciones registradas",
			SQL:             `SELECT ` + detailColumns + ` FROM alumnos WHERE calificaciones IS NOT NULL AND calificaciones NOT IN ('', '[]') ` + listOrdering,
			ReturnsMultiple: true,
			DecodesGrades:   true,
		},
		{
			Name:            AlumnosSinCalificaciones,
			Description:     "Listar los alumnos sin calificaciones registradas",
			SQL:             `SELECT ` + listColumns + ` FROM alumnos WHERE calificaciones IS NULL OR calificaciones IN ('', '[]') ` + listOrdering,
			ReturnsMultiple: true,
		},
	}
}
