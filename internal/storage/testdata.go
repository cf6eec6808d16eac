package storage

import "context"

// SampleStudents is a small fixture shared by package tests across the module.
func SampleStudents() []*Student {
	return []*Student{
		{
			CURP: "JIHE100512MDFMRLA5", Nombre: "ELENA JIMENEZ HERNANDEZ", Matricula: "A2019001",
			FechaNacimiento: "2010-05-12", Grado: 3, Grupo: "A", Turno: "MATUTINO",
			CicloEscolar: "2024-2025", Escuela: "Escuela Primaria", CCT: "09DPR0001A",
			Calificaciones: `[{"materia":"ESPAÑOL","promedio":9.1},{"materia":"MATEMÁTICAS","promedio":8.7}]`,
		},
		{
			CURP: "GAMJ110304HDFRRN02", Nombre: "JUAN GARCIA MARTINEZ", Matricula: "A2020014",
			FechaNacimiento: "2011-03-04", Grado: 2, Grupo: "A", Turno: "MATUTINO",
			CicloEscolar: "2024-2025", Escuela: "Escuela Primaria", CCT: "09DPR0001A",
		},
		{
			CURP: "GALM110921HDFRPS07", Nombre: "JUAN GARCIA LOPEZ", Matricula: "A2020015",
			FechaNacimiento: "2011-09-21", Grado: 2, Grupo: "B", Turno: "VESPERTINO",
			CicloEscolar: "2024-2025", Escuela: "Escuela Primaria", CCT: "09DPR0001A",
			Calificaciones: `not json`,
		},
		{
			CURP: "ROPS120117MDFDRF09", Nombre: "SOFIA RODRIGUEZ PEREZ", Matricula: "A2021003",
			FechaNacimiento: "2012-01-17", Grado: 2, Grupo: "A", Turno: "MATUTINO",
			CicloEscolar: "2024-2025", Escuela: "Escuela Primaria", CCT: "09DPR0001A",
			Calificaciones: `[{"materia":"ESPAÑOL","promedio":10}]`,
		},
	}
}

// NewSeededTestDB returns an in-memory database loaded with SampleStudents.
func NewSeededTestDB(ctx context.Context) (*DB, error) {
	db, err := NewTestDB()
	if err != nil {
		return nil, err
	}
	if _, err := db.SaveStudents(ctx, SampleStudents()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
