package storage

import "context"

// QueryExecutor runs a fully substituted SQL statement and returns its rows.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) ([]Row, error)
}

// StudentRepository reads and writes students and their constancias.
type StudentRepository interface {
	GetStudentByID(ctx context.Context, id int64) (*Student, error)
	SaveStudent(ctx context.Context, s *Student) (int64, error)
	SaveConstancia(ctx context.Context, c *Constancia) (int64, error)
}

// Compile-time interface satisfaction checks.
var (
	_ QueryExecutor     = (*DB)(nil)
	_ StudentRepository = (*DB)(nil)
)
