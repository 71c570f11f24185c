package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee is a person time entries are recorded for.
type Employee struct {
	ID         string
	Name       string
	Bundesland string
	CreatedAt  time.Time
}

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, bundesland, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			bundesland = excluded.bundesland
	`
	_, err := s.db.ExecContext(ctx, query, emp.ID, emp.Name, emp.Bundesland, formatTime(time.Now()))
	return classify("save employee", err)
}

// GetEmployee returns the employee or ErrNotFound.
func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp Employee
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, bundesland, created_at FROM employees WHERE id = ?", id,
	).Scan(&emp.ID, &emp.Name, &emp.Bundesland, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify("get employee", err)
	}
	emp.CreatedAt = parseTime(createdAt)
	return &emp, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, bundesland, created_at FROM employees ORDER BY name ASC")
	if err != nil {
		return nil, classify("list employees", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var emp Employee
		var createdAt string
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Bundesland, &createdAt); err != nil {
			return nil, err
		}
		emp.CreatedAt = parseTime(createdAt)
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}
