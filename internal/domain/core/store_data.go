package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfeval/internal/domain/auth"
)

const employeeColumns = `id, COALESCE(user_id::text, ''), first_name, last_name, email,
           COALESCE(department, ''), COALESCE(position, ''), status, created_at, updated_at`

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.UserID, &emp.FirstName, &emp.LastName, &emp.Email,
		&emp.Department, &emp.Position, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID))
}

func (s *Store) GetEmployeeByUserID(ctx context.Context, tenantID, userID string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID))
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Employee, error) {
	query, args := filterQuery("SELECT "+employeeColumns, tenantID, filter)
	query += fmt.Sprintf(" ORDER BY last_name, first_name, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) CountEmployees(ctx context.Context, tenantID string, filter Filter) (int, error) {
	query, args := filterQuery("SELECT COUNT(1)", tenantID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CreateEmployee inserts the employee and, when passwordHash is set, a login
// with the Employee role in the same transaction.
func (s *Store) CreateEmployee(ctx context.Context, tenantID string, emp Employee, passwordHash string) (Employee, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Employee{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID *string
	if passwordHash != "" {
		var id string
		err := tx.QueryRow(ctx, `
      INSERT INTO users (tenant_id, email, password_hash, role_id)
      SELECT $1, $2, $3, r.id FROM roles r WHERE r.tenant_id = $1 AND r.name = $4
      RETURNING id
    `, tenantID, emp.Email, passwordHash, auth.RoleEmployee).Scan(&id)
		if err != nil {
			return Employee{}, mapUniqueViolation(err)
		}
		userID = &id
	}

	created, err := scanEmployee(tx.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, first_name, last_name, email, department, position, status)
    VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8)
    RETURNING `+employeeColumns, tenantID, userID, emp.FirstName, emp.LastName, emp.Email, emp.Department, emp.Position, emp.Status))
	if err != nil {
		return Employee{}, mapUniqueViolation(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Employee{}, err
	}
	return created, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, tenantID string, emp Employee) (Employee, error) {
	updated, err := scanEmployee(s.DB.QueryRow(ctx, `
    UPDATE employees
    SET first_name = $3, last_name = $4, email = $5, department = NULLIF($6,''),
        position = NULLIF($7,''), status = $8, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
    RETURNING `+employeeColumns, tenantID, emp.ID, emp.FirstName, emp.LastName, emp.Email, emp.Department, emp.Position, emp.Status))
	if err != nil {
		return Employee{}, mapUniqueViolation(err)
	}
	return updated, nil
}

func filterQuery(prefix, tenantID string, filter Filter) (string, []any) {
	query := prefix + " FROM employees WHERE tenant_id = $1"
	args := []any{tenantID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		query += fmt.Sprintf(" AND department = $%d", len(args))
	}
	return query, args
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}
