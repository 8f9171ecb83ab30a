package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectEvaluation = `
    SELECT v.id, v.tenant_id, v.employee_id, e.first_name || ' ' || e.last_name,
           v.month, v.year, v.type, v.profile, v.score, v.rating, v.details_json,
           COALESCE(v.comments, ''), COALESCE(v.evaluated_by::text, ''), COALESCE(v.batch_id, ''),
           COALESCE(v.report_path, ''), v.created_at, v.updated_at
    FROM evaluations v
    JOIN employees e ON e.id = v.employee_id
  `

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var ev Evaluation
	var details []byte
	err := row.Scan(&ev.ID, &ev.TenantID, &ev.EmployeeID, &ev.EmployeeName,
		&ev.Month, &ev.Year, &ev.Type, &ev.Profile, &ev.Score, &ev.Rating, &details,
		&ev.Comments, &ev.EvaluatedBy, &ev.BatchID, &ev.ReportPath, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	if err != nil {
		return Evaluation{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &ev.Details); err != nil {
			return Evaluation{}, fmt.Errorf("decode details of %s: %w", ev.ID, err)
		}
	}
	return ev, nil
}

func (s *Store) UpsertEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error) {
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return Evaluation{}, err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO evaluations (tenant_id, employee_id, month, year, type, profile, score, rating,
                             details_json, comments, evaluated_by, batch_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),NULLIF($11,'')::uuid,NULLIF($12,''))
    ON CONFLICT (tenant_id, employee_id, month, year, type) DO UPDATE SET
      profile = EXCLUDED.profile,
      score = EXCLUDED.score,
      rating = EXCLUDED.rating,
      details_json = EXCLUDED.details_json,
      comments = EXCLUDED.comments,
      evaluated_by = EXCLUDED.evaluated_by,
      batch_id = EXCLUDED.batch_id,
      report_path = NULL,
      updated_at = now()
    RETURNING id
  `, ev.TenantID, ev.EmployeeID, ev.Month, ev.Year, ev.Type, ev.Profile, ev.Score, ev.Rating,
		details, ev.Comments, ev.EvaluatedBy, ev.BatchID).Scan(&id)
	if err != nil {
		return Evaluation{}, err
	}
	return s.GetEvaluation(ctx, ev.TenantID, id)
}

func (s *Store) GetEvaluation(ctx context.Context, tenantID, id string) (Evaluation, error) {
	return scanEvaluation(s.DB.QueryRow(ctx, selectEvaluation+" WHERE v.tenant_id = $1 AND v.id = $2", tenantID, id))
}

func (s *Store) ListEvaluations(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Evaluation, error) {
	query, args := filterQuery(selectEvaluation, tenantID, filter)
	query += " ORDER BY v.year DESC, v.month DESC, v.score DESC, v.id LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) CountEvaluations(ctx context.Context, tenantID string, filter Filter) (int, error) {
	query, args := filterQuery("SELECT COUNT(1) FROM evaluations v", tenantID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) DeleteEvaluation(ctx context.Context, tenantID, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM evaluations WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) SetReportPath(ctx context.Context, tenantID, id, path string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE evaluations SET report_path = $3 WHERE tenant_id = $1 AND id = $2", tenantID, id, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func filterQuery(base, tenantID string, filter Filter) (string, []any) {
	query := base + " WHERE v.tenant_id = $1"
	args := []any{tenantID}
	if filter.EmployeeID != "" {
		query += " AND v.employee_id = $" + strconv.Itoa(len(args)+1)
		args = append(args, filter.EmployeeID)
	}
	if filter.Month > 0 {
		query += " AND v.month = $" + strconv.Itoa(len(args)+1)
		args = append(args, filter.Month)
	}
	if filter.Year > 0 {
		query += " AND v.year = $" + strconv.Itoa(len(args)+1)
		args = append(args, filter.Year)
	}
	if filter.Type != "" {
		query += " AND v.type = $" + strconv.Itoa(len(args)+1)
		args = append(args, filter.Type)
	}
	return query, args
}
