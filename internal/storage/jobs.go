package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/jobtrack/internal/job"
	"github.com/kalambet/jobtrack/internal/query"
)

// timeLayout is fixed-width so created_at sorts correctly as text and the
// year and month can be sliced out of it in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const jobColumns = `id, owner_id, company, position, location, status, type, created_at, updated_at`

// orderColumns maps sortable fields to trusted column names.
var orderColumns = map[query.Field]string{
	query.FieldCreatedAt: "created_at",
	query.FieldPosition:  "position",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (job.Record, error) {
	var (
		r                    job.Record
		status, typ          string
		createdAt, updatedAt string
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Company, &r.Position, &r.Location, &status, &typ, &createdAt, &updatedAt); err != nil {
		return job.Record{}, err
	}
	r.Status = job.Status(status)
	r.Type = job.Type(typ)

	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return job.Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return job.Record{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return r, nil
}

// --- Jobs ---

// CreateJob inserts r and returns the stored record. A missing id, status,
// type or timestamp is filled in.
func (s *Store) CreateJob(ctx context.Context, r job.Record) (job.Record, error) {
	if r.OwnerID == "" {
		return job.Record{}, ErrMissingOwner
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = job.StatusPending
	}
	if r.Type == "" {
		r.Type = job.TypeFullTime
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.Company, r.Position, r.Location, string(r.Status), string(r.Type),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return job.Record{}, fmt.Errorf("inserting job: %w", err)
	}
	return r, nil
}

// GetJob returns the record with the given id regardless of owner.
func (s *Store) GetJob(ctx context.Context, id string) (job.Record, error) {
	r, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return job.Record{}, ErrNotFound
	}
	if err != nil {
		return job.Record{}, err
	}
	return r, nil
}

// UpdateJob overwrites the mutable fields of the record with r.ID and bumps
// its updated_at. Owner and creation time never change.
func (s *Store) UpdateJob(ctx context.Context, r job.Record) (job.Record, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET company = ?, position = ?, location = ?, status = ?, type = ?, updated_at = ?
		WHERE id = ?`,
		r.Company, r.Position, r.Location, string(r.Status), string(r.Type), formatTime(now), r.ID,
	)
	if err != nil {
		return job.Record{}, fmt.Errorf("updating job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return job.Record{}, err
	}
	if n == 0 {
		return job.Record{}, ErrNotFound
	}
	return s.GetJob(ctx, r.ID)
}

// DeleteJob removes the record with the given id.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppStats counts distinct owners and all records across the store.
func (s *Store) AppStats(ctx context.Context) (AppStats, error) {
	var st AppStats
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT owner_id), COUNT(*) FROM jobs`).
		Scan(&st.TotalOwners, &st.TotalJobs)
	if err != nil {
		return AppStats{}, fmt.Errorf("counting app stats: %w", err)
	}
	return st, nil
}

// --- Query store ---

// whereClause renders f as a SQL predicate. The owner constraint is always present.
func whereClause(f query.Filter) (string, []any) {
	conds := []string{"owner_id = ?"}
	args := []any{f.OwnerID}

	if f.Search != "" {
		conds = append(conds, "(instr(unicode_lower(company), unicode_lower(?)) > 0 OR instr(unicode_lower(position), unicode_lower(?)) > 0)")
		args = append(args, f.Search, f.Search)
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, string(*f.Type))
	}
	return strings.Join(conds, " AND "), args
}

// CountJobs returns the number of records matching f.
func (s *Store) CountJobs(ctx context.Context, f query.Filter) (int, error) {
	where, args := whereClause(f)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE `+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindJobs returns one window of the records matching f in the order o,
// with the id as tie-breaker.
func (s *Store) FindJobs(ctx context.Context, f query.Filter, o query.Ordering, skip, limit int) ([]job.Record, error) {
	col, ok := orderColumns[o.Field]
	if !ok {
		return nil, fmt.Errorf("unsupported sort field %q", o.Field)
	}
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	if skip < 0 {
		skip = 0
	}

	where, args := whereClause(f)
	args = append(args, limit, skip)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE `+where+
			` ORDER BY `+col+` `+dir+`, id `+dir+` LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []job.Record
	for rows.Next() {
		r, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountJobsByStatus groups the records matching f by status.
func (s *Store) CountJobsByStatus(ctx context.Context, f query.Filter) ([]query.StatusCount, error) {
	where, args := whereClause(f)
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM jobs WHERE `+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []query.StatusCount
	for rows.Next() {
		var c query.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// CountJobsByMonth groups the records matching f by the UTC year and month
// of created_at.
func (s *Store) CountJobsByMonth(ctx context.Context, f query.Filter) ([]query.MonthCount, error) {
	where, args := whereClause(f)
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(substr(created_at, 1, 4) AS INTEGER) AS year,
		       CAST(substr(created_at, 6, 2) AS INTEGER) AS month,
		       COUNT(*)
		FROM jobs WHERE `+where+`
		GROUP BY year, month
		ORDER BY year DESC, month DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []query.MonthCount
	for rows.Next() {
		var c query.MonthCount
		if err := rows.Scan(&c.Year, &c.Month, &c.Count); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
