package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/storage-analysis/pkg/errors"
)

// Dialect selects placeholder and insert-id handling for raw SQL.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// rebind rewrites ? placeholders into $n for postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const runColumns = `id, network, command, COALESCE(source, ''), COALESCE(estimator, ''), workers,
			   num_keys, size, compressed_size, scanned, matched, subjects,
			   COALESCE(report_path, ''), duration_ms, created_at`

// SQLRunRepository implements RunRepository on database/sql for MySQL and
// PostgreSQL.
type SQLRunRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewMySQLRunRepository creates a repository using MySQL syntax.
func NewMySQLRunRepository(db *sql.DB) *SQLRunRepository {
	return &SQLRunRepository{db: db, dialect: DialectMySQL}
}

// NewPostgresRunRepository creates a repository using PostgreSQL syntax.
func NewPostgresRunRepository(db *sql.DB) *SQLRunRepository {
	return &SQLRunRepository{db: db, dialect: DialectPostgres}
}

// SaveRun inserts the run and its categories in one transaction.
func (r *SQLRunRepository) SaveRun(ctx context.Context, run *Run) error {
	row, err := FromRunModel(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "begin transaction", err)
	}
	defer tx.Rollback()

	id, err := r.insertRun(ctx, tx, row)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "insert run", err)
	}

	query := r.dialect.rebind(`
		INSERT INTO analysis_run_categories (run_id, name, size, compressed_size, num_keys)
		VALUES (?, ?, ?, ?, ?)
	`)
	for _, c := range row.Categories {
		if _, err := tx.ExecContext(ctx, query, id, c.Name, c.Size, c.CompressedSize, c.NumKeys); err != nil {
			return apperrors.Wrap(apperrors.CodeDatabaseError, "insert run category", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "commit run", err)
	}

	run.ID = id
	run.CreatedAt = row.CreatedAt
	return nil
}

func (r *SQLRunRepository) insertRun(ctx context.Context, tx *sql.Tx, row *AnalysisRun) (int64, error) {
	query := `
		INSERT INTO analysis_runs (network, command, source, estimator, workers,
			num_keys, size, compressed_size, scanned, matched, subjects,
			report_path, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		row.Network, row.Command, row.Source, row.Estimator, row.Workers,
		row.NumKeys, row.Size, row.CompressedSize, row.Scanned, row.Matched, row.Subjects,
		row.ReportPath, row.DurationMs, row.CreatedAt,
	}

	if r.dialect == DialectPostgres {
		var id int64
		err := tx.QueryRowContext(ctx, r.dialect.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRun retrieves a run by ID.
func (r *SQLRunRepository) GetRun(ctx context.Context, id int64) (*Run, error) {
	query := r.dialect.rebind(`SELECT ` + runColumns + ` FROM analysis_runs WHERE id = ?`)

	row, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "run not found: %d", id)
		}
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "get run", err)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`
		SELECT name, size, compressed_size, num_keys
		FROM analysis_run_categories
		WHERE run_id = ?
		ORDER BY size DESC, name
	`), id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "get run categories", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c AnalysisRunCategory
		if err := rows.Scan(&c.Name, &c.Size, &c.CompressedSize, &c.NumKeys); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "scan run category", err)
		}
		row.Categories = append(row.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "iterate run categories", err)
	}

	return row.ToModel()
}

// ListRuns returns the newest runs first.
func (r *SQLRunRepository) ListRuns(ctx context.Context, network string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs`
	var args []interface{}
	if network != "" {
		query += ` WHERE network = ?`
		args = append(args, network)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "list runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		row, err := scanRun(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "scan run", err)
		}
		run, err := row.ToModel()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "iterate runs", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (*AnalysisRun, error) {
	row := &AnalysisRun{}
	err := s.Scan(
		&row.ID, &row.Network, &row.Command, &row.Source, &row.Estimator, &row.Workers,
		&row.NumKeys, &row.Size, &row.CompressedSize, &row.Scanned, &row.Matched, &row.Subjects,
		&row.ReportPath, &row.DurationMs, &row.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}
