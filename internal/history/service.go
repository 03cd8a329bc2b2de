// Package history persists finished transfers so the UI can show what
// moved where, when, and what went wrong.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/transfer"
)

// ErrNotFound is returned when a batch id has no record.
var ErrNotFound = errors.New("history entry not found")

const batchColumns = `id, operation, status, initiated_by, source_panel, dest_panel,
	dest_path, total_items, successes, failures, skipped, cancelled, started_at, finished_at`

// Service reads and writes transfer history.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new history service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// RecordResult stores a finished transfer and its per-item outcomes in
// one transaction. It implements transfer.Recorder.
func (s *Service) RecordResult(ctx context.Context, res transfer.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transfer_batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Operation, string(res.Status), res.Trigger, res.SourcePanel,
		res.DestPanel, res.DestPath, len(res.Items), res.Successes, res.Failures,
		res.Skipped, res.Cancelled, res.StartedAt, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transfer_items (batch_id, position, source, destination, status, error, overwrote)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range res.Items {
		_, err := stmt.ExecContext(ctx, res.ID, i, item.Source, item.Destination,
			string(item.Status), item.Error, item.Overwrote)
		if err != nil {
			return fmt.Errorf("failed to insert item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Debug().
		Str("batch", res.ID).
		Int("items", len(res.Items)).
		Msg("transfer recorded")
	return nil
}

// List returns batches newest first, with pagination and optional
// operation/status filters. Items are not loaded.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResponse, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 50
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}

	where, args := listFilter(opts)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transfer_batches"+where, args...).Scan(&total)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + batchColumns + " FROM transfer_batches" + where +
		" ORDER BY started_at DESC, id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]*Batch, 0, opts.PageSize)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int(total) / opts.PageSize
	if int(total)%opts.PageSize > 0 {
		totalPages++
	}

	return &ListResponse{
		Items:      batches,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// Get returns one batch with its items.
func (s *Service) Get(ctx context.Context, id string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+batchColumns+" FROM transfer_batches WHERE id = ?", id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, source, destination, status, error, overwrote
		FROM transfer_items WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		err := rows.Scan(&item.Position, &item.Source, &item.Destination,
			&item.Status, &item.Error, &item.Overwrote)
		if err != nil {
			return nil, err
		}
		b.Items = append(b.Items, item)
	}
	return b, rows.Err()
}

// Clear deletes all history and returns how many batches were removed.
// Items go with their batches via the cascade.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transfer_batches")
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info().Int64("batches", n).Msg("history cleared")
	}
	return n, nil
}

// PruneOlderThan deletes batches that started more than the given
// number of days ago. The scheduler runs this daily.
func (s *Service) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM transfer_batches WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info().Int64("batches", n).Int("days", days).Msg("old history pruned")
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row rowScanner) (*Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.Operation, &b.Status, &b.InitiatedBy, &b.SourcePanel,
		&b.DestPanel, &b.DestPath, &b.TotalItems, &b.Successes, &b.Failures,
		&b.Skipped, &b.Cancelled, &b.StartedAt, &b.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func listFilter(opts ListOptions) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if opts.Operation != "" {
		conds = append(conds, "operation = ?")
		args = append(args, opts.Operation)
	}
	if opts.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, opts.Status)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
