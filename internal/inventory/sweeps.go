package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

// SweepRepository provides access to sweep history.
type SweepRepository interface {
	// RecordSweep stores the summary of one subnet sweep.
	RecordSweep(ctx context.Context, sum models.SweepSummary) error

	// Get returns a single sweep by ID.
	Get(ctx context.Context, id string) (*SweepRecord, error)

	// List returns a paginated list of sweeps ordered by start time.
	List(ctx context.Context, opts ListOptions) (*ListResult[SweepRecord], error)

	// ListRun returns every sweep of one run in start order.
	ListRun(ctx context.Context, runID string) ([]SweepRecord, error)
}

// Compile-time interface guard.
var _ SweepRepository = (*SQLiteSweepRepository)(nil)

// SQLiteSweepRepository implements SweepRepository on the sweeps table.
type SQLiteSweepRepository struct {
	db *sql.DB
}

// NewSQLiteSweepRepository creates a SweepRepository. The sweeps table must
// already exist (see Migrations).
func NewSQLiteSweepRepository(db *sql.DB) *SQLiteSweepRepository {
	return &SQLiteSweepRepository{db: db}
}

const sweepColumns = `id, run_id, interface, subnet, usable, online, skipped, started_at, duration_ms`

func (r *SQLiteSweepRepository) RecordSweep(ctx context.Context, sum models.SweepSummary) error {
	online := make([]string, len(sum.Online))
	for i, a := range sum.Online {
		online[i] = a.String()
	}
	onlineJSON, err := json.Marshal(online)
	if err != nil {
		return fmt.Errorf("encode online hosts: %w", err)
	}

	started := sum.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sweeps (`+sweepColumns+`, online_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sum.RunID, sum.Interface, sum.Subnet.String(), sum.Usable,
		string(onlineJSON), sum.Skipped, started.UTC().Format(time.RFC3339Nano),
		sum.Duration.Milliseconds(), len(online),
	)
	if err != nil {
		return fmt.Errorf("record sweep %s: %w", sum.Subnet, err)
	}
	return nil
}

func (r *SQLiteSweepRepository) Get(ctx context.Context, id string) (*SweepRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sweepColumns+` FROM sweeps WHERE id = ?`, id)
	rec, err := scanSweep(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get sweep %q: %w", id, err)
	}
	return rec, nil
}

func (r *SQLiteSweepRepository) List(ctx context.Context, opts ListOptions) (*ListResult[SweepRecord], error) {
	opts = normalizeListOptions(opts)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sweeps`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count sweeps: %w", err)
	}

	orderDir := "DESC"
	if opts.SortOrder == "asc" {
		orderDir = "ASC"
	}

	//nolint:gosec // orderDir is validated above
	query := fmt.Sprintf(`SELECT `+sweepColumns+` FROM sweeps ORDER BY started_at %s LIMIT ? OFFSET ?`, orderDir)

	rows, err := r.db.QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list sweeps: %w", err)
	}
	items, err := collectSweeps(rows)
	if err != nil {
		return nil, err
	}
	return &ListResult[SweepRecord]{Items: items, Total: total}, nil
}

func (r *SQLiteSweepRepository) ListRun(ctx context.Context, runID string) ([]SweepRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sweepColumns+` FROM sweeps WHERE run_id = ? ORDER BY started_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run %q: %w", runID, err)
	}
	return collectSweeps(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSweep(row rowScanner) (*SweepRecord, error) {
	var (
		rec        SweepRecord
		onlineJSON string
		startedAt  string
		durationMs int64
	)
	if err := row.Scan(&rec.ID, &rec.RunID, &rec.Interface, &rec.Subnet, &rec.Usable,
		&onlineJSON, &rec.Skipped, &startedAt, &durationMs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(onlineJSON), &rec.Online); err != nil {
		return nil, fmt.Errorf("decode online hosts: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	rec.StartedAt = t
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}

func collectSweeps(rows *sql.Rows) ([]SweepRecord, error) {
	defer rows.Close()

	items := []SweepRecord{}
	for rows.Next() {
		rec, err := scanSweep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweeps: %w", err)
	}
	return items, nil
}
