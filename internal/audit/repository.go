// Package audit keeps the gateway's trail of terminal request outcomes in
// the gateway_audit table.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Dispositions recorded in addition to the pending registry's own.
const (
	DispositionPublishFailed = "publish_failed"
)

// Record is a single audit trail entry.
type Record struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Action        string    `json:"action"`
	Disposition   string    `json:"disposition"`
	Status        int       `json:"status"`
	RoutingKey    string    `json:"routing_key,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	WaitMS        float64   `json:"wait_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// Filter controls which records List returns.
type Filter struct {
	CorrelationID string
	Action        string
	Disposition   string
	Limit         int // default 50, max 200
	Offset        int
}

// ListResult is a page of records.
type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository stores and lists audit records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository implements Repository on SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on db. The gateway_audit
// migration must have been applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts rec, filling ID and CreatedAt when empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = "aud-" + uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gateway_audit (id, correlation_id, action, disposition, status, routing_key, detail, wait_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, nullableString(rec.CorrelationID), rec.Action, rec.Disposition, rec.Status,
		nullableString(rec.RoutingKey), nullableString(rec.Detail), rec.WaitMS,
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns records matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.CorrelationID != "" {
		conditions = append(conditions, "correlation_id = ?")
		args = append(args, filter.CorrelationID)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Disposition != "" {
		conditions = append(conditions, "disposition = ?")
		args = append(args, filter.Disposition)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM gateway_audit " + where //nolint:gosec // WHERE built from fixed conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit records: %w", err)
	}

	query := "SELECT id, correlation_id, action, disposition, status, routing_key, detail, wait_ms, created_at FROM gateway_audit " +
		where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from fixed conditions
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var correlationID, routingKey, detail sql.NullString
		var createdAt string
		if err := rows.Scan(&rec.ID, &correlationID, &rec.Action, &rec.Disposition, &rec.Status,
			&routingKey, &detail, &rec.WaitMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		rec.CorrelationID = correlationID.String
		rec.RoutingKey = routingKey.String
		rec.Detail = detail.String

		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing audit timestamp %q: %w", createdAt, err)
		}
		rec.CreatedAt = t
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit records: %w", err)
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
