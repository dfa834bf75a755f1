package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

const (
	// DBPathKey is the viper key for the database location.
	DBPathKey = "visits.db_path"

	// fixed width so stored timestamps sort as text
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Sink stores finished visit aggregates and batch results.
type Sink struct {
	db *sql.DB
}

var (
	_ ports.VisitSink   = (*Sink)(nil)
	_ ports.VisitReader = (*Sink)(nil)
)

// Open creates the database file if needed and applies the schema. ":memory:"
// keeps everything in process.
func Open(path string) (*Sink, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		if err := ensurePrivateFile(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Sink{db: db}, nil
}

func ensurePrivateFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat db path: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("create db file: %w", err)
	}
	return f.Close()
}

func (s *Sink) Close() error {
	return s.db.Close()
}

// SaveVisit writes the aggregate and its slots in one transaction. Saving the
// same visit again replaces it.
func (s *Sink) SaveVisit(ctx context.Context, visit domain.VisitAggregate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin visit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM visits WHERE id = ?`, string(visit.ID)); err != nil {
		return fmt.Errorf("replace visit %s: %w", visit.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO visits (id, session_id, ref, started_at, completed_at, abandoned, timed_out, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(visit.ID),
		string(visit.SessionID),
		string(visit.Ref),
		formatTime(visit.StartedAt),
		formatTime(visit.CompletedAt),
		visit.Abandoned,
		visit.TimedOut,
		visit.SucceededCount(),
		visit.FailedCount(),
	)
	if err != nil {
		return fmt.Errorf("insert visit %s: %w", visit.ID, err)
	}

	for i, slot := range visit.Slots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO visit_slots (visit_id, position, name, status, data, reason, resolved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(visit.ID), i, string(slot.Name), slot.Status.String(), slot.Data, slot.Reason, formatTime(slot.ResolvedAt),
		)
		if err != nil {
			return fmt.Errorf("insert slot %s: %w", slot.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit visit %s: %w", visit.ID, err)
	}
	return nil
}

func (s *Sink) SaveBatch(ctx context.Context, result domain.BatchResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (session_id, batch, items_loaded, failed, reason, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, batch) DO UPDATE SET
			items_loaded = excluded.items_loaded,
			failed = excluded.failed,
			reason = excluded.reason,
			completed_at = excluded.completed_at`,
		string(result.SessionID), result.Batch, result.ItemsLoaded, result.Failed, result.Reason, formatTime(result.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save batch %d: %w", result.Batch, err)
	}
	return nil
}

// ListVisits returns the most recently completed visits first. limit <= 0
// returns all of them.
func (s *Sink) ListVisits(ctx context.Context, limit int) ([]domain.VisitAggregate, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, ref, started_at, completed_at, abandoned, timed_out
		FROM visits
		ORDER BY completed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	var visits []domain.VisitAggregate
	for rows.Next() {
		var (
			visit                domain.VisitAggregate
			id, session, ref     string
			startedAt, completed string
		)
		if err := rows.Scan(&id, &session, &ref, &startedAt, &completed, &visit.Abandoned, &visit.TimedOut); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		visit.ID = domain.VisitID(id)
		visit.SessionID = domain.SessionID(session)
		visit.Ref = domain.ItemRef(ref)
		visit.StartedAt = parseTime(startedAt)
		visit.CompletedAt = parseTime(completed)
		visits = append(visits, visit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}

	for i := range visits {
		slots, err := s.slots(ctx, visits[i].ID)
		if err != nil {
			return nil, err
		}
		visits[i].Slots = slots
	}

	return visits, nil
}

// ListBatches returns the batch results of one session in batch order.
func (s *Sink) ListBatches(ctx context.Context, sessionID domain.SessionID) ([]domain.BatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch, items_loaded, failed, reason, completed_at
		FROM batches
		WHERE session_id = ?
		ORDER BY batch`, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var results []domain.BatchResult
	for rows.Next() {
		result := domain.BatchResult{SessionID: sessionID}
		var completed string
		if err := rows.Scan(&result.Batch, &result.ItemsLoaded, &result.Failed, &result.Reason, &completed); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		result.CompletedAt = parseTime(completed)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}

	return results, nil
}

func (s *Sink) slots(ctx context.Context, visit domain.VisitID) ([]domain.Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, status, data, reason, resolved_at
		FROM visit_slots
		WHERE visit_id = ?
		ORDER BY position`, string(visit))
	if err != nil {
		return nil, fmt.Errorf("query slots of %s: %w", visit, err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var name, status, resolvedAt string
		var slot domain.Slot
		if err := rows.Scan(&name, &status, &slot.Data, &slot.Reason, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slot.Name = domain.SlotName(name)
		slot.Status = parseStatus(status)
		slot.ResolvedAt = parseTime(resolvedAt)
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

func parseStatus(raw string) domain.SlotStatus {
	switch raw {
	case domain.SlotSucceeded.String():
		return domain.SlotSucceeded
	case domain.SlotFailed.String():
		return domain.SlotFailed
	default:
		return domain.SlotPending
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
