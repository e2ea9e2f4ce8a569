package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"intelpipeline/internal/domain"
	"intelpipeline/internal/ports"
)

// Record keys inside the records table. One row per logical collection, plus
// one row per generated content item.
const (
	keyIntelligence  = "intelligence_snapshot"
	keyCompanies     = "company_dataset"
	keyEventLog      = "event_log"
	contentKeyPrefix = "content:"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS records (
    name       TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists every collection as a JSONB row in a single records
// table. Read-modify-write sequences run in a transaction holding a row lock.
type PostgresStore struct {
	db            *sql.DB
	builder       sq.StatementBuilderType
	maxLogEntries int
	logMaxAge     time.Duration
	nowFunc       func() time.Time
}

var _ ports.RecordStore = (*PostgresStore)(nil)

// NewPostgresStore connects, pings and ensures the records table exists.
func NewPostgresStore(ctx context.Context, dsn string, maxLogEntries int, logMaxAge time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createRecordsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure records table: %w", err)
	}

	if maxLogEntries <= 0 {
		maxLogEntries = domain.MaxLogEntries
	}
	return &PostgresStore{
		db:            db,
		builder:       sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		maxLogEntries: maxLogEntries,
		logMaxAge:     logMaxAge,
		nowFunc:       time.Now,
	}, nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Intelligence(ctx context.Context) (domain.IntelligenceSnapshot, error) {
	var snap domain.IntelligenceSnapshot
	ok, err := p.getRecord(ctx, keyIntelligence, &snap)
	if err != nil || !ok {
		return domain.IntelligenceSnapshot{}, err
	}
	return snap, nil
}

func (p *PostgresStore) SetIntelligence(ctx context.Context, snap domain.IntelligenceSnapshot) error {
	return p.putRecord(ctx, keyIntelligence, snap)
}

func (p *PostgresStore) Companies(ctx context.Context) (domain.CompanyDataset, error) {
	ds := domain.CompanyDataset{}
	if _, err := p.getRecord(ctx, keyCompanies, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (p *PostgresStore) SetCompanies(ctx context.Context, ds domain.CompanyDataset) error {
	return p.putRecord(ctx, keyCompanies, ds)
}

// UpsertCompany patches one company inside a row-locked transaction so two
// concurrent patches never overwrite each other's companies.
func (p *PostgresStore) UpsertCompany(ctx context.Context, id string, patch domain.CompanyPatch) error {
	return p.modifyRecord(ctx, keyCompanies, func(raw []byte) (any, error) {
		ds := domain.CompanyDataset{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ds); err != nil {
				return nil, fmt.Errorf("decode company dataset: %w", err)
			}
		}
		company, ok := ds[id]
		if !ok {
			company = domain.Company{ID: id, Status: domain.StatusUnknown}
		}
		applyPatch(&company, patch)
		ds[id] = company
		return ds, nil
	})
}

func (p *PostgresStore) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	return p.modifyRecord(ctx, keyEventLog, func(raw []byte) (any, error) {
		var logs []domain.LogEntry
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &logs); err != nil {
				return nil, fmt.Errorf("decode event log: %w", err)
			}
		}
		logs = append(logs, entry)
		return pruneLogs(logs, p.maxLogEntries, p.logMaxAge, p.nowFunc()), nil
	})
}

func (p *PostgresStore) RecentLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	var logs []domain.LogEntry
	if _, err := p.getRecord(ctx, keyEventLog, &logs); err != nil {
		return nil, err
	}
	return recentFrom(logs, limit), nil
}

func (p *PostgresStore) SaveContent(ctx context.Context, content domain.GeneratedContent) error {
	return p.putRecord(ctx, contentKeyPrefix+content.ID, content)
}

func (p *PostgresStore) ContentByID(ctx context.Context, id string) (domain.GeneratedContent, bool, error) {
	var content domain.GeneratedContent
	ok, err := p.getRecord(ctx, contentKeyPrefix+id, &content)
	return content, ok, err
}

// ContentByLinkedID scans content rows for a matching link. The content set is
// small (one row per tracked company plus insights), so a scan is acceptable.
func (p *PostgresStore) ContentByLinkedID(ctx context.Context, linkedID string) (domain.GeneratedContent, bool, error) {
	if linkedID == "" {
		return domain.GeneratedContent{}, false, nil
	}

	query, args, err := p.builder.
		Select("value").
		From("records").
		Where(sq.Like{"name": contentKeyPrefix + "%"}).
		ToSql()
	if err != nil {
		return domain.GeneratedContent{}, false, fmt.Errorf("build content query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.GeneratedContent{}, false, fmt.Errorf("query content records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return domain.GeneratedContent{}, false, fmt.Errorf("scan content record: %w", err)
		}
		var content domain.GeneratedContent
		if err := json.Unmarshal(raw, &content); err != nil {
			return domain.GeneratedContent{}, false, fmt.Errorf("decode content record: %w", err)
		}
		if content.LinkedID == linkedID {
			return content, true, nil
		}
	}
	return domain.GeneratedContent{}, false, rows.Err()
}

func (p *PostgresStore) getRecord(ctx context.Context, name string, dest any) (bool, error) {
	query, args, err := p.builder.
		Select("value").
		From("records").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select %s: %w", name, err)
	}

	var raw []byte
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read record %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode record %s: %w", name, err)
	}
	return true, nil
}

func (p *PostgresStore) putRecord(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", name, err)
	}

	query, args, err := p.builder.
		Insert("records").
		Columns("name", "value", "updated_at").
		Values(name, raw, p.nowFunc().UTC()).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert %s: %w", name, err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write record %s: %w", name, err)
	}
	return nil
}

// modifyRecord runs mutate over the current value of name inside a transaction
// holding the row lock, then writes the result back.
func (p *PostgresStore) modifyRecord(ctx context.Context, name string, mutate func(raw []byte) (any, error)) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query, args, err := p.builder.
		Select("value").
		From("records").
		Where(sq.Eq{"name": name}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("build locked select %s: %w", name, err)
	}

	var raw []byte
	err = tx.QueryRowContext(ctx, query, args...).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read record %s: %w", name, err)
	}

	next, err := mutate(raw)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", name, err)
	}

	upsert, upsertArgs, err := p.builder.
		Insert("records").
		Columns("name", "value", "updated_at").
		Values(name, encoded, p.nowFunc().UTC()).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, upsert, upsertArgs...); err != nil {
		return fmt.Errorf("write record %s: %w", name, err)
	}

	return tx.Commit()
}
