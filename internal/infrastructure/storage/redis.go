package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"intelpipeline/internal/domain"
	"intelpipeline/internal/ports"
)

// Redis key layout: one string per snapshot collection, a list for the event
// log and a hash for generated content.
const (
	redisKeyIntelligence = "intel:snapshot"
	redisKeyCompanies    = "intel:companies"
	redisKeyEventLog     = "intel:events"
	redisKeyContent      = "intel:content"
)

// RedisStore persists collections as JSON values in Redis. Company patches use
// optimistic locking (WATCH) so concurrent patches retry instead of clobbering.
type RedisStore struct {
	client        *redis.Client
	maxLogEntries int
	logMaxAge     time.Duration
	nowFunc       func() time.Time
}

var _ ports.RecordStore = (*RedisStore)(nil)

// NewRedisStore parses the URL, connects and pings.
func NewRedisStore(ctx context.Context, redisURL string, maxLogEntries int, logMaxAge time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if maxLogEntries <= 0 {
		maxLogEntries = domain.MaxLogEntries
	}
	return &RedisStore{
		client:        client,
		maxLogEntries: maxLogEntries,
		logMaxAge:     logMaxAge,
		nowFunc:       time.Now,
	}, nil
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Intelligence(ctx context.Context) (domain.IntelligenceSnapshot, error) {
	var snap domain.IntelligenceSnapshot
	if _, err := r.getJSON(ctx, redisKeyIntelligence, &snap); err != nil {
		return domain.IntelligenceSnapshot{}, err
	}
	return snap, nil
}

func (r *RedisStore) SetIntelligence(ctx context.Context, snap domain.IntelligenceSnapshot) error {
	return r.setJSON(ctx, redisKeyIntelligence, snap)
}

func (r *RedisStore) Companies(ctx context.Context) (domain.CompanyDataset, error) {
	ds := domain.CompanyDataset{}
	if _, err := r.getJSON(ctx, redisKeyCompanies, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (r *RedisStore) SetCompanies(ctx context.Context, ds domain.CompanyDataset) error {
	return r.setJSON(ctx, redisKeyCompanies, ds)
}

// UpsertCompany retries the read-modify-write under WATCH until it commits
// without interference.
func (r *RedisStore) UpsertCompany(ctx context.Context, id string, patch domain.CompanyPatch) error {
	const maxRetries = 5

	apply := func(tx *redis.Tx) error {
		ds := domain.CompanyDataset{}
		raw, err := tx.Get(ctx, redisKeyCompanies).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read companies: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ds); err != nil {
				return fmt.Errorf("decode companies: %w", err)
			}
		}

		company, ok := ds[id]
		if !ok {
			company = domain.Company{ID: id, Status: domain.StatusUnknown}
		}
		applyPatch(&company, patch)
		ds[id] = company

		encoded, err := json.Marshal(ds)
		if err != nil {
			return fmt.Errorf("encode companies: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKeyCompanies, encoded, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := r.client.Watch(ctx, apply, redisKeyCompanies)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("upsert company %s: too many write conflicts", id)
}

// AppendLog pushes onto the event list and trims it to the entry cap. Age
// pruning happens on read; the list bound alone keeps the key small.
func (r *RedisStore) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, redisKeyEventLog, encoded)
	pipe.LTrim(ctx, redisKeyEventLog, int64(-r.maxLogEntries), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}

func (r *RedisStore) RecentLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	raw, err := r.client.LRange(ctx, redisKeyEventLog, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}

	logs := make([]domain.LogEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.LogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode log entry: %w", err)
		}
		logs = append(logs, entry)
	}

	if r.logMaxAge > 0 {
		logs = pruneLogs(logs, 0, r.logMaxAge, r.nowFunc())
	}
	return recentFrom(logs, limit), nil
}

func (r *RedisStore) SaveContent(ctx context.Context, content domain.GeneratedContent) error {
	encoded, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	if err := r.client.HSet(ctx, redisKeyContent, content.ID, encoded).Err(); err != nil {
		return fmt.Errorf("write content %s: %w", content.ID, err)
	}
	return nil
}

func (r *RedisStore) ContentByID(ctx context.Context, id string) (domain.GeneratedContent, bool, error) {
	raw, err := r.client.HGet(ctx, redisKeyContent, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GeneratedContent{}, false, nil
	}
	if err != nil {
		return domain.GeneratedContent{}, false, fmt.Errorf("read content %s: %w", id, err)
	}

	var content domain.GeneratedContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.GeneratedContent{}, false, fmt.Errorf("decode content %s: %w", id, err)
	}
	return content, true, nil
}

func (r *RedisStore) ContentByLinkedID(ctx context.Context, linkedID string) (domain.GeneratedContent, bool, error) {
	if linkedID == "" {
		return domain.GeneratedContent{}, false, nil
	}

	all, err := r.client.HGetAll(ctx, redisKeyContent).Result()
	if err != nil {
		return domain.GeneratedContent{}, false, fmt.Errorf("read content set: %w", err)
	}
	for _, raw := range all {
		var content domain.GeneratedContent
		if err := json.Unmarshal([]byte(raw), &content); err != nil {
			return domain.GeneratedContent{}, false, fmt.Errorf("decode content: %w", err)
		}
		if content.LinkedID == linkedID {
			return content, true, nil
		}
	}
	return domain.GeneratedContent{}, false, nil
}

func (r *RedisStore) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStore) setJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
