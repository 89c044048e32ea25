package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/gyaneshwarpardhi/hookscope/internal/apperr"
	"github.com/gyaneshwarpardhi/hookscope/internal/event"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MaxPurgeDays bounds the retention window PurgeOlderThan computes with.
const MaxPurgeDays = 700_000

type webhookRecord struct {
	bun.BaseModel `bun:"table:webhooks,alias:w"`

	ID        string    `bun:"id,pk"`
	EventType string    `bun:"event_type,notnull"`
	Headers   string    `bun:"headers,notnull"`
	Payload   string    `bun:"payload,notnull"`
	SourceIP  string    `bun:"source_ip,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (r *webhookRecord) toEvent() (*event.Webhook, error) {
	headers := map[string]string{}
	if r.Headers != "" {
		if err := json.Unmarshal([]byte(r.Headers), &headers); err != nil {
			return nil, fmt.Errorf("decode headers of %s: %w", r.ID, err)
		}
	}
	return &event.Webhook{
		ID:        r.ID,
		EventType: r.EventType,
		Headers:   headers,
		Payload:   json.RawMessage(r.Payload),
		SourceIP:  r.SourceIP,
		CreatedAt: r.CreatedAt.UTC(),
	}, nil
}

// SQLStore is a Store backed by one relational table, on SQLite or Postgres.
type SQLStore struct {
	db  *bun.DB
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

// Option customizes a SQLStore.
type Option func(*SQLStore)

// WithClock replaces the wall clock used to stamp and age records.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) { s.now = now }
}

// Open connects to the database, applies migrations and returns the store.
func Open(driver, dsn string, opts ...Option) (*SQLStore, error) {
	var db *bun.DB
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3", "":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, apperr.Storage(err, "open")
		}
		// SQLite allows one writer; a single connection also keeps
		// in-memory databases alive and shared.
		sqldb.SetMaxOpenConns(1)
		if err := migrateSQLite(sqldb); err != nil {
			_ = sqldb.Close()
			return nil, apperr.Storage(err, "migrate")
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres, "postgresql", "pgx":
		if err := migratePostgres(dsn); err != nil {
			return nil, apperr.Storage(err, "migrate")
		}
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, apperr.Storage(err, "open")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, apperr.Configuration(fmt.Sprintf("unsupported database driver %q", driver))
	}
	return New(db, opts...), nil
}

// New wraps an already migrated bun.DB.
func New(db *bun.DB, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *bun.DB {
	return s.db
}

// stamp returns a creation time strictly after every previous one handed out
// by this store, at the microsecond resolution both dialects keep.
func (s *SQLStore) stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *SQLStore) Create(ctx context.Context, in event.NewWebhook) (*event.Webhook, error) {
	headers := in.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	rawHeaders, err := json.Marshal(headers)
	if err != nil {
		return nil, apperr.Validation("headers are not serializable", map[string]any{"err": err.Error()})
	}
	payload := in.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if !json.Valid(payload) {
		return nil, apperr.Validation("payload is not valid JSON", nil)
	}
	eventType := in.EventType
	if eventType == "" {
		eventType = event.UnknownType
	}

	rec := &webhookRecord{
		ID:        uuid.NewString(),
		EventType: eventType,
		Headers:   string(rawHeaders),
		Payload:   string(payload),
		SourceIP:  in.SourceIP,
		CreatedAt: s.stamp(),
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, apperr.Storage(err, "create")
	}
	return &event.Webhook{
		ID:        rec.ID,
		EventType: rec.EventType,
		Headers:   headers,
		Payload:   payload,
		SourceIP:  rec.SourceIP,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]*event.Webhook, error) {
	opts = opts.Normalize()
	var records []webhookRecord
	q := s.db.NewSelect().
		Model(&records).
		OrderExpr("created_at DESC").
		Limit(opts.Limit).
		Offset(opts.Offset)
	if opts.EventType != "" {
		q = q.Where("event_type = ?", opts.EventType)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, apperr.Storage(err, "list")
	}
	out := make([]*event.Webhook, 0, len(records))
	for i := range records {
		wh, err := records[i].toEvent()
		if err != nil {
			return nil, apperr.Storage(err, "list")
		}
		out = append(out, wh)
	}
	return out, nil
}

func (s *SQLStore) Count(ctx context.Context, eventType string) (int64, error) {
	q := s.db.NewSelect().Model((*webhookRecord)(nil))
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, apperr.Storage(err, "count")
	}
	return int64(n), nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*event.Webhook, error) {
	var rec webhookRecord
	err := s.db.NewSelect().Model(&rec).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("webhook not found", id)
	}
	if err != nil {
		return nil, apperr.Storage(err, "get")
	}
	wh, err := rec.toEvent()
	if err != nil {
		return nil, apperr.Storage(err, "get")
	}
	return wh, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.NewDelete().Model((*webhookRecord)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return false, apperr.Storage(err, "delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage(err, "delete")
	}
	return n > 0, nil
}

type eventTypeCount struct {
	EventType string `bun:"event_type"`
	Total     int64  `bun:"total"`
}

// Stats counts everything at query time inside one transaction so the figures
// agree with each other.
func (s *SQLStore) Stats(ctx context.Context) (*event.Stats, error) {
	now := s.now().UTC()
	dayAgo := ceilMicro(now.Add(-24 * time.Hour))
	hourAgo := ceilMicro(now.Add(-time.Hour))
	stats := &event.Stats{ByEventType: map[string]int64{}}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		total, err := tx.NewSelect().Model((*webhookRecord)(nil)).Count(ctx)
		if err != nil {
			return err
		}
		last24h, err := tx.NewSelect().Model((*webhookRecord)(nil)).
			Where("created_at >= ?", dayAgo).
			Count(ctx)
		if err != nil {
			return err
		}
		recent, err := tx.NewSelect().Model((*webhookRecord)(nil)).
			Where("created_at >= ?", hourAgo).
			Count(ctx)
		if err != nil {
			return err
		}
		var rows []eventTypeCount
		if err := tx.NewSelect().Model((*webhookRecord)(nil)).
			Column("event_type").
			ColumnExpr("COUNT(*) AS total").
			Group("event_type").
			Scan(ctx, &rows); err != nil {
			return err
		}
		stats.Total = int64(total)
		stats.Last24h = int64(last24h)
		stats.RecentHour = int64(recent)
		for _, row := range rows {
			stats.ByEventType[row.EventType] = row.Total
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Storage(err, "stats")
	}
	return stats, nil
}

// PurgeOlderThan deletes records created more than days*24h ago. Day counts
// beyond MaxPurgeDays are clamped; nothing that old can exist.
func (s *SQLStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, apperr.Validation("retention days must not be negative", map[string]any{"days": days})
	}
	days = min(days, MaxPurgeDays)
	// Calendar arithmetic in UTC: a day is always 24h and cannot overflow a Duration.
	cutoff := ceilMicro(s.now().UTC().AddDate(0, 0, -days))
	res, err := s.db.NewDelete().Model((*webhookRecord)(nil)).Where("created_at < ?", cutoff).Exec(ctx)
	if err != nil {
		return 0, apperr.Storage(err, "purge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage(err, "purge")
	}
	return n, nil
}

// ceilMicro rounds t up to the microsecond grid records are stamped on, so a
// bound compares the same way before and after truncation.
func ceilMicro(t time.Time) time.Time {
	c := t.Truncate(time.Microsecond)
	if c.Before(t) {
		c = c.Add(time.Microsecond)
	}
	return c
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
