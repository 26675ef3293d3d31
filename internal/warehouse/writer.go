// Package warehouse persists canonical disclosure records into a normalized
// relational star schema: dimension rows deduplicated by natural key and
// resolved to surrogate ids, fact rows appended with full foreign-key
// linkage. Processing is strictly sequential with a single connection
// owner — the lookup-or-insert protocol is only safe because every lookup
// observes all prior inserts.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/marknadsdata/insider-crawler/internal/crawl"
	"github.com/marknadsdata/insider-crawler/internal/metrics"
	"github.com/marknadsdata/insider-crawler/internal/normalize"
)

// Config controls the Postgres connection pool behind the writer.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the narrow slice of pgxpool.Pool the writer needs. pgxmock
// satisfies it for tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Writer implements the crawl.Stage interface on top of Postgres.
type Writer struct {
	pool   pgxPool
	logger *zap.Logger
}

// NewWriter creates a Postgres-backed Writer using the provided config.
func NewWriter(ctx context.Context, cfg Config, logger *zap.Logger) (*Writer, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Writer{pool: pool, logger: logger}, nil
}

// NewWriterWithPool constructs a Writer from an existing pool (primarily
// for testing).
func NewWriterWithPool(pool pgxPool, logger *zap.Logger) (*Writer, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Writer{pool: pool, logger: logger}, nil
}

// Open verifies database connectivity before the first record arrives.
func (w *Writer) Open(ctx context.Context) error {
	if err := w.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (w *Writer) Close() error {
	if w == nil || w.pool == nil {
		return nil
	}
	w.pool.Close()
	return nil
}

// Process resolves the record's dimensions — independent ones first, then
// the company-scoped ones — and appends the fact row. Each insert commits
// individually; a fault mid-record leaves earlier dimension rows persisted,
// which is harmless because they are reusable on any later attempt.
func (w *Writer) Process(ctx context.Context, rec normalize.Record) error {
	companyID, err := w.companyID(ctx, rec.Issuer)
	if err != nil {
		return w.fault(StageCompany, err)
	}
	roleID, err := w.roleID(ctx, rec.Role)
	if err != nil {
		return w.fault(StageRole, err)
	}
	publicationDateID, err := w.dateID(ctx, rec.PublicationDate)
	if err != nil {
		return w.fault(StageDate, err)
	}
	purchaseDateID, err := w.dateID(ctx, rec.TransactionDate)
	if err != nil {
		return w.fault(StageDate, err)
	}
	currencyID, err := w.currencyID(ctx, rec.Currency)
	if err != nil {
		return w.fault(StageCurrency, err)
	}
	instrumentID, err := w.instrumentID(ctx, companyID, rec)
	if err != nil {
		return w.fault(StageInstrument, err)
	}
	personID, err := w.personID(ctx, companyID, roleID, rec.PersonName)
	if err != nil {
		return w.fault(StagePerson, err)
	}

	query := `
INSERT INTO transactions (
	people_id,
	instrument_id,
	purchase_date_id,
	publication_date_id,
	nature_of_purchase,
	related,
	volume,
	volume_unit,
	price,
	currency_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err = w.pool.Exec(ctx, query,
		personID,
		instrumentID,
		purchaseDateID,
		publicationDateID,
		rec.NatureOfPurchase,
		rec.Related,
		rec.Volume,
		rec.VolumeUnit,
		rec.Price,
		currencyID,
	)
	if err != nil {
		return w.fault(StageTransaction, err)
	}
	return nil
}

// fault classifies a persistence error. Database-reported errors (constraint
// violations, bad values) affect only the current record and are marked as
// record-scoped drops; anything else, like a lost connection, stays fatal.
func (w *Writer) fault(stage string, err error) error {
	f := &Fault{Stage: stage, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		metrics.RecordDropped(stage)
		return errors.Join(crawl.ErrRecordDropped, f)
	}
	return f
}

// lookupOrInsert resolves a surrogate id by natural key: query first, insert
// on miss, capturing the generated id. At most one row per distinct key can
// result under the single-writer sequential processing model; concurrent
// writers would need an atomic upsert instead.
func (w *Writer) lookupOrInsert(
	ctx context.Context,
	table string,
	selectSQL string,
	insertSQL string,
	keyArgs []any,
	insertArgs []any,
) (int64, error) {
	var id int64
	err := w.pool.QueryRow(ctx, selectSQL, keyArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("lookup %s: %w", table, err)
	}
	if err := w.pool.QueryRow(ctx, insertSQL, insertArgs...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	metrics.DimensionInsert(table)
	return id, nil
}

func (w *Writer) companyID(ctx context.Context, name string) (int64, error) {
	return w.lookupOrInsert(ctx, "companies",
		`SELECT id FROM companies WHERE name = $1`,
		`INSERT INTO companies (name) VALUES ($1) RETURNING id`,
		[]any{name},
		[]any{name},
	)
}

func (w *Writer) roleID(ctx context.Context, role string) (int64, error) {
	return w.lookupOrInsert(ctx, "roles",
		`SELECT id FROM roles WHERE role = $1`,
		`INSERT INTO roles (role) VALUES ($1) RETURNING id`,
		[]any{role},
		[]any{role},
	)
}

func (w *Writer) dateID(ctx context.Context, date time.Time) (int64, error) {
	return w.lookupOrInsert(ctx, "dates",
		`SELECT id FROM dates WHERE date = $1`,
		`INSERT INTO dates (date) VALUES ($1) RETURNING id`,
		[]any{date},
		[]any{date},
	)
}

func (w *Writer) currencyID(ctx context.Context, currency string) (int64, error) {
	return w.lookupOrInsert(ctx, "currencies",
		`SELECT id FROM currencies WHERE currency = $1`,
		`INSERT INTO currencies (currency) VALUES ($1) RETURNING id`,
		[]any{currency},
		[]any{currency},
	)
}

// instrumentID resolves an instrument by its natural key; the isin is
// unique within the issuing company's scope, not globally.
func (w *Writer) instrumentID(ctx context.Context, companyID int64, rec normalize.Record) (int64, error) {
	return w.lookupOrInsert(ctx, "instruments",
		`SELECT id FROM instruments WHERE company_id = $1 AND isin = $2`,
		`INSERT INTO instruments (company_id, name, type, isin) VALUES ($1,$2,$3,$4) RETURNING id`,
		[]any{companyID, rec.ISIN},
		[]any{companyID, rec.InstrumentName, rec.InstrumentType, rec.ISIN},
	)
}

// personID resolves a person scoped to one company and role.
func (w *Writer) personID(ctx context.Context, companyID, roleID int64, name string) (int64, error) {
	return w.lookupOrInsert(ctx, "people",
		`SELECT id FROM people WHERE company_id = $1 AND role_id = $2 AND name = $3`,
		`INSERT INTO people (role_id, company_id, name) VALUES ($1,$2,$3) RETURNING id`,
		[]any{companyID, roleID, name},
		[]any{roleID, companyID, name},
	)
}
