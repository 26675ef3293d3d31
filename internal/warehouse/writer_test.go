package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/marknadsdata/insider-crawler/internal/crawl"
	"github.com/marknadsdata/insider-crawler/internal/normalize"
)

func acmeRecord() normalize.Record {
	return normalize.Record{
		PublicationDate:  time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Issuer:           "Acme AB",
		PersonName:       "Jane Doe",
		Role:             "CEO",
		Related:          normalize.RelatedNone,
		NatureOfPurchase: "Köp",
		InstrumentName:   "Acme Share",
		InstrumentType:   "Aktie",
		ISIN:             "SE0000000001",
		TransactionDate:  time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		Volume:           decimal.NewFromInt(1000),
		VolumeUnit:       "st",
		Price:            decimal.RequireFromString("150.50"),
		Currency:         "SEK",
		Status:           "Publicerad",
	}
}

func newMockWriter(t *testing.T) (*Writer, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	writer, err := NewWriterWithPool(mock, zaptest.NewLogger(t))
	require.NoError(t, err)
	return writer, mock
}

func expectMiss(mock pgxmock.PgxPoolIface, selectSQL, insertSQL string, id int64, keyArgs, insertArgs []any) {
	mock.ExpectQuery(selectSQL).WithArgs(keyArgs...).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(insertSQL).WithArgs(insertArgs...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
}

func expectHit(mock pgxmock.PgxPoolIface, selectSQL string, id int64, keyArgs []any) {
	mock.ExpectQuery(selectSQL).WithArgs(keyArgs...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
}

func TestProcessFirstEncounterInsertsAllDimensions(t *testing.T) {
	writer, mock := newMockWriter(t)
	rec := acmeRecord()

	expectMiss(mock, "SELECT id FROM companies", "INSERT INTO companies", 1,
		[]any{rec.Issuer}, []any{rec.Issuer})
	expectMiss(mock, "SELECT id FROM roles", "INSERT INTO roles", 1,
		[]any{rec.Role}, []any{rec.Role})
	expectMiss(mock, "SELECT id FROM dates", "INSERT INTO dates", 1,
		[]any{rec.PublicationDate}, []any{rec.PublicationDate})
	expectMiss(mock, "SELECT id FROM dates", "INSERT INTO dates", 2,
		[]any{rec.TransactionDate}, []any{rec.TransactionDate})
	expectMiss(mock, "SELECT id FROM currencies", "INSERT INTO currencies", 1,
		[]any{rec.Currency}, []any{rec.Currency})
	expectMiss(mock, "SELECT id FROM instruments", "INSERT INTO instruments", 1,
		[]any{int64(1), rec.ISIN},
		[]any{int64(1), rec.InstrumentName, rec.InstrumentType, rec.ISIN})
	expectMiss(mock, "SELECT id FROM people", "INSERT INTO people", 1,
		[]any{int64(1), int64(1), rec.PersonName},
		[]any{int64(1), int64(1), rec.PersonName})

	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(
			int64(1), // people_id
			int64(1), // instrument_id
			int64(2), // purchase_date_id
			int64(1), // publication_date_id
			rec.NatureOfPurchase,
			rec.Related,
			rec.Volume,
			rec.VolumeUnit,
			rec.Price,
			int64(1), // currency_id
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := writer.Process(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessReusesExistingDimensionIDs(t *testing.T) {
	writer, mock := newMockWriter(t)

	// Same issuer, person, role, and instrument as before; only the
	// transaction date is new.
	rec := acmeRecord()
	rec.TransactionDate = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	expectHit(mock, "SELECT id FROM companies", 7, []any{rec.Issuer})
	expectHit(mock, "SELECT id FROM roles", 3, []any{rec.Role})
	expectHit(mock, "SELECT id FROM dates", 11, []any{rec.PublicationDate})
	expectMiss(mock, "SELECT id FROM dates", "INSERT INTO dates", 12,
		[]any{rec.TransactionDate}, []any{rec.TransactionDate})
	expectHit(mock, "SELECT id FROM currencies", 2, []any{rec.Currency})
	expectHit(mock, "SELECT id FROM instruments", 5, []any{int64(7), rec.ISIN})
	expectHit(mock, "SELECT id FROM people", 9, []any{int64(7), int64(3), rec.PersonName})

	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(
			int64(9), int64(5), int64(12), int64(11),
			rec.NatureOfPurchase, rec.Related,
			rec.Volume, rec.VolumeUnit, rec.Price,
			int64(2),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := writer.Process(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessConstraintViolationDropsRecord(t *testing.T) {
	writer, mock := newMockWriter(t)
	rec := acmeRecord()

	expectHit(mock, "SELECT id FROM companies", 1, []any{rec.Issuer})
	expectHit(mock, "SELECT id FROM roles", 1, []any{rec.Role})
	expectHit(mock, "SELECT id FROM dates", 1, []any{rec.PublicationDate})
	expectHit(mock, "SELECT id FROM dates", 2, []any{rec.TransactionDate})
	expectHit(mock, "SELECT id FROM currencies", 1, []any{rec.Currency})
	expectHit(mock, "SELECT id FROM instruments", 1, []any{int64(1), rec.ISIN})

	mock.ExpectQuery("SELECT id FROM people").
		WithArgs(int64(1), int64(1), rec.PersonName).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO people").
		WithArgs(int64(1), int64(1), rec.PersonName).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := writer.Process(context.Background(), rec)
	require.Error(t, err)
	require.ErrorIs(t, err, crawl.ErrRecordDropped, "constraint violations are record-scoped")

	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, StagePerson, fault.Stage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessConnectivityFaultIsFatal(t *testing.T) {
	writer, mock := newMockWriter(t)
	rec := acmeRecord()

	mock.ExpectQuery("SELECT id FROM companies").
		WithArgs(rec.Issuer).
		WillReturnError(errors.New("connection refused"))

	err := writer.Process(context.Background(), rec)
	require.Error(t, err)
	require.NotErrorIs(t, err, crawl.ErrRecordDropped, "connectivity faults must abort the run")

	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, StageCompany, fault.Stage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenPingsDatabase(t *testing.T) {
	writer, mock := newMockWriter(t)

	mock.ExpectPing()
	require.NoError(t, writer.Open(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	require.Error(t, writer.Open(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaCreatesAllTables(t *testing.T) {
	writer, mock := newMockWriter(t)

	for _, table := range []string{
		"companies", "roles", "dates", "currencies",
		"instruments", "people", "transactions",
	} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, writer.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWriterWithPoolRequiresPool(t *testing.T) {
	_, err := NewWriterWithPool(nil, zaptest.NewLogger(t))
	require.Error(t, err)
}
