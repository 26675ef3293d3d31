package warehouse

import (
	"context"

	"go.uber.org/zap"

	"github.com/marknadsdata/insider-crawler/internal/normalize"
)

// NoOpWriter is a pipeline stage that discards every record. It is useful
// for dry runs and for exercising the crawl without a database.
type NoOpWriter struct {
	logger *zap.Logger
	count  int
}

// NewNoOpWriter builds a NoOpWriter.
func NewNoOpWriter(logger *zap.Logger) *NoOpWriter {
	return &NoOpWriter{logger: logger}
}

// Open does nothing.
func (n *NoOpWriter) Open(_ context.Context) error { return nil }

// Process logs the record at debug level and discards it.
func (n *NoOpWriter) Process(_ context.Context, rec normalize.Record) error {
	n.count++
	n.logger.Debug("Discarding record (noop writer)",
		zap.String("issuer", rec.Issuer),
		zap.String("isin", rec.ISIN),
		zap.Time("publication_date", rec.PublicationDate),
	)
	return nil
}

// Close reports how many records the dry run would have written.
func (n *NoOpWriter) Close() error {
	n.logger.Info("Noop writer closed", zap.Int("records_seen", n.count))
	return nil
}
