package crawl

import (
	"context"
	"errors"

	"github.com/marknadsdata/insider-crawler/internal/normalize"
)

// ErrRecordDropped marks a per-record processing fault. A stage wraps it
// when the current record is unusable but the pipeline should continue;
// any other error from Process aborts the crawl.
var ErrRecordDropped = errors.New("record dropped")

// Stage is a pipeline stage invoked directly by the controller loop.
// Open is called once before the first record, Close once after the last,
// even when the run ends in an error.
type Stage interface {
	Open(ctx context.Context) error
	Process(ctx context.Context, rec normalize.Record) error
	Close() error
}
