package registry

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls collector behavior for the registry source.
type Config struct {
	// BaseURL is the publication client endpoint; the page index is appended
	// as a query parameter.
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RowSelector locates one table row per record.
	RowSelector string
	// PaginationSelector locates the page-navigation links whose largest
	// numeric label is the maximum page count.
	PaginationSelector string
}

const (
	defaultRowSelector        = "#grid-list table tbody tr"
	defaultPaginationSelector = "#grid-list ul li a"
)

// CollySource implements Source using the Colly collector.
type CollySource struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewCollySource builds a CollySource.
func NewCollySource(cfg Config, logger *zap.Logger) (*CollySource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("registry base url is required")
	}
	if cfg.RowSelector == "" {
		cfg.RowSelector = defaultRowSelector
	}
	if cfg.PaginationSelector == "" {
		cfg.PaginationSelector = defaultPaginationSelector
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	return &CollySource{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}, nil
}

// FetchPage retrieves one registry page and parses its record rows and
// pagination element. Rows are returned in DOM order, which the registry
// guarantees to be newest publication date first.
func (s *CollySource) FetchPage(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("page index must be >= 1, got %d", page)
	}

	collector := s.baseCollector.Clone()
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	collector.SetRequestTimeout(s.cfg.Timeout)

	result := Page{Number: page}
	var fetchErr error

	collector.OnHTML(s.cfg.RowSelector, func(e *colly.HTMLElement) {
		var cells []string
		e.ForEach("td", func(_ int, td *colly.HTMLElement) {
			cells = append(cells, td.Text)
		})
		row, err := RowFromCells(cells)
		if err != nil {
			s.logger.Warn("Skipping malformed table row",
				zap.Int("page", page),
				zap.Error(err),
			)
			return
		}
		result.Rows = append(result.Rows, row)
	})

	collector.OnHTML(s.cfg.PaginationSelector, func(e *colly.HTMLElement) {
		if n, ok := pageNumberFromLabel(e.Text); ok && n > result.MaxPage {
			result.MaxPage = n
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		result.Body = append([]byte(nil), r.Body...)
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch page %d (status %d): %w", page, r.StatusCode, err)
	})

	url := fmt.Sprintf("%s?page=%d", s.cfg.BaseURL, page)
	if err := s.visit(ctx, collector, url); err != nil {
		return Page{}, err
	}
	if fetchErr != nil {
		return Page{}, fetchErr
	}
	return result, nil
}

func (s *CollySource) visit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("registry fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
		}
		return nil
	}
}

// pageNumberFromLabel extracts the numeric page count from a pagination link
// label. The registry suffixes the final link with a trailing marker and may
// group digits with no-break spaces, so everything but digits is dropped.
func pageNumberFromLabel(label string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, label)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
