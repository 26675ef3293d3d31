// Package registry fetches disclosure rows from the paginated public
// insider-trading registry. It delivers each on-page record as an ordered
// tuple of positional text fields and, once per crawl, the maximum page
// count read from the page navigation element.
package registry

import (
	"context"
	"errors"
	"fmt"
)

// FieldCount is the number of positional text fields per on-page record.
const FieldCount = 15

// RawRow carries the raw text of one registry record in registry column
// order. Fields may be empty when the corresponding cell is blank; nothing
// here is typed or cleaned.
type RawRow struct {
	PublicationDate  string
	Issuer           string
	PersonName       string
	Role             string
	Related          string
	NatureOfPurchase string
	InstrumentName   string
	InstrumentType   string
	ISIN             string
	TransactionDate  string
	Volume           string
	VolumeUnit       string
	Price            string
	Currency         string
	Status           string
}

// Fields returns the row as its positional tuple, in registry column order.
func (r RawRow) Fields() [FieldCount]string {
	return [FieldCount]string{
		r.PublicationDate,
		r.Issuer,
		r.PersonName,
		r.Role,
		r.Related,
		r.NatureOfPurchase,
		r.InstrumentName,
		r.InstrumentType,
		r.ISIN,
		r.TransactionDate,
		r.Volume,
		r.VolumeUnit,
		r.Price,
		r.Currency,
		r.Status,
	}
}

// RowFromCells maps a slice of table cell texts onto a RawRow. The registry
// renders exactly FieldCount columns per record; short rows are rejected so
// a layout change surfaces as an explicit error instead of shifted fields.
func RowFromCells(cells []string) (RawRow, error) {
	if len(cells) < FieldCount {
		return RawRow{}, fmt.Errorf("expected %d cells, got %d", FieldCount, len(cells))
	}
	return RawRow{
		PublicationDate:  cells[0],
		Issuer:           cells[1],
		PersonName:       cells[2],
		Role:             cells[3],
		Related:          cells[4],
		NatureOfPurchase: cells[5],
		InstrumentName:   cells[6],
		InstrumentType:   cells[7],
		ISIN:             cells[8],
		TransactionDate:  cells[9],
		Volume:           cells[10],
		VolumeUnit:       cells[11],
		Price:            cells[12],
		Currency:         cells[13],
		Status:           cells[14],
	}, nil
}

// Page is the result of fetching one registry page.
type Page struct {
	// Number is the 1-based page index that was requested.
	Number int
	// Rows holds the records in site order (newest publication date first).
	Rows []RawRow
	// MaxPage is the maximum page count parsed from the pagination element,
	// or 0 when the element was not found on this page.
	MaxPage int
	// Body is the raw HTML of the page, kept for the optional archive.
	Body []byte
}

// ErrMaxPageMissing reports that the page navigation element could not be
// located. The crawl cannot bound itself without it.
var ErrMaxPageMissing = errors.New("max page indicator missing")

// Source yields the ordered rows of a registry page by 1-based index.
type Source interface {
	FetchPage(ctx context.Context, page int) (Page, error)
}
