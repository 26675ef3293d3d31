// Package normalize converts raw registry rows into canonical typed records.
// All transformations are pure functions of their input; re-applying the text
// scrub to already-clean output is a no-op.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marknadsdata/insider-crawler/internal/registry"
)

const (
	// DateLayout is the registry date format.
	DateLayout = "2006-01-02"

	// RelatedNone marks a transaction with no reported related party.
	RelatedNone = "not related"

	// StatusUnknown marks a row whose status cell was blank. The registry
	// never renders this string itself.
	StatusUnknown = "unknown"

	noBreakSpace = " "
)

// Record is the canonical, fully typed form of a registry row. Every field
// holds a defined value after Normalize; no raw null survives.
type Record struct {
	PublicationDate  time.Time
	Issuer           string
	PersonName       string
	Role             string
	Related          string
	NatureOfPurchase string
	InstrumentName   string
	InstrumentType   string
	ISIN             string
	TransactionDate  time.Time
	Volume           decimal.Decimal
	VolumeUnit       string
	Price            decimal.Decimal
	Currency         string
	Status           string
}

// Scrub applies the locale-specific text cleanup to a raw row. It is
// idempotent: Scrub(Scrub(r)) == Scrub(r).
func Scrub(r registry.RawRow) registry.RawRow {
	out := registry.RawRow{
		PublicationDate:  strings.TrimSpace(r.PublicationDate),
		Issuer:           collapseWhitespace(r.Issuer),
		PersonName:       collapseWhitespace(r.PersonName),
		Role:             strings.TrimSpace(stripNoBreakSpace(r.Role)),
		Related:          strings.TrimSpace(r.Related),
		NatureOfPurchase: strings.TrimSpace(r.NatureOfPurchase),
		InstrumentName:   strings.TrimSpace(r.InstrumentName),
		InstrumentType:   strings.TrimSpace(r.InstrumentType),
		ISIN:             strings.TrimSpace(r.ISIN),
		TransactionDate:  strings.TrimSpace(r.TransactionDate),
		Volume:           decimalPoint(stripNoBreakSpace(strings.TrimSpace(r.Volume))),
		VolumeUnit:       strings.TrimSpace(r.VolumeUnit),
		Price:            stripSpaces(decimalPoint(r.Price)),
		Currency:         strings.TrimSpace(r.Currency),
		Status:           strings.TrimSpace(r.Status),
	}
	if out.Related == "" {
		out.Related = RelatedNone
	}
	if out.Status == "" {
		out.Status = StatusUnknown
	}
	return out
}

// Normalize scrubs a raw row and parses its typed fields. A failure to parse
// a date or a numeric field is a per-record fault; the caller drops the row
// and continues.
func Normalize(r registry.RawRow) (Record, error) {
	s := Scrub(r)

	pubDate, err := time.Parse(DateLayout, s.PublicationDate)
	if err != nil {
		return Record{}, fmt.Errorf("publication date %q: %w", s.PublicationDate, err)
	}
	txDate, err := time.Parse(DateLayout, s.TransactionDate)
	if err != nil {
		return Record{}, fmt.Errorf("transaction date %q: %w", s.TransactionDate, err)
	}
	volume, err := decimal.NewFromString(s.Volume)
	if err != nil {
		return Record{}, fmt.Errorf("volume %q: %w", s.Volume, err)
	}
	price, err := decimal.NewFromString(s.Price)
	if err != nil {
		return Record{}, fmt.Errorf("price %q: %w", s.Price, err)
	}

	return Record{
		PublicationDate:  pubDate,
		Issuer:           s.Issuer,
		PersonName:       s.PersonName,
		Role:             s.Role,
		Related:          s.Related,
		NatureOfPurchase: s.NatureOfPurchase,
		InstrumentName:   s.InstrumentName,
		InstrumentType:   s.InstrumentType,
		ISIN:             s.ISIN,
		TransactionDate:  txDate,
		Volume:           volume,
		VolumeUnit:       s.VolumeUnit,
		Price:            price,
		Currency:         s.Currency,
		Status:           s.Status,
	}, nil
}

// collapseWhitespace reduces any run of whitespace (including no-break
// spaces) to a single space and trims both ends.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, noBreakSpace, " ")), " ")
}

// stripNoBreakSpace removes U+00A0, the registry's digit group separator.
func stripNoBreakSpace(s string) string {
	return strings.ReplaceAll(s, noBreakSpace, "")
}

// decimalPoint rewrites the registry's decimal comma to a decimal point.
func decimalPoint(s string) string {
	return strings.ReplaceAll(s, ",", ".")
}

// stripSpaces removes every space character, no-break variant included.
func stripSpaces(s string) string {
	s = strings.ReplaceAll(s, noBreakSpace, "")
	return strings.ReplaceAll(s, " ", "")
}
