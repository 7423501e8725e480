// Package sheet reads product rows from a tabular store and writes results
// back as one full overwrite of the worksheet contents. The store itself is
// abstracted behind Table so the Google Sheets backend, the local CSV
// backend, and test fakes are interchangeable.
package sheet

import (
	"context"
	"fmt"

	"github.com/aluiziolira/go-price-sync/models"
)

// Table is one worksheet worth of rows, header included.
type Table interface {
	// Read returns all values, header row first.
	Read(ctx context.Context) ([][]string, error)
	// Replace overwrites the entire worksheet with values (header + rows).
	Replace(ctx context.Context, values [][]string) error
}

// ErrMissingColumn reports a required column absent from the header row.
// Schema errors are fatal for the whole run.
type ErrMissingColumn struct {
	Column string
}

func (e ErrMissingColumn) Error() string {
	return fmt.Sprintf("sheet is missing required column %q", e.Column)
}

// ErrEmptySheet reports a worksheet with no header row.
type ErrEmptySheet struct{}

func (ErrEmptySheet) Error() string {
	return "sheet has no header row"
}

// Columns names the columns the job reads and writes.
type Columns struct {
	URL     string
	Price   string
	Updated string
	SKU     string // optional; empty disables SKU capture
}

// Document is a parsed worksheet: the header plus data rows, with the
// relevant column indices resolved. Price and last-update columns are
// appended to the header when the sheet does not carry them yet.
type Document struct {
	cols   Columns
	header []string
	rows   [][]string

	urlIdx     int
	priceIdx   int
	updatedIdx int
	skuIdx     int // -1 when absent or not configured
}

// ParseDocument builds a Document from raw primary-worksheet values. The URL
// column is required; its absence is a schema error.
func ParseDocument(values [][]string, cols Columns) (*Document, error) {
	return parseDocument(values, cols, false)
}

// ParseSKUDocument builds a Document from secondary-worksheet values. The
// secondary table is keyed by SKU, so the SKU column is required and the URL
// column may be absent entirely.
func ParseSKUDocument(values [][]string, cols Columns) (*Document, error) {
	return parseDocument(values, cols, true)
}

func parseDocument(values [][]string, cols Columns, keyBySKU bool) (*Document, error) {
	if len(values) == 0 {
		return nil, ErrEmptySheet{}
	}

	header := append([]string(nil), values[0]...)
	rows := make([][]string, 0, len(values)-1)
	for _, row := range values[1:] {
		rows = append(rows, append([]string(nil), row...))
	}

	urlIdx := indexOf(header, cols.URL)
	if urlIdx < 0 && !keyBySKU {
		return nil, ErrMissingColumn{Column: cols.URL}
	}

	priceIdx := indexOf(header, cols.Price)
	if priceIdx < 0 {
		header = append(header, cols.Price)
		priceIdx = len(header) - 1
	}
	updatedIdx := indexOf(header, cols.Updated)
	if updatedIdx < 0 {
		header = append(header, cols.Updated)
		updatedIdx = len(header) - 1
	}

	skuIdx := -1
	if cols.SKU != "" {
		skuIdx = indexOf(header, cols.SKU)
	}
	if keyBySKU && skuIdx < 0 {
		return nil, ErrMissingColumn{Column: cols.SKU}
	}

	doc := &Document{
		cols:       cols,
		header:     header,
		rows:       rows,
		urlIdx:     urlIdx,
		priceIdx:   priceIdx,
		updatedIdx: updatedIdx,
		skuIdx:     skuIdx,
	}
	doc.padRows()
	return doc, nil
}

// Refs returns one ProductReference per row carrying a non-empty URL cell.
// Rows with a blank URL are kept in the sheet but never processed. SKU-keyed
// documents carry no URL column and yield no references.
func (d *Document) Refs() []models.ProductReference {
	if d.urlIdx < 0 {
		return nil
	}
	refs := make([]models.ProductReference, 0, len(d.rows))
	for i, row := range d.rows {
		url := row[d.urlIdx]
		if url == "" {
			continue
		}
		ref := models.ProductReference{
			URL: url,
			Row: i + 2, // 1-based, after the header row
		}
		if d.skuIdx >= 0 {
			ref.SKU = row[d.skuIdx]
		}
		refs = append(refs, ref)
	}
	return refs
}

// Apply writes each result's price (or the error marker) and timestamp into
// the row it was read from, matching by URL. Rows without a result are left
// untouched.
func (d *Document) Apply(results []models.ProductResult) {
	if d.urlIdx < 0 {
		return
	}
	byURL := make(map[string]models.ProductResult, len(results))
	for _, res := range results {
		byURL[res.Reference.URL] = res
	}

	for _, row := range d.rows {
		url := row[d.urlIdx]
		if url == "" {
			continue
		}
		res, ok := byURL[url]
		if !ok {
			continue
		}
		row[d.priceIdx] = res.PriceCell()
		row[d.updatedIdx] = res.UpdatedCell()
	}
}

// ApplyByKey is the secondary-table variant of Apply: rows are matched by
// the SKU column instead of the URL column. The key column is required.
func (d *Document) ApplyByKey(results []models.ProductResult) error {
	if d.skuIdx < 0 {
		return ErrMissingColumn{Column: d.cols.SKU}
	}

	bySKU := make(map[string]models.ProductResult, len(results))
	for _, res := range results {
		if res.Reference.SKU != "" {
			bySKU[res.Reference.SKU] = res
		}
	}

	for _, row := range d.rows {
		key := row[d.skuIdx]
		if key == "" {
			continue
		}
		res, ok := bySKU[key]
		if !ok {
			continue
		}
		row[d.priceIdx] = res.PriceCell()
		row[d.updatedIdx] = res.UpdatedCell()
	}
	return nil
}

// Values returns the full worksheet contents for the overwrite commit.
func (d *Document) Values() [][]string {
	values := make([][]string, 0, len(d.rows)+1)
	values = append(values, d.header)
	values = append(values, d.rows...)
	return values
}

// padRows extends short rows to the header width so column writes never
// index out of range.
func (d *Document) padRows() {
	width := len(d.header)
	for i, row := range d.rows {
		for len(row) < width {
			row = append(row, "")
		}
		d.rows[i] = row
	}
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
