package sheet

import (
	"errors"
	"testing"
	"time"

	"github.com/aluiziolira/go-price-sync/models"
)

func testColumns() Columns {
	return Columns{
		URL:     "URL",
		Price:   "Precio x KG",
		Updated: "Ultima Actualizacion",
		SKU:     "SKU",
	}
}

func TestParseDocumentMissingURLColumn(t *testing.T) {
	values := [][]string{
		{"Nombre", "Precio x KG"},
		{"Asado", "1000"},
	}
	_, err := ParseDocument(values, testColumns())
	var missing ErrMissingColumn
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if missing.Column != "URL" {
		t.Fatalf("column = %q, want URL", missing.Column)
	}
}

func TestParseDocumentEmptySheet(t *testing.T) {
	_, err := ParseDocument(nil, testColumns())
	var empty ErrEmptySheet
	if !errors.As(err, &empty) {
		t.Fatalf("expected ErrEmptySheet, got %v", err)
	}
}

func TestParseDocumentAppendsMissingColumns(t *testing.T) {
	values := [][]string{
		{"URL"},
		{"https://x/p1"},
	}
	doc, err := ParseDocument(values, testColumns())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	out := doc.Values()
	header := out[0]
	if len(header) != 3 || header[1] != "Precio x KG" || header[2] != "Ultima Actualizacion" {
		t.Fatalf("header = %v, want price and updated columns appended", header)
	}
	if len(out[1]) != 3 {
		t.Fatalf("row = %v, want padded to header width", out[1])
	}
}

func TestRefsSkipsBlankURLs(t *testing.T) {
	values := [][]string{
		{"URL", "SKU", "Precio x KG", "Ultima Actualizacion"},
		{"https://x/p1", "A-1", "", ""},
		{"", "A-2", "", ""},
		{"https://x/p3", "A-3", "", ""},
	}
	doc, err := ParseDocument(values, testColumns())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	refs := doc.Refs()
	if len(refs) != 2 {
		t.Fatalf("refs = %d, want 2", len(refs))
	}
	if refs[0].URL != "https://x/p1" || refs[0].SKU != "A-1" || refs[0].Row != 2 {
		t.Fatalf("first ref = %+v", refs[0])
	}
	if refs[1].URL != "https://x/p3" || refs[1].Row != 4 {
		t.Fatalf("second ref = %+v", refs[1])
	}
}

func TestApplyWritesPricesAndMarkers(t *testing.T) {
	values := [][]string{
		{"URL", "Precio x KG", "Ultima Actualizacion"},
		{"https://x/p1", "old", "old"},
		{"https://x/p2", "old", "old"},
		{"", "keep", "keep"},
	}
	doc, err := ParseDocument(values, testColumns())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	updatedAt := time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC)
	doc.Apply([]models.ProductResult{
		{Reference: models.ProductReference{URL: "https://x/p1"}, Price: 1990, Found: true, UpdatedAt: updatedAt},
		{Reference: models.ProductReference{URL: "https://x/p2"}, Found: false, Error: "transport", UpdatedAt: updatedAt},
	})

	out := doc.Values()
	if out[1][1] != "1990" || out[1][2] != "2025-11-04 13:09:13" {
		t.Fatalf("row 1 = %v", out[1])
	}
	if out[2][1] != models.ErrorMarker {
		t.Fatalf("row 2 price = %q, want error marker", out[2][1])
	}
	if out[3][1] != "keep" || out[3][2] != "keep" {
		t.Fatalf("blank-URL row must be untouched, got %v", out[3])
	}
}

func TestApplyByKey(t *testing.T) {
	// The secondary worksheet carries no URL column; rows are keyed by SKU.
	values := [][]string{
		{"SKU", "Precio x KG", "Ultima Actualizacion"},
		{"A-1", "old", "old"},
		{"A-9", "keep", "keep"},
	}
	doc, err := ParseSKUDocument(values, testColumns())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	updatedAt := time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC)
	err = doc.ApplyByKey([]models.ProductResult{
		{Reference: models.ProductReference{URL: "https://x/p1", SKU: "A-1"}, Price: 2500, Found: true, UpdatedAt: updatedAt},
	})
	if err != nil {
		t.Fatalf("apply by key: %v", err)
	}

	out := doc.Values()
	if out[1][1] != "2500" {
		t.Fatalf("keyed row = %v, want price 2500", out[1])
	}
	if out[2][1] != "keep" {
		t.Fatalf("unmatched row must be untouched, got %v", out[2])
	}
}

func TestParseSKUDocumentWithoutURLColumn(t *testing.T) {
	values := [][]string{
		{"SKU", "Precio x KG", "Ultima Actualizacion"},
		{"A-1", "", ""},
	}
	doc, err := ParseSKUDocument(values, testColumns())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if refs := doc.Refs(); len(refs) != 0 {
		t.Fatalf("refs = %v, want none for a SKU-keyed document", refs)
	}
}

func TestParseSKUDocumentMissingSKUColumn(t *testing.T) {
	values := [][]string{
		{"Nombre", "Precio x KG"},
		{"Asado", "1000"},
	}
	_, err := ParseSKUDocument(values, testColumns())
	var missing ErrMissingColumn
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if missing.Column != "SKU" {
		t.Fatalf("column = %q, want SKU", missing.Column)
	}
}

func TestApplyByKeyMissingColumn(t *testing.T) {
	values := [][]string{
		{"URL", "Precio x KG", "Ultima Actualizacion"},
		{"https://x/p1", "", ""},
	}
	doc, err := ParseDocument(values, testColumns())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	err = doc.ApplyByKey(nil)
	var missing ErrMissingColumn
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}
