package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-price-sync/models"
)

func sampleResults() []models.ProductResult {
	updatedAt := time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC)
	return []models.ProductResult{
		{
			Reference: models.ProductReference{URL: "https://x/p1", SKU: "A-1", Row: 2},
			Price:     1990,
			Found:     true,
			Attempts:  1,
			UpdatedAt: updatedAt,
		},
		{
			Reference: models.ProductReference{URL: "https://x/p2", Row: 3},
			Found:     false,
			Error:     "transport",
			Attempts:  3,
			UpdatedAt: updatedAt,
		},
	}
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(sampleResults()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0][0] != "url" || records[0][3] != "price" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][3] != "1990" {
		t.Fatalf("price cell = %q, want 1990", records[1][3])
	}
	if records[2][3] != models.ErrorMarker {
		t.Fatalf("failed row price = %q, want error marker", records[2][3])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(sampleResults()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		var res models.ProductResult
		if err := json.Unmarshal(scanner.Bytes(), &res); err != nil {
			t.Fatalf("line %d: %v", lines+1, err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("lines = %d, want 2", lines)
	}
}

func TestDualWriterWritesBoth(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "report.csv")
	jsonPath := filepath.Join(dir, "report.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(sampleResults()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
}
