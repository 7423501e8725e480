package sheet

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCSVTableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "productos.csv")

	seed := "URL,Precio x KG,Ultima Actualizacion\nhttps://x/p1,,\n"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed csv: %v", err)
	}

	table := NewCSVTable(path)
	values, err := table.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(values) != 2 || values[0][0] != "URL" {
		t.Fatalf("values = %v", values)
	}

	values[1][1] = "1990"
	if err := table.Replace(context.Background(), values); err != nil {
		t.Fatalf("replace: %v", err)
	}

	again, err := table.Read(context.Background())
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if again[1][1] != "1990" {
		t.Fatalf("row = %v, want written price back", again[1])
	}
}

func TestCSVTableReadMissingFile(t *testing.T) {
	table := NewCSVTable(filepath.Join(t.TempDir(), "nope.csv"))
	if _, err := table.Read(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
