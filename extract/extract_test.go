package extract

import (
	"errors"
	"fmt"
	"testing"
)

const pageTemplate = `<html><body>
<div class="product">
  <h1>Asado de tira</h1>
  <span class="unit-price">%s</span>
  <p>Precio normal (referencial)</p>
</div>
</body></html>`

func TestPricePerKilo(t *testing.T) {
	tests := []struct {
		name     string
		spanText string
		want     int
	}{
		{name: "thousands separator", spanText: "1 un x kg aprox. (kg $1.234)", want: 1234},
		{name: "plain digits", spanText: "x kg (1990)", want: 1990},
		{name: "currency and spaces", spanText: "Porción x kg (kg $ 12.990)", want: 12990},
		{name: "single digit run", spanText: "x kg (500)", want: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := fmt.Sprintf(pageTemplate, tt.spanText)
			got, err := PricePerKilo(html, DefaultMarker)
			if err != nil {
				t.Fatalf("PricePerKilo: %v", err)
			}
			if got != tt.want {
				t.Fatalf("price = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPricePerKiloElementNotFound(t *testing.T) {
	html := fmt.Sprintf(pageTemplate, "1 un aprox. (kg $1.234)")
	_, err := PricePerKilo(html, DefaultMarker)
	var notFound ErrElementNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
}

func TestPricePerKiloNoParenGroup(t *testing.T) {
	html := fmt.Sprintf(pageTemplate, "1 un x kg aprox. kg $1.234")
	_, err := PricePerKilo(html, DefaultMarker)
	var parseErr ErrParseFailure
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
}

func TestPricePerKiloNoDigits(t *testing.T) {
	html := fmt.Sprintf(pageTemplate, "1 un x kg aprox. (n/a)")
	_, err := PricePerKilo(html, DefaultMarker)
	var parseErr ErrParseFailure
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
}

func TestPricePerKiloFirstGroupWins(t *testing.T) {
	// Only the first parenthesized group is consulted, even when a later one
	// holds different digits.
	html := fmt.Sprintf(pageTemplate, "x kg (kg $2.500) oferta (999)")
	got, err := PricePerKilo(html, DefaultMarker)
	if err != nil {
		t.Fatalf("PricePerKilo: %v", err)
	}
	if got != 2500 {
		t.Fatalf("price = %d, want 2500", got)
	}
}

func TestPricePerKiloLeafElementWins(t *testing.T) {
	// A wrapping container whose descendants render the marker must not
	// shadow the leaf element; the leaf's own text is what gets parsed.
	html := `<html><body><div><p>(ignore 111)</p><span>x kg (kg $1.990)</span></div></body></html>`
	got, err := PricePerKilo(html, DefaultMarker)
	if err != nil {
		t.Fatalf("PricePerKilo: %v", err)
	}
	if got != 1990 {
		t.Fatalf("price = %d, want 1990", got)
	}
}

func TestPricePerKiloIdempotent(t *testing.T) {
	html := fmt.Sprintf(pageTemplate, "1 un x kg aprox. (kg $1.234)")
	first, err1 := PricePerKilo(html, DefaultMarker)
	second, err2 := PricePerKilo(html, DefaultMarker)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if first != second {
		t.Fatalf("extraction not idempotent: %d vs %d", first, second)
	}
}
