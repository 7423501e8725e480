package scraper

import (
	"errors"

	"github.com/aluiziolira/go-price-sync/extract"
	"github.com/aluiziolira/go-price-sync/fetch"
)

// errorTypeLabel maps an attempt error onto its taxonomy label, used for
// metrics, run totals, and the terminal error recorded per product.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout fetch.TimeoutError
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var transport fetch.TransportError
	if errors.As(err, &transport) {
		return "transport"
	}
	var notFound extract.ErrElementNotFound
	if errors.As(err, &notFound) {
		return "element_not_found"
	}
	var parseFailure extract.ErrParseFailure
	if errors.As(err, &parseFailure) {
		return "parse_failure"
	}
	return "other"
}

// isStructural reports whether an attempt error means the page markup itself
// is broken. Re-fetching the same static markup will not change the outcome,
// so structural errors end the product immediately instead of burning the
// remaining attempt budget.
func isStructural(err error) bool {
	var notFound extract.ErrElementNotFound
	if errors.As(err, &notFound) {
		return true
	}
	var parseFailure extract.ErrParseFailure
	return errors.As(err, &parseFailure)
}

// isTimeout reports whether an attempt error is a readiness timeout, the
// only failure an in-page recovery click can help with.
func isTimeout(err error) bool {
	var timeout fetch.TimeoutError
	return errors.As(err, &timeout)
}
