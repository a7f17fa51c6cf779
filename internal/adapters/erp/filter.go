package erp

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

// dateEncoding selects how date values are rendered as query literals. Some
// Service Layer versions accept the offset-aware ISO form while older ones
// only take the legacy datetime quote form, so candidates are tried in order
// and the first accepted one is remembered.
type dateEncoding int

const (
	dateEncodingISOZ dateEncoding = iota
	dateEncodingLegacy
)

var dateEncodings = []dateEncoding{dateEncodingISOZ, dateEncodingLegacy}

func (e dateEncoding) render(t time.Time) string {
	switch e {
	case dateEncodingLegacy:
		return "datetime'" + t.UTC().Format("2006-01-02T15:04:05") + "'"
	default:
		return t.UTC().Format("2006-01-02T15:04:05Z")
	}
}

// encodingMemo caches the first accepted encoding index for the process so a
// fresh client does not repeat the trial sequence.
var encodingMemo struct {
	mu  sync.Mutex
	idx int
	set bool
}

func processEncodingIndex() (int, bool) {
	encodingMemo.mu.Lock()
	defer encodingMemo.mu.Unlock()
	return encodingMemo.idx, encodingMemo.set
}

func rememberProcessEncoding(idx int) {
	encodingMemo.mu.Lock()
	defer encodingMemo.mu.Unlock()
	if !encodingMemo.set {
		encodingMemo.idx = idx
		encodingMemo.set = true
	}
}

func resetProcessEncoding() {
	encodingMemo.mu.Lock()
	defer encodingMemo.mu.Unlock()
	encodingMemo.idx = 0
	encodingMemo.set = false
}

// filterBuilder renders open-purchase-order predicates and owns the
// date-literal fallback state for one client instance.
type filterBuilder struct {
	mu  sync.Mutex
	idx int
	set bool
}

func newFilterBuilder() *filterBuilder {
	b := &filterBuilder{}
	if idx, ok := processEncodingIndex(); ok {
		b.idx = idx
		b.set = true
	}
	return b
}

// startIndex is the first candidate to try: the remembered one when a prior
// call succeeded, the head of the list otherwise.
func (b *filterBuilder) startIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.set {
		return b.idx
	}
	return 0
}

func (b *filterBuilder) remember(idx int) {
	b.mu.Lock()
	b.idx = idx
	b.set = true
	b.mu.Unlock()
	rememberProcessEncoding(idx)
}

// openOrdersFilter renders the server-side predicate for open purchase
// orders. Warehouse is deliberately absent: the Service Layer does not
// support the lambda operator needed to filter nested document lines, so the
// gateway expands lines and filters client-side instead.
func openOrdersFilter(q ports.OrderQuery, enc dateEncoding) string {
	clauses := []string{"DocumentStatus eq 'bost_Open'"}
	if q.DueFrom != nil {
		clauses = append(clauses, "DocDueDate ge "+enc.render(startOfDay(*q.DueFrom)))
	}
	if q.DueTo != nil {
		clauses = append(clauses, "DocDueDate le "+enc.render(startOfDay(*q.DueTo)))
	}
	if q.Vendor != "" {
		clauses = append(clauses, fmt.Sprintf("CardCode eq '%s'", escapeODataString(q.Vendor)))
	}
	return strings.Join(clauses, " and ")
}

// escapeODataString doubles single quotes per the predicate language's
// quoting rules so interpolated values cannot break the query.
func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
