package erp

import (
	"strings"
	"testing"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

func TestOpenOrdersFilterEncodings(t *testing.T) {
	from := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	to := time.Date(2026, 3, 9, 1, 0, 0, 0, time.UTC)
	q := ports.OrderQuery{DueFrom: &from, DueTo: &to, Vendor: "V-0042"}

	iso := openOrdersFilter(q, dateEncodingISOZ)
	want := "DocumentStatus eq 'bost_Open' and DocDueDate ge 2026-03-05T00:00:00Z and DocDueDate le 2026-03-09T00:00:00Z and CardCode eq 'V-0042'"
	if iso != want {
		t.Fatalf("iso filter mismatch:\n got %s\nwant %s", iso, want)
	}

	legacy := openOrdersFilter(q, dateEncodingLegacy)
	if !strings.Contains(legacy, "DocDueDate ge datetime'2026-03-05T00:00:00'") {
		t.Fatalf("legacy filter missing datetime literal: %s", legacy)
	}
}

func TestOpenOrdersFilterWithoutDates(t *testing.T) {
	got := openOrdersFilter(ports.OrderQuery{}, dateEncodingISOZ)
	if got != "DocumentStatus eq 'bost_Open'" {
		t.Fatalf("unexpected base filter: %s", got)
	}
}

func TestOpenOrdersFilterEscapesVendor(t *testing.T) {
	got := openOrdersFilter(ports.OrderQuery{Vendor: "O'Brien"}, dateEncodingISOZ)
	if !strings.Contains(got, "CardCode eq 'O''Brien'") {
		t.Fatalf("vendor quote not escaped: %s", got)
	}
}

func TestFilterBuilderRemembersEncodingProcessWide(t *testing.T) {
	resetProcessEncoding()
	defer resetProcessEncoding()

	b := newFilterBuilder()
	if b.startIndex() != 0 {
		t.Fatalf("fresh builder should start at the head of the candidate list")
	}

	b.remember(1)
	if b.startIndex() != 1 {
		t.Fatalf("builder should resume from the accepted encoding")
	}

	// A new builder inherits the process-wide memo.
	if newFilterBuilder().startIndex() != 1 {
		t.Fatalf("new builder should inherit the remembered encoding")
	}
}
