package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
)

// operationFingerprint derives the deterministic identity of one receiving
// operation: actor, document, warehouse, the line set sorted by line number,
// and the UTC calendar day. Lines are sorted so request ordering cannot
// change the fingerprint; the supplier reference participates only when
// present. json.Marshal of a map emits keys in sorted order, which keeps the
// canonical form stable.
func operationFingerprint(actor string, docEntry int, warehouse string, lines []domain.ReceiptLine, supplierRef string, day time.Time) string {
	sorted := make([]domain.ReceiptLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LineNum < sorted[j].LineNum })

	payload := map[string]any{
		"sub":      actor,
		"docEntry": docEntry,
		"whs":      warehouse,
		"lines":    sorted,
		"date":     day.UTC().Format("2006-01-02"),
	}
	if supplierRef != "" {
		payload["supplierRef"] = supplierRef
	}

	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
