package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

// basePurchaseOrderType is the Service Layer object type for purchase orders,
// referenced by goods-receipt lines.
const basePurchaseOrderType = 22

// rawResponseLimit bounds what gets persisted for audit.
const rawResponseLimit = 64000

type receiptDocumentLine struct {
	BaseType      int     `json:"BaseType"`
	BaseEntry     int     `json:"BaseEntry"`
	BaseLine      int     `json:"BaseLine"`
	Quantity      float64 `json:"Quantity"`
	WarehouseCode string  `json:"WarehouseCode"`
}

type receiptDocument struct {
	SupplierRef   string                `json:"U_SupplierRef,omitempty"`
	DocumentLines []receiptDocumentLine `json:"DocumentLines"`
}

type receiptResponse struct {
	DocEntry *int `json:"DocEntry"`
}

// PostReceipt submits one goods-receipt document whose lines reference the
// base purchase order. Quantities are not validated here; the orchestrator
// does that against open quantities fetched in the same request. The write
// timeout applies and the call is never blindly re-sent.
func (c *Client) PostReceipt(ctx context.Context, docEntry int, warehouse string, lines []domain.ReceiptLine, supplierRef string) (ports.PostedReceipt, error) {
	doc := receiptDocument{SupplierRef: supplierRef}
	for _, l := range lines {
		doc.DocumentLines = append(doc.DocumentLines, receiptDocumentLine{
			BaseType:      basePurchaseOrderType,
			BaseEntry:     docEntry,
			BaseLine:      l.LineNum,
			Quantity:      l.Quantity,
			WarehouseCode: warehouse,
		})
	}

	body, err := c.transport.ExecuteWrite(ctx, http.MethodPost, "/PurchaseDeliveryNotes", nil, doc)
	if err != nil {
		return ports.PostedReceipt{}, err
	}

	var parsed receiptResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ports.PostedReceipt{}, fmt.Errorf("%w: decode goods receipt response: %v", domain.ErrUpstream, err)
	}
	if parsed.DocEntry == nil {
		return ports.PostedReceipt{}, fmt.Errorf("%w: goods receipt response missing DocEntry", domain.ErrUpstream)
	}

	raw := body
	if len(raw) > rawResponseLimit {
		raw = raw[:rawResponseLimit]
	}

	c.logger.Info("goods receipt posted",
		"operation", "post_receipt",
		"outcome", "success",
		"base_doc_entry", docEntry,
		"erp_doc_entry", *parsed.DocEntry,
		"line_count", len(lines),
	)
	return ports.PostedReceipt{DocEntry: *parsed.DocEntry, RawResponse: raw}, nil
}
