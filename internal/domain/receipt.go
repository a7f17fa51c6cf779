package domain

import "time"

// ReceiptLine is one requested goods-receipt quantity against a purchase
// order line.
type ReceiptLine struct {
	LineNum  int     `json:"lineNum"`
	Quantity float64 `json:"quantity"`
}

// ReceiptOperation is the immutable audit record of one accepted receiving
// request. Fingerprint is unique across operations; the database enforces it.
type ReceiptOperation struct {
	OperationID   string        `json:"operationId"`
	Fingerprint   string        `json:"fingerprint"`
	DocEntry      int           `json:"docEntry"`
	WarehouseCode string        `json:"warehouseCode"`
	SupplierRef   string        `json:"supplierRef,omitempty"`
	Actor         string        `json:"actor"`
	ERPDocEntry   int           `json:"erpDocEntry"`
	RawResponse   []byte        `json:"-"`
	Lines         []ReceiptLine `json:"lines"`
	CreatedAt     time.Time     `json:"createdAt"`
}
