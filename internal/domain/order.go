package domain

import "time"

// PurchaseOrderSummary is the list-view projection of an open purchase order.
// It is fetched per request from the ERP and never cached.
type PurchaseOrderSummary struct {
	DocEntry   int        `json:"docEntry"`
	DocNum     int        `json:"docNum"`
	DocDueDate *time.Time `json:"docDueDate"`
	VendorCode string     `json:"vendorCode"`
	VendorName string     `json:"vendorName"`
}

// PurchaseOrderLine is one line of a purchase order as reported by the ERP.
// Invariant: ReceivedQty + OpenQty == OrderedQty. OpenQty is authoritative
// only as of the moment it was fetched.
type PurchaseOrderLine struct {
	LineNum       int     `json:"lineNum"`
	ItemCode      string  `json:"itemCode"`
	Description   string  `json:"description"`
	WarehouseCode string  `json:"warehouseCode"`
	OrderedQty    float64 `json:"orderedQty"`
	OpenQty       float64 `json:"openQty"`
	ReceivedQty   float64 `json:"receivedQty"`
}

// PurchaseOrder is the detail view with (possibly warehouse-filtered) lines.
type PurchaseOrder struct {
	DocEntry   int                 `json:"docEntry"`
	DocNum     int                 `json:"docNum"`
	DocDueDate *time.Time          `json:"docDueDate"`
	Lines      []PurchaseOrderLine `json:"lines"`
}

// OrderPage is one page of summaries plus the server-reported total. The
// total may overcount relative to the post-filtered page when a warehouse
// filter was applied; that approximation is accepted, not corrected.
type OrderPage struct {
	Orders   []PurchaseOrderSummary `json:"data"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"pageSize"`
	Total    int                    `json:"total"`
}
