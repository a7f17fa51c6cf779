package ports

import (
	"context"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
)

// OrderQuery carries the caller's list filters. Warehouse is applied
// client-side by the gateway because the ERP's query language cannot express
// the nested-line predicate.
type OrderQuery struct {
	DueFrom   *time.Time
	DueTo     *time.Time
	Vendor    string
	Warehouse string
	Page      int
	PageSize  int
}

// OrderGateway exposes read operations over open purchase orders. Open
// quantities are fetched live per call; no staleness guarantee is made beyond
// "fetched immediately before use".
type OrderGateway interface {
	ListOpenOrders(ctx context.Context, q OrderQuery) (domain.OrderPage, error)
	GetOrder(ctx context.Context, docEntry int, warehouse string) (domain.PurchaseOrder, error)
}

// PostedReceipt is the ERP's answer to a goods-receipt write: the assigned
// document identifier plus the raw body, truncated for audit storage.
type PostedReceipt struct {
	DocEntry    int
	RawResponse []byte
}

// ReceiptPoster submits goods-receipt documents against base purchase-order
// lines. It performs no quantity validation; the orchestrator validates
// against live open quantities immediately before calling it.
type ReceiptPoster interface {
	PostReceipt(ctx context.Context, docEntry int, warehouse string, lines []domain.ReceiptLine, supplierRef string) (PostedReceipt, error)
}
