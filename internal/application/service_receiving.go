package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

// resolveWarehouse applies the default-warehouse rule and the authorization
// gate. It runs before any ERP call so unauthorized requests never reach the
// upstream.
func (s *Service) resolveWarehouse(actor Actor, requested string) (string, error) {
	warehouse := requested
	if warehouse == "" && len(actor.Warehouses) > 0 {
		warehouse = actor.Warehouses[0]
	}
	if warehouse == "" {
		return "", fmt.Errorf("%w: could not determine a warehouse for the request", domain.ErrInvalidInput)
	}
	for _, w := range actor.Warehouses {
		if w == warehouse {
			return warehouse, nil
		}
	}
	return "", fmt.Errorf("%w: no access to warehouse %s", domain.ErrForbidden, warehouse)
}

// ListOpenOrders lists open purchase orders visible to the actor's warehouse.
func (s *Service) ListOpenOrders(ctx context.Context, actor Actor, in ListOrdersInput) (domain.OrderPage, error) {
	warehouse, err := s.resolveWarehouse(actor, in.Warehouse)
	if err != nil {
		return domain.OrderPage{}, err
	}
	return s.orders.ListOpenOrders(ctx, ports.OrderQuery{
		DueFrom:   in.DueFrom,
		DueTo:     in.DueTo,
		Vendor:    in.Vendor,
		Warehouse: warehouse,
		Page:      in.Page,
		PageSize:  in.PageSize,
	})
}

// GetOrder fetches one purchase order restricted to the actor's warehouse. A
// document with no open lines for that warehouse is reported as not found.
func (s *Service) GetOrder(ctx context.Context, actor Actor, docEntry int, warehouse string) (domain.PurchaseOrder, error) {
	resolved, err := s.resolveWarehouse(actor, warehouse)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	order, err := s.orders.GetOrder(ctx, docEntry, resolved)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	if len(order.Lines) == 0 {
		return domain.PurchaseOrder{}, fmt.Errorf("%w: purchase order %d has no open lines for warehouse %s", domain.ErrNotFound, docEntry, resolved)
	}
	return order, nil
}

// PostReceipt drives one receiving request through validation, the duplicate
// gate, the ERP write and the audit log. Quantities are validated against
// open quantities fetched in this same request; nothing cached is trusted.
// The ERP write is never auto-retried: a failed attempt could have partially
// succeeded upstream.
func (s *Service) PostReceipt(ctx context.Context, actor Actor, in ReceiptInput) (ReceiptResult, error) {
	warehouse, err := s.resolveWarehouse(actor, in.Warehouse)
	if err != nil {
		return ReceiptResult{}, err
	}
	if in.DocEntry <= 0 {
		return ReceiptResult{}, fmt.Errorf("%w: docEntry is required", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return ReceiptResult{}, fmt.Errorf("%w: lines are required", domain.ErrInvalidInput)
	}

	order, err := s.orders.GetOrder(ctx, in.DocEntry, warehouse)
	if err != nil {
		return ReceiptResult{}, err
	}
	openByLine := make(map[int]float64, len(order.Lines))
	for _, l := range order.Lines {
		if l.OpenQty > 0 {
			openByLine[l.LineNum] = l.OpenQty
		}
	}

	lines := make([]domain.ReceiptLine, 0, len(in.Lines))
	seen := make(map[int]bool, len(in.Lines))
	for _, l := range in.Lines {
		if seen[l.LineNum] {
			return ReceiptResult{}, fmt.Errorf("%w: line %d appears more than once", domain.ErrInvalidInput, l.LineNum)
		}
		seen[l.LineNum] = true
		if l.Quantity <= 0 {
			return ReceiptResult{}, fmt.Errorf("%w: line %d: quantity must be greater than zero", domain.ErrInvalidInput, l.LineNum)
		}
		open, ok := openByLine[l.LineNum]
		if !ok {
			return ReceiptResult{}, fmt.Errorf("%w: line %d is not open for warehouse %s", domain.ErrInvalidInput, l.LineNum, warehouse)
		}
		if l.Quantity > open {
			return ReceiptResult{}, fmt.Errorf("%w: line %d: requested quantity %g exceeds open quantity %g", domain.ErrInvalidInput, l.LineNum, l.Quantity, open)
		}
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNum < lines[j].LineNum })

	now := s.nowFn()
	fingerprint := operationFingerprint(actor.Username, in.DocEntry, warehouse, lines, in.SupplierRef, now)

	// Fast-path duplicate check; the unique index consulted on insert below
	// is the authoritative guard under concurrency.
	exists, err := s.receiptLog.FingerprintExists(ctx, fingerprint)
	if err != nil {
		return ReceiptResult{}, err
	}
	if exists {
		return ReceiptResult{}, fmt.Errorf("%w: fingerprint %s", domain.ErrDuplicateOperation, fingerprint)
	}

	posted, err := s.poster.PostReceipt(ctx, in.DocEntry, warehouse, lines, in.SupplierRef)
	if err != nil {
		return ReceiptResult{}, err
	}

	op := domain.ReceiptOperation{
		OperationID:   uuid.NewString(),
		Fingerprint:   fingerprint,
		DocEntry:      in.DocEntry,
		WarehouseCode: warehouse,
		SupplierRef:   in.SupplierRef,
		Actor:         actor.Username,
		ERPDocEntry:   posted.DocEntry,
		RawResponse:   posted.RawResponse,
		Lines:         lines,
		CreatedAt:     now,
	}
	if err := s.receiptLog.Append(ctx, op); err != nil {
		if errors.Is(err, domain.ErrDuplicateOperation) {
			return ReceiptResult{}, err
		}
		// The receipt exists in the ERP but the idempotency record does not;
		// this must surface loudly, never as success.
		return ReceiptResult{}, fmt.Errorf("%w: audit write failed after posting goods receipt %d: %v", domain.ErrPersistence, posted.DocEntry, err)
	}

	return ReceiptResult{
		ERPDocEntry: posted.DocEntry,
		Fingerprint: fingerprint,
		Lines:       lines,
	}, nil
}
