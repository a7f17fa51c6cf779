package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

const maxPageSize = 100

// Client is the Service Layer client: one transport, one filter builder.
// It implements ports.OrderGateway and ports.ReceiptPoster.
type Client struct {
	transport *Transport
	filters   *filterBuilder
	logger    *slog.Logger
}

// NewClient builds the ERP client. Construction fails on configuration
// errors (missing credentials, unreadable CA bundle).
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	transport, err := NewTransport(cfg, logger)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		transport: transport,
		filters:   newFilterBuilder(),
		logger:    logger.With("module", "erp", "layer", "adapter"),
	}, nil
}

type orderListPayload struct {
	Count int        `json:"@odata.count"`
	Value []orderRow `json:"value"`
}

type orderRow struct {
	DocEntry      *int              `json:"DocEntry"`
	DocNum        *int              `json:"DocNum"`
	DocDueDate    string            `json:"DocDueDate"`
	CardCode      string            `json:"CardCode"`
	CardName      string            `json:"CardName"`
	DocumentLines []documentLineRow `json:"DocumentLines"`
}

type documentLineRow struct {
	LineNum         *int            `json:"LineNum"`
	ItemCode        string          `json:"ItemCode"`
	ItemDescription string          `json:"ItemDescription"`
	Quantity        json.RawMessage `json:"Quantity"`
	OpenQuantity    json.RawMessage `json:"OpenQuantity"`
	WarehouseCode   string          `json:"WarehouseCode"`
}

// ListOpenOrders lists open purchase orders ordered by due date then
// document id. When a warehouse is requested, document lines are expanded
// and orders without an open line in that warehouse are dropped client-side;
// the server-reported total is returned as-is (a known overcount in that
// case).
func (c *Client) ListOpenOrders(ctx context.Context, q ports.OrderQuery) (domain.OrderPage, error) {
	top := q.PageSize
	if top < 1 {
		top = 20
	}
	if top > maxPageSize {
		top = maxPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	skip := (page - 1) * top

	params := url.Values{}
	params.Set("$select", "DocEntry,DocNum,DocDueDate,CardCode,CardName")
	params.Set("$count", "true")
	params.Set("$orderby", "DocDueDate asc,DocEntry asc")
	params.Set("$top", strconv.Itoa(top))
	params.Set("$skip", strconv.Itoa(skip))
	if q.Warehouse != "" {
		params.Set("$expand", "DocumentLines($select=LineNum,WarehouseCode,OpenQuantity)")
	}

	body, err := c.executeFiltered(ctx, "/PurchaseOrders", params, q)
	if err != nil {
		return domain.OrderPage{}, err
	}

	var payload orderListPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.OrderPage{}, fmt.Errorf("%w: decode purchase order list: %v", domain.ErrUpstream, err)
	}

	orders := make([]domain.PurchaseOrderSummary, 0, len(payload.Value))
	for _, row := range payload.Value {
		if row.DocEntry == nil {
			return domain.OrderPage{}, fmt.Errorf("%w: purchase order row missing DocEntry", domain.ErrUpstream)
		}
		if q.Warehouse != "" && !hasOpenLineIn(row.DocumentLines, q.Warehouse) {
			continue
		}
		orders = append(orders, domain.PurchaseOrderSummary{
			DocEntry:   *row.DocEntry,
			DocNum:     intOrZero(row.DocNum),
			DocDueDate: parseERPDate(row.DocDueDate),
			VendorCode: row.CardCode,
			VendorName: row.CardName,
		})
	}

	return domain.OrderPage{
		Orders:   orders,
		Page:     page,
		PageSize: top,
		Total:    payload.Count,
	}, nil
}

// GetOrder fetches one purchase order with all lines expanded, then filters
// lines to the requested warehouse when one is given. An order whose filtered
// line set is empty is returned as-is; the caller decides whether that is a
// not-found condition.
func (c *Client) GetOrder(ctx context.Context, docEntry int, warehouse string) (domain.PurchaseOrder, error) {
	params := url.Values{}
	params.Set("$select", "DocEntry,DocNum,DocDueDate")
	params.Set("$expand", "DocumentLines($select=LineNum,ItemCode,ItemDescription,Quantity,OpenQuantity,WarehouseCode)")

	path := fmt.Sprintf("/PurchaseOrders(%d)", docEntry)
	body, err := c.transport.Execute(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			return domain.PurchaseOrder{}, fmt.Errorf("%w: purchase order %d", domain.ErrNotFound, docEntry)
		}
		return domain.PurchaseOrder{}, err
	}

	var row orderRow
	if err := json.Unmarshal(body, &row); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("%w: decode purchase order %d: %v", domain.ErrUpstream, docEntry, err)
	}
	if row.DocEntry == nil {
		return domain.PurchaseOrder{}, fmt.Errorf("%w: purchase order %d response missing DocEntry", domain.ErrUpstream, docEntry)
	}

	lines := make([]domain.PurchaseOrderLine, 0, len(row.DocumentLines))
	for _, l := range row.DocumentLines {
		if l.LineNum == nil {
			return domain.PurchaseOrder{}, fmt.Errorf("%w: purchase order %d line missing LineNum", domain.ErrUpstream, docEntry)
		}
		if warehouse != "" && l.WarehouseCode != warehouse {
			continue
		}
		ordered := looseFloat(l.Quantity)
		open := looseFloat(l.OpenQuantity)
		lines = append(lines, domain.PurchaseOrderLine{
			LineNum:       *l.LineNum,
			ItemCode:      l.ItemCode,
			Description:   l.ItemDescription,
			WarehouseCode: l.WarehouseCode,
			OrderedQty:    ordered,
			OpenQty:       open,
			ReceivedQty:   ordered - open,
		})
	}

	return domain.PurchaseOrder{
		DocEntry:   *row.DocEntry,
		DocNum:     intOrZero(row.DocNum),
		DocDueDate: parseERPDate(row.DocDueDate),
		Lines:      lines,
	}, nil
}

// executeFiltered issues the list request, walking the date-literal encoding
// candidates front-to-back when the server rejects a dated filter with a
// client error. The first accepted encoding is remembered for subsequent
// calls; with no date filter the current candidate is used directly.
func (c *Client) executeFiltered(ctx context.Context, path string, params url.Values, q ports.OrderQuery) ([]byte, error) {
	hasDates := q.DueFrom != nil || q.DueTo != nil
	start := c.filters.startIndex()

	var lastErr error
	for i := start; i < len(dateEncodings); i++ {
		params.Set("$filter", openOrdersFilter(q, dateEncodings[i]))
		body, err := c.transport.Execute(ctx, http.MethodGet, path, params, nil)
		if err == nil {
			c.filters.remember(i)
			return body, nil
		}
		lastErr = err
		if !hasDates || !isDateLiteralRejection(err) || i+1 >= len(dateEncodings) {
			return nil, err
		}
		c.logger.Warn("date literal rejected, trying next encoding",
			"operation", "list_open_orders",
			"outcome", "fallback",
			"encoding_index", i,
		)
	}
	return nil, lastErr
}

// isDateLiteralRejection reports whether the error is a client-error response
// plausibly caused by an unsupported date-literal format.
func isDateLiteralRejection(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == http.StatusBadRequest
}

func hasOpenLineIn(lines []documentLineRow, warehouse string) bool {
	for _, l := range lines {
		if l.WarehouseCode == warehouse && looseFloat(l.OpenQuantity) > 0 {
			return true
		}
	}
	return false
}

// looseFloat parses a quantity that may arrive as a number, a quoted number,
// or null; anything unparseable counts as zero rather than failing the call.
func looseFloat(raw json.RawMessage) float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// parseERPDate accepts the date shapes the Service Layer emits; unparseable
// values become nil rather than an error.
func parseERPDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
