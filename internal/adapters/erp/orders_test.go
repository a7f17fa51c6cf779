package erp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Login" {
			_ = json.NewEncoder(w).Encode(map[string]string{"SessionId": "sess-1"})
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:   srv.URL,
		CompanyDB: "TESTDB",
		Username:  "manager",
		Password:  "secret",
		VerifyTLS: true,
	}, nil)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client, srv
}

func TestListOpenOrdersPagination(t *testing.T) {
	var gotQuery map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(`{"@odata.count":42,"value":[
			{"DocEntry":101,"DocNum":2101,"DocDueDate":"2026-03-05","CardCode":"V-0042","CardName":"Proveedora Norte"},
			{"DocEntry":102,"DocNum":2102,"DocDueDate":"2026-03-06T00:00:00Z","CardCode":"V-0091","CardName":"Acme"}
		]}`))
	})

	page, err := client.ListOpenOrders(context.Background(), ports.OrderQuery{Page: 3, PageSize: 20})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if gotQuery["$top"] != "20" || gotQuery["$skip"] != "40" {
		t.Fatalf("unexpected paging params: top=%s skip=%s", gotQuery["$top"], gotQuery["$skip"])
	}
	if gotQuery["$count"] != "true" {
		t.Fatalf("expected $count=true")
	}
	if gotQuery["$orderby"] != "DocDueDate asc,DocEntry asc" {
		t.Fatalf("unexpected orderby: %s", gotQuery["$orderby"])
	}
	if _, ok := gotQuery["$expand"]; ok {
		t.Fatalf("expand must be absent without a warehouse filter")
	}

	if page.Total != 42 || page.Page != 3 || page.PageSize != 20 {
		t.Fatalf("unexpected page meta: %+v", page)
	}
	if len(page.Orders) != 2 || page.Orders[0].DocEntry != 101 || page.Orders[1].VendorName != "Acme" {
		t.Fatalf("unexpected orders: %+v", page.Orders)
	}
	if page.Orders[0].DocDueDate == nil || page.Orders[0].DocDueDate.Format("2006-01-02") != "2026-03-05" {
		t.Fatalf("due date not parsed: %+v", page.Orders[0].DocDueDate)
	}
}

func TestListOpenOrdersClampsPageSize(t *testing.T) {
	var gotTop string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTop = r.URL.Query().Get("$top")
		_, _ = w.Write([]byte(`{"value":[]}`))
	})

	if _, err := client.ListOpenOrders(context.Background(), ports.OrderQuery{PageSize: 1000}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if gotTop != "100" {
		t.Fatalf("expected page size clamped to 100, got %s", gotTop)
	}
}

func TestListOpenOrdersWarehouseFilteredClientSide(t *testing.T) {
	var gotExpand string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotExpand = r.URL.Query().Get("$expand")
		_, _ = w.Write([]byte(`{"@odata.count":3,"value":[
			{"DocEntry":1,"DocumentLines":[{"LineNum":0,"WarehouseCode":"WH-NORTE","OpenQuantity":5}]},
			{"DocEntry":2,"DocumentLines":[{"LineNum":0,"WarehouseCode":"WH-SUR","OpenQuantity":5}]},
			{"DocEntry":3,"DocumentLines":[{"LineNum":0,"WarehouseCode":"WH-NORTE","OpenQuantity":0}]}
		]}`))
	})

	page, err := client.ListOpenOrders(context.Background(), ports.OrderQuery{Warehouse: "WH-NORTE"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(gotExpand, "DocumentLines") {
		t.Fatalf("expected DocumentLines expansion, got %q", gotExpand)
	}
	if len(page.Orders) != 1 || page.Orders[0].DocEntry != 1 {
		t.Fatalf("expected only the order with an open line in WH-NORTE, got %+v", page.Orders)
	}
	// Server-reported total is passed through untouched.
	if page.Total != 3 {
		t.Fatalf("expected server total preserved, got %d", page.Total)
	}
}

func TestListOpenOrdersDateEncodingFallback(t *testing.T) {
	resetProcessEncoding()
	defer resetProcessEncoding()

	var filters []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		filters = append(filters, filter)
		if !strings.Contains(filter, "datetime'") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid date literal"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"value":[]}`))
	})

	from := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if _, err := client.ListOpenOrders(context.Background(), ports.OrderQuery{DueFrom: &from}); err != nil {
		t.Fatalf("list should succeed via fallback encoding: %v", err)
	}
	if len(filters) != 2 {
		t.Fatalf("expected two attempts (iso then legacy), got %d: %v", len(filters), filters)
	}
	if strings.Contains(filters[0], "datetime'") || !strings.Contains(filters[1], "datetime'") {
		t.Fatalf("unexpected encoding order: %v", filters)
	}

	// The accepted encoding is remembered: no renewed trial sequence.
	filters = nil
	if _, err := client.ListOpenOrders(context.Background(), ports.OrderQuery{DueFrom: &from}); err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if len(filters) != 1 || !strings.Contains(filters[0], "datetime'") {
		t.Fatalf("expected a single attempt with the remembered encoding, got %v", filters)
	}
}

func TestListOpenOrdersBadRequestWithoutDatesNotRetried(t *testing.T) {
	resetProcessEncoding()
	defer resetProcessEncoding()

	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad filter"}}`))
	})

	_, err := client.ListOpenOrders(context.Background(), ports.OrderQuery{Vendor: "V-1"})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("a 400 without date filters must not trigger encoding fallback, got %d attempts", attempts)
	}
}

func TestListOpenOrdersRowMissingDocEntryFails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"DocNum":2101}]}`))
	})

	_, err := client.ListOpenOrders(context.Background(), ports.OrderQuery{})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error for row without DocEntry, got %v", err)
	}
}

func TestGetOrderMapsWarehouseAndQuantities(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/PurchaseOrders(101)" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"DocEntry":101,"DocNum":2101,"DocDueDate":"2026-03-05","DocumentLines":[
			{"LineNum":0,"ItemCode":"A-100","ItemDescription":"Caja 10kg","Quantity":10,"OpenQuantity":4,"WarehouseCode":"WH-NORTE"},
			{"LineNum":1,"ItemCode":"A-200","Quantity":"6","OpenQuantity":"6","WarehouseCode":"WH-SUR"},
			{"LineNum":2,"ItemCode":"A-300","Quantity":null,"OpenQuantity":null,"WarehouseCode":"WH-NORTE"}
		]}`))
	})

	order, err := client.GetOrder(context.Background(), 101, "WH-NORTE")
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.DocEntry != 101 || order.DocNum != 2101 {
		t.Fatalf("unexpected header: %+v", order)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("expected two WH-NORTE lines, got %+v", order.Lines)
	}
	first := order.Lines[0]
	if first.OrderedQty != 10 || first.OpenQty != 4 || first.ReceivedQty != 6 {
		t.Fatalf("quantity math wrong: %+v", first)
	}
	// Null quantities parse defensively to zero instead of failing the call.
	if order.Lines[1].OrderedQty != 0 || order.Lines[1].OpenQty != 0 {
		t.Fatalf("null quantities should map to zero: %+v", order.Lines[1])
	}
}

func TestGetOrderQuotedQuantitiesAccepted(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"DocEntry":7,"DocumentLines":[
			{"LineNum":0,"Quantity":"12.5","OpenQuantity":"2.25","WarehouseCode":"WH-NORTE"}
		]}`))
	})

	order, err := client.GetOrder(context.Background(), 7, "")
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.Lines[0].OrderedQty != 12.5 || order.Lines[0].OpenQty != 2.25 {
		t.Fatalf("quoted quantities not parsed: %+v", order.Lines[0])
	}
}

func TestGetOrderNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"No matching records"}}`))
	})

	_, err := client.GetOrder(context.Background(), 999, "WH-NORTE")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetOrderLineMissingLineNumFails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"DocEntry":101,"DocumentLines":[{"ItemCode":"A-100"}]}`))
	})

	_, err := client.GetOrder(context.Background(), 101, "")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error for line without LineNum, got %v", err)
	}
}
