package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/microtienda/facturacion/internal/orders"
)

type fakeStore struct {
	row       *orders.OrderRow
	updateErr error

	gotCode    string
	gotStatus  orders.Status
	gotReceipt string
	updates    int

	list      []orders.Summary
	lines     []orders.LineDetail
	linesErr  error
	report    *orders.Report
	reportErr error
}

func (f *fakeStore) ListOrders(context.Context) ([]orders.Summary, error) {
	return f.list, nil
}

func (f *fakeStore) OrderLines(_ context.Context, code string) ([]orders.LineDetail, error) {
	return f.lines, f.linesErr
}

func (f *fakeStore) UpdateStatus(_ context.Context, code string, status orders.Status, receiptType string) (*orders.OrderRow, error) {
	f.updates++
	f.gotCode, f.gotStatus, f.gotReceipt = code, status, receiptType
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.row, nil
}

func (f *fakeStore) GenerateReport(context.Context) (*orders.Report, error) {
	return f.report, f.reportErr
}

type fakePublisher struct {
	err       error
	exchanges []string
	bodies    [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, exchange, _ string, body []byte) error {
	f.exchanges = append(f.exchanges, exchange)
	f.bodies = append(f.bodies, body)
	return f.err
}

type fakeCache struct {
	data map[string][]byte
}

func (f *fakeCache) GetLines(_ context.Context, code string) ([]byte, bool) {
	b, ok := f.data[code]
	return b, ok
}

func (f *fakeCache) SetLines(_ context.Context, code string, body []byte) {
	f.data[code] = body
}

func setup(store *fakeStore, pub *fakePublisher) *chi.Mux {
	r := NewRouter()
	h := &OrdersHandler{Store: store, Publisher: pub}
	h.Register(r)
	return r
}

func doPut(t *testing.T, r *chi.Mux, code, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/pedidos/"+code, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func verifiedRow() *orders.OrderRow {
	receipt := orders.ReceiptBoleta
	return &orders.OrderRow{
		ID:              1,
		Code:            "PED0001",
		UserID:          7,
		OrderDate:       "2025-03-01",
		Total:           decimal.NewFromInt(50),
		Status:          orders.StatusVerified,
		PaymentMethod:   "yape",
		DeliveryAddress: "Av. 1",
		VoucherPath:     orders.VoucherUnavailable,
		ReceiptType:     &receipt,
	}
}

func TestUpdateStatus_EmptyBody(t *testing.T) {
	store := &fakeStore{}
	w := doPut(t, setup(store, &fakePublisher{}), "PED0001", "   ")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, store.updates)
}

func TestUpdateStatus_InvalidJSON(t *testing.T) {
	store := &fakeStore{}
	w := doPut(t, setup(store, &fakePublisher{}), "PED0001", `{"estado":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, store.updates)
}

func TestUpdateStatus_MissingStatus(t *testing.T) {
	store := &fakeStore{}
	w := doPut(t, setup(store, &fakePublisher{}), "PED0001", `{"tipo_comprobante":"boleta"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, store.updates)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	store := &fakeStore{}
	w := doPut(t, setup(store, &fakePublisher{}), "PED0001", `{"estado":"enviado"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, store.updates)
}

func TestUpdateStatus_VerifiedRequiresReceipt(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	r := setup(store, pub)

	for _, body := range []string{
		`{"estado":"verificado"}`,
		`{"estado":"verificado","tipo_comprobante":"ticket"}`,
	} {
		w := doPut(t, r, "PED0001", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	require.Zero(t, store.updates, "order status must stay untouched")
	require.Empty(t, pub.bodies)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	store := &fakeStore{updateErr: orders.ErrOrderNotFound}
	w := doPut(t, setup(store, &fakePublisher{}), "PED9999", `{"estado":"rechazado"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStatus_InsufficientStock(t *testing.T) {
	store := &fakeStore{updateErr: &orders.StockError{
		Shortages: []orders.Shortage{{ProductID: 3, Required: 5, Available: 2}},
	}}
	pub := &fakePublisher{}
	w := doPut(t, setup(store, pub), "PED0001", `{"estado":"verificado","tipo_comprobante":"boleta"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Error     string            `json:"error"`
		Productos []orders.Shortage `json:"productos"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Pedido rechazado por falta de stock", resp.Error)
	require.Len(t, resp.Productos, 1)
	require.Equal(t, int64(3), resp.Productos[0].ProductID)
	require.Empty(t, pub.bodies, "no notification for a failed transition")
}

func TestUpdateStatus_VerifiedOK(t *testing.T) {
	store := &fakeStore{row: verifiedRow()}
	pub := &fakePublisher{}
	w := doPut(t, setup(store, pub), "PED0001", `{"estado":"verificado","tipo_comprobante":"boleta"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, orders.StatusVerified, store.gotStatus)
	require.Equal(t, orders.ReceiptBoleta, store.gotReceipt)

	require.Len(t, pub.bodies, 1, "exactly one notification per successful call")
	require.Equal(t, orders.ExchangeNotify, pub.exchanges[0])

	var n orders.Notification
	require.NoError(t, json.Unmarshal(pub.bodies[0], &n))
	require.Equal(t, "PED0001", n.Code)
	require.Equal(t, orders.StatusVerified, n.Status)
	require.Contains(t, n.Message, "verificado")
}

func TestUpdateStatus_PublishFailureStillOK(t *testing.T) {
	store := &fakeStore{row: verifiedRow()}
	pub := &fakePublisher{err: errors.New("broker down")}
	w := doPut(t, setup(store, pub), "PED0001", `{"estado":"verificado","tipo_comprobante":"boleta"}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestOrderLines_NotFound(t *testing.T) {
	store := &fakeStore{linesErr: orders.ErrOrderNotFound}
	req := httptest.NewRequest(http.MethodGet, "/detalles_pedido/PED9999", nil)
	w := httptest.NewRecorder()
	setup(store, &fakePublisher{}).ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderLines_CachesResult(t *testing.T) {
	store := &fakeStore{lines: []orders.LineDetail{{
		ProductCode: "P1", ProductName: "Teclado",
		UnitPrice: decimal.NewFromInt(25), Quantity: 2, LineTotal: decimal.NewFromInt(50),
	}}}
	cache := &fakeCache{data: map[string][]byte{}}
	r := NewRouter()
	h := &OrdersHandler{Store: store, Publisher: &fakePublisher{}, Cache: cache}
	h.Register(r)

	req := httptest.NewRequest(http.MethodGet, "/detalles_pedido/PED0001", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, cache.data, "PED0001")

	// second read is served from cache
	store.lines = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/detalles_pedido/PED0001", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Teclado")
}

func TestGenerateReport_NoOrders(t *testing.T) {
	store := &fakeStore{reportErr: orders.ErrNoOrders}
	pub := &fakePublisher{}
	req := httptest.NewRequest(http.MethodPost, "/generar_reporte", nil)
	w := httptest.NewRecorder()
	setup(store, pub).ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Empty(t, pub.bodies)
}

func TestGenerateReport_PublishesAndReturns(t *testing.T) {
	store := &fakeStore{report: &orders.Report{
		GeneratedAt: "2025-03-02 15:04:05",
		OrderCount:  1,
		Orders: []orders.ReportOrder{{
			Code:   "PED0001",
			UserID: 7,
			Total:  decimal.NewFromInt(50),
			Status: orders.StatusPending,
			Products: []orders.ReportLine{{
				Code: "P1", Name: "Teclado", Quantity: 2, Total: decimal.NewFromInt(50),
			}},
		}},
	}}
	pub := &fakePublisher{}
	req := httptest.NewRequest(http.MethodPost, "/generar_reporte", nil)
	w := httptest.NewRecorder()
	setup(store, pub).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, pub.bodies, 1)
	require.Equal(t, orders.ExchangeReports, pub.exchanges[0])

	var resp struct {
		Mensaje  string        `json:"mensaje"`
		Detalles orders.Report `json:"detalles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Reporte enviado correctamente", resp.Mensaje)
	require.Equal(t, 1, resp.Detalles.OrderCount)
	require.Equal(t, "PED0001", resp.Detalles.Orders[0].Code)
}

// The aggregate is still returned to the caller when the broker is down.
func TestGenerateReport_PublishFailureStillOK(t *testing.T) {
	store := &fakeStore{report: &orders.Report{GeneratedAt: "2025-03-02 15:04:05"}}
	pub := &fakePublisher{err: errors.New("broker down")}
	req := httptest.NewRequest(http.MethodPost, "/generar_reporte", nil)
	w := httptest.NewRecorder()
	setup(store, pub).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListOrders_OK(t *testing.T) {
	store := &fakeStore{list: []orders.Summary{{
		OrderRow: orders.OrderRow{Code: "PED0001", Status: orders.StatusPending, Total: decimal.NewFromInt(50)},
		UserName: "Ana Torres", UserEmail: "a@b.com",
	}}}
	req := httptest.NewRequest(http.MethodGet, "/pedidos", nil)
	w := httptest.NewRecorder()
	setup(store, &fakePublisher{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "PED0001")
	require.Contains(t, w.Body.String(), "nombre_usuario")
}
