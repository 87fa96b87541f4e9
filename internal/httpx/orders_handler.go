package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/microtienda/facturacion/internal/orders"
)

type OrderStore interface {
	ListOrders(ctx context.Context) ([]orders.Summary, error)
	OrderLines(ctx context.Context, code string) ([]orders.LineDetail, error)
	UpdateStatus(ctx context.Context, code string, status orders.Status, receiptType string) (*orders.OrderRow, error)
	GenerateReport(ctx context.Context) (*orders.Report, error)
}

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte) error
}

// LineCache caches order-line reads; lines are immutable after commit so
// entries never need invalidation.
type LineCache interface {
	GetLines(ctx context.Context, code string) ([]byte, bool)
	SetLines(ctx context.Context, code string, body []byte)
}

type OrdersHandler struct {
	Store     OrderStore
	Publisher Publisher
	Cache     LineCache
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/pedidos", h.listOrders)
	r.Get("/detalles_pedido/{codigo}", h.orderLines)
	r.Put("/pedidos/{codigo}", h.updateStatus)
	r.Post("/generar_reporte", h.generateReport)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

type updateStatusReq struct {
	Status      string `json:"estado"`
	ReceiptType string `json:"tipo_comprobante"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "codigo")

	raw, err := io.ReadAll(r.Body)
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		writeError(w, http.StatusBadRequest, "el cuerpo de la solicitud no puede estar vacío")
		return
	}
	var req updateStatusReq
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "formato JSON inválido")
		return
	}

	status := orders.Status(strings.TrimSpace(req.Status))
	receipt := strings.TrimSpace(req.ReceiptType)
	if status == "" {
		writeError(w, http.StatusBadRequest, "el estado es requerido")
		return
	}
	if !status.Valid() {
		writeError(w, http.StatusBadRequest,
			"estado inválido. Valores permitidos: pendiente, verificado, rechazado")
		return
	}
	if status == orders.StatusVerified && !orders.ValidReceiptType(receipt) {
		writeError(w, http.StatusBadRequest,
			"debe proporcionar un tipo de comprobante válido (boleta o factura)")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	row, err := h.Store.UpdateStatus(ctx, code, status, receipt)
	var stockErr *orders.StockError
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "pedido no encontrado")
		return
	case errors.As(err, &stockErr):
		log.Info().Str("codigo", code).Int("productos", len(stockErr.Shortages)).
			Msg("verify rejected for insufficient stock")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "Pedido rechazado por falta de stock",
			"productos": stockErr.Shortages,
		})
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error en la base de datos: %v", err))
		return
	}

	h.notify(r.Context(), row)
	writeJSON(w, http.StatusOK, row)
}

// notify broadcasts the status change. Best-effort: failure is logged and
// never fails the request.
func (h *OrdersHandler) notify(ctx context.Context, row *orders.OrderRow) {
	n := orders.Notification{
		Code:        row.Code,
		Status:      row.Status,
		ReceiptType: row.ReceiptType,
		Total:       row.Total,
		OrderDate:   row.OrderDate,
		Message:     fmt.Sprintf("El estado del pedido ha cambiado a '%s'", row.Status),
	}
	body, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Msg("marshal notification")
		return
	}
	if err := h.Publisher.Publish(ctx, orders.ExchangeNotify, "", body); err != nil {
		log.Error().Err(err).Str("codigo", row.Code).Msg("notification publish failed")
		return
	}
	log.Info().Str("codigo", row.Code).Str("estado", string(row.Status)).Msg("notification published")
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.ListOrders(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error al obtener los pedidos: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) orderLines(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "codigo")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Cache != nil {
		if b, ok := h.Cache.GetLines(ctx, code); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(b)
			return
		}
	}

	lines, err := h.Store.OrderLines(ctx, code)
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "pedido no encontrado")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error al obtener los productos del pedido: %v", err))
		return
	}

	b, err := json.Marshal(lines)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error al obtener los productos del pedido: %v", err))
		return
	}
	if h.Cache != nil {
		h.Cache.SetLines(ctx, code, b)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) generateReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rep, err := h.Store.GenerateReport(ctx)
	if errors.Is(err, orders.ErrNoOrders) {
		writeError(w, http.StatusNotFound, "No hay pedidos para generar el reporte")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error al generar el reporte")
		return
	}

	if body, err := json.Marshal(rep); err == nil {
		if err := h.Publisher.Publish(r.Context(), orders.ExchangeReports, "", body); err != nil {
			log.Error().Err(err).Msg("report publish failed")
		} else {
			log.Info().Int("cantidad_pedidos", rep.OrderCount).Msg("report published")
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":  "Reporte enviado correctamente",
		"detalles": rep,
	})
}
