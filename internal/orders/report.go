package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Report is the aggregate published to the reports exchange and returned
// to the caller of the generation endpoint.
type Report struct {
	GeneratedAt string        `json:"fecha_generacion"`
	OrderCount  int           `json:"cantidad_pedidos"`
	Orders      []ReportOrder `json:"pedidos"`
}

type ReportOrder struct {
	Code            string          `json:"codigo"`
	UserID          int64           `json:"usuario_id"`
	Total           decimal.Decimal `json:"precio_total"`
	Status          Status          `json:"estado"`
	PaymentMethod   string          `json:"metodo_pago"`
	DeliveryAddress string          `json:"direccion_entrega"`
	OrderDate       string          `json:"fecha_pedido"`
	ReceiptType     *string         `json:"tipo_comprobante"`
	VoucherPath     string          `json:"boucher_path"`
	Products        []ReportLine    `json:"productos"`
}

type ReportLine struct {
	Code     string          `json:"codigo"`
	Name     string          `json:"nombre"`
	Quantity int             `json:"cantidad"`
	Total    decimal.Decimal `json:"precio_total"`
}

type reportRow struct {
	order ReportOrder
	line  *ReportLine
}

// GenerateReport joins orders with their lines and product names and groups
// the rows into the nested report. Returns ErrNoOrders on an empty table.
func (r *Repo) GenerateReport(ctx context.Context) (*Report, error) {
	var count int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM pedidos`).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoOrders
	}

	rows, err := r.DB.Query(ctx, `
		SELECT p.codigo, p.usuario_id, p.precio_total, p.estado,
		       p.metodo_pago, p.direccion_entrega,
		       TO_CHAR(p.fecha_pedido, 'YYYY-MM-DD'), p.tipo_comprobante,
		       COALESCE(p.boucher_path, $1),
		       pr.codigo, pr.nombre, d.cantidad, d.precio_total
		FROM pedidos p
		LEFT JOIN detalles_pedido d ON p.id = d.pedido_id
		LEFT JOIN productos pr ON d.producto_id = pr.id
		ORDER BY p.codigo`, VoucherUnavailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flat []reportRow
	for rows.Next() {
		var row reportRow
		var st string
		var lineCode, lineName *string
		var lineQty *int
		var lineTotal *decimal.Decimal
		if err := rows.Scan(
			&row.order.Code, &row.order.UserID, &row.order.Total, &st,
			&row.order.PaymentMethod, &row.order.DeliveryAddress,
			&row.order.OrderDate, &row.order.ReceiptType, &row.order.VoucherPath,
			&lineCode, &lineName, &lineQty, &lineTotal,
		); err != nil {
			return nil, err
		}
		row.order.Status = Status(st)
		// LEFT JOIN: an order without resolvable lines yields NULL line columns.
		if lineCode != nil {
			row.line = &ReportLine{Code: *lineCode, Name: *lineName, Quantity: *lineQty, Total: *lineTotal}
		}
		flat = append(flat, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return buildReport(time.Now(), flat), nil
}

// buildReport groups the joined rows by order code, preserving row order.
func buildReport(now time.Time, rows []reportRow) *Report {
	var ordered []string
	byCode := map[string]*ReportOrder{}
	for _, row := range rows {
		o, ok := byCode[row.order.Code]
		if !ok {
			ord := row.order
			ord.Products = []ReportLine{}
			byCode[ord.Code] = &ord
			ordered = append(ordered, ord.Code)
			o = &ord
		}
		if row.line != nil {
			o.Products = append(o.Products, *row.line)
		}
	}

	rep := &Report{
		GeneratedAt: now.Format("2006-01-02 15:04:05"),
		OrderCount:  len(ordered),
		Orders:      make([]ReportOrder, 0, len(ordered)),
	}
	for _, code := range ordered {
		rep.Orders = append(rep.Orders, *byCode[code])
	}
	return rep
}
