package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// UpdateStatus applies a status transition keyed by order code.
// A verify transition checks stock for every line first; on any shortage the
// order is forced to rechazado and a *StockError is returned.
func (r *Repo) UpdateStatus(ctx context.Context, code string, status Status, receiptType string) (*OrderRow, error) {
	var orderID int64
	err := r.DB.QueryRow(ctx, `SELECT id FROM pedidos WHERE codigo = $1`, code).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if status == StatusVerified {
		shortages, err := r.stockShortages(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if len(shortages) > 0 {
			if _, err := r.DB.Exec(ctx,
				`UPDATE pedidos SET estado = $1 WHERE id = $2`, StatusRejected, orderID); err != nil {
				return nil, err
			}
			return nil, &StockError{Shortages: shortages}
		}
	}

	query := `UPDATE pedidos SET estado = $1 WHERE id = $2
	          RETURNING id, codigo, usuario_id, TO_CHAR(fecha_pedido, 'YYYY-MM-DD'),
	                    precio_total, estado, metodo_pago, direccion_entrega, boucher_path, tipo_comprobante`
	args := []any{status, orderID}
	if status == StatusVerified {
		query = `UPDATE pedidos SET estado = $1, tipo_comprobante = $2 WHERE id = $3
		         RETURNING id, codigo, usuario_id, TO_CHAR(fecha_pedido, 'YYYY-MM-DD'),
		                   precio_total, estado, metodo_pago, direccion_entrega, boucher_path, tipo_comprobante`
		args = []any{status, receiptType, orderID}
	}

	var row OrderRow
	var st string
	err = r.DB.QueryRow(ctx, query, args...).Scan(
		&row.ID, &row.Code, &row.UserID, &row.OrderDate, &row.Total,
		&st, &row.PaymentMethod, &row.DeliveryAddress, &row.VoucherPath, &row.ReceiptType,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	row.Status = Status(st)
	return &row, nil
}

// stockShortages returns the lines of an order whose required quantity
// exceeds available stock. Empty result means the order can be verified.
func (r *Repo) stockShortages(ctx context.Context, orderID int64) ([]Shortage, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, dp.cantidad, sp.stock
		FROM detalles_pedido dp
		JOIN productos p ON dp.producto_id = p.id
		JOIN stock_productos sp ON p.id = sp.producto_id
		WHERE dp.pedido_id = $1 AND dp.cantidad > sp.stock`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Shortage
	for rows.Next() {
		var s Shortage
		if err := rows.Scan(&s.ProductID, &s.Required, &s.Available); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListOrders returns every order joined with its owning user.
func (r *Repo) ListOrders(ctx context.Context) ([]Summary, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.codigo, p.usuario_id, TO_CHAR(p.fecha_pedido, 'YYYY-MM-DD'),
		       p.precio_total, p.estado, p.metodo_pago, p.direccion_entrega,
		       p.boucher_path, p.tipo_comprobante,
		       u.nombre, u.email
		FROM pedidos p
		JOIN usuarios u ON p.usuario_id = u.id
		ORDER BY p.codigo`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var s Summary
		var st string
		if err := rows.Scan(
			&s.ID, &s.Code, &s.UserID, &s.OrderDate, &s.Total, &st,
			&s.PaymentMethod, &s.DeliveryAddress, &s.VoucherPath, &s.ReceiptType,
			&s.UserName, &s.UserEmail,
		); err != nil {
			return nil, err
		}
		s.Status = Status(st)
		out = append(out, s)
	}
	return out, rows.Err()
}

// OrderLines returns the line items of one order, or ErrOrderNotFound.
func (r *Repo) OrderLines(ctx context.Context, code string) ([]LineDetail, error) {
	var orderID int64
	err := r.DB.QueryRow(ctx, `SELECT id FROM pedidos WHERE codigo = $1`, code).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT p.codigo, p.nombre, d.precio_unitario, d.cantidad, d.precio_total
		FROM detalles_pedido d
		JOIN productos p ON d.producto_id = p.id
		WHERE d.pedido_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LineDetail{}
	for rows.Next() {
		var l LineDetail
		if err := rows.Scan(&l.ProductCode, &l.ProductName, &l.UnitPrice, &l.Quantity, &l.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
