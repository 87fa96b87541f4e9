package orders

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type Repo struct {
	DB *pgxpool.Pool

	// mu serializes intake transactions across concurrently delivered
	// messages; lookups and inserts never interleave between orders.
	mu sync.Mutex
}

// querier is the subset of pgx.Tx the intake transaction uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CreateOrder persists a validated order and its lines in one transaction.
// Unknown product codes are skipped with a warning; an unknown user code or
// any database error rolls the whole transaction back.
func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertOrder(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// insertOrder runs the intake writes on an open transaction. Any returned
// error aborts the transaction in CreateOrder.
func insertOrder(ctx context.Context, tx querier, o *Order) error {
	var userID int64
	err := tx.QueryRow(ctx, `SELECT id FROM usuarios WHERE codigo = $1`, o.UserCode).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	var orderID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO pedidos (codigo, usuario_id, fecha_pedido, precio_total, estado, metodo_pago, direccion_entrega, boucher_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		o.Code, userID, o.OrderDate, o.Total, o.Status, o.PaymentMethod, o.DeliveryAddress, o.VoucherPath,
	).Scan(&orderID)
	if isUniqueViolation(err) {
		return ErrDuplicateOrder
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoOrderID
	}
	if err != nil {
		return err
	}

	for _, line := range o.Products {
		var productID int64
		err = tx.QueryRow(ctx, `SELECT id FROM productos WHERE codigo = $1`, line.ProductCode).Scan(&productID)
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warn().
				Str("codigo", o.Code).
				Str("codigo_producto", line.ProductCode).
				Msg("product not in catalog, skipping line")
			continue
		}
		if err != nil {
			return err
		}

		// Quantity, unit price and total come from the message as-is.
		_, err = tx.Exec(ctx, `
			INSERT INTO detalles_pedido (pedido_id, producto_id, cantidad, precio_unitario, precio_total)
			VALUES ($1, $2, $3, $4, $5)`,
			orderID, productID, line.Quantity, line.UnitPrice, line.LineTotal,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
