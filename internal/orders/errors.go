package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound aborts the whole intake transaction.
	ErrUserNotFound = errors.New("usuario no encontrado")
	// ErrNoOrderID means the insert returned no generated id.
	ErrNoOrderID = errors.New("no se pudo obtener el id del pedido")
	// ErrDuplicateOrder maps the unique constraint on pedidos.codigo;
	// redelivered messages land here and are acknowledged, not rejected.
	ErrDuplicateOrder = errors.New("pedido ya registrado")
	// ErrOrderNotFound is returned by code-keyed lookups and updates.
	ErrOrderNotFound = errors.New("pedido no encontrado")
	// ErrNoOrders gates report generation on an empty table.
	ErrNoOrders = errors.New("no hay pedidos para generar el reporte")
)

type ValidationKind int

const (
	KindIncomplete ValidationKind = iota
	KindInvalidEmail
	KindInvalidPhone
	KindInvalidPaymentMethod
)

// ValidationError is a permanent, payload-level failure. Messages are the
// producer-facing (Spanish) texts; Kind is the machine-checkable tag.
type ValidationError struct {
	Kind ValidationKind
	Msg  string
}

func (e *ValidationError) Error() string { return e.Msg }

func incomplete() *ValidationError {
	return &ValidationError{Kind: KindIncomplete, Msg: "datos del pedido incompletos o inválidos"}
}

// Shortage describes one order line whose quantity exceeds available stock.
type Shortage struct {
	ProductID int64 `json:"producto_id"`
	Required  int   `json:"requerido"`
	Available int   `json:"disponible"`
}

// StockError carries every offending line of a failed verify transition.
// The order has already been forced to rechazado when this is returned.
type StockError struct {
	Shortages []Shortage
}

func (e *StockError) Error() string {
	return fmt.Sprintf("pedido rechazado por falta de stock (%d productos)", len(e.Shortages))
}
