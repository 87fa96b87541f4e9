package orders

import "github.com/shopspring/decimal"

// Order is the intake message shape published by the storefront.
// Field names on the wire are the producer's (Spanish) contract.
type Order struct {
	Code            string          `json:"codigo"`
	UserCode        string          `json:"codigo_usuario"`
	UserName        string          `json:"nombre_usuario"`
	Email           string          `json:"email"`
	Phone           string          `json:"celular"`
	Total           decimal.Decimal `json:"precio_total"`
	Products        []OrderLine     `json:"productos"`
	PaymentMethod   string          `json:"metodo_pago"`
	VoucherPath     string          `json:"boucher_path"`
	DeliveryAddress string          `json:"direccion_entrega"`
	OrderDate       string          `json:"fecha_pedido"`
	Status          Status          `json:"estado"`
}

type OrderLine struct {
	ProductCode string          `json:"codigo_producto"`
	Quantity    int             `json:"cantidad"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	LineTotal   decimal.Decimal `json:"precio_total"`
}

// OrderRow is a persisted pedidos row as returned to HTTP callers.
type OrderRow struct {
	ID              int64           `json:"id"`
	Code            string          `json:"codigo"`
	UserID          int64           `json:"usuario_id"`
	OrderDate       string          `json:"fecha_pedido"`
	Total           decimal.Decimal `json:"precio_total"`
	Status          Status          `json:"estado"`
	PaymentMethod   string          `json:"metodo_pago"`
	DeliveryAddress string          `json:"direccion_entrega"`
	VoucherPath     string          `json:"boucher_path"`
	ReceiptType     *string         `json:"tipo_comprobante"`
}

// Summary is the list projection joined with the owning user.
type Summary struct {
	OrderRow
	UserName  string `json:"nombre_usuario"`
	UserEmail string `json:"email_usuario"`
}

// LineDetail is one order line joined with its product.
type LineDetail struct {
	ProductCode string          `json:"codigo"`
	ProductName string          `json:"nombre"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	Quantity    int             `json:"cantidad"`
	LineTotal   decimal.Decimal `json:"precio_total"`
}

// Notification is broadcast on every accepted status transition.
type Notification struct {
	Code        string          `json:"codigo"`
	Status      Status          `json:"estado"`
	ReceiptType *string         `json:"tipo_comprobante"`
	Total       decimal.Decimal `json:"precio_total"`
	OrderDate   string          `json:"fecha_pedido"`
	Message     string          `json:"mensaje"`
}

// Alert is published for orders whose total crosses the alert threshold.
type Alert struct {
	Kind      string          `json:"tipo_alerta"`
	Code      string          `json:"codigo"`
	Total     decimal.Decimal `json:"precio_total"`
	UserName  string          `json:"nombre_usuario"`
	OrderDate string          `json:"fecha_pedido"`
}

const AlertHighValue = "Pedido de alto valor"
