package orders

import "strings"

type Status string

const (
	StatusPending  Status = "pendiente"
	StatusVerified Status = "verificado"
	StatusRejected Status = "rechazado"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Receipt types issued when an order is verified.
const (
	ReceiptBoleta  = "boleta"
	ReceiptFactura = "factura"
)

func ValidReceiptType(t string) bool {
	return t == ReceiptBoleta || t == ReceiptFactura
}

var paymentMethods = map[string]bool{
	"deposito":      true,
	"transferencia": true,
	"yape":          true,
	"plin":          true,
}

// ValidPaymentMethod is case-insensitive, matching the producer contract.
func ValidPaymentMethod(m string) bool {
	return paymentMethods[strings.ToLower(m)]
}

// VoucherUnavailable is the sentinel stored when no payment proof was uploaded.
const VoucherUnavailable = "No disponible"
