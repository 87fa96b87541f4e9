package orders

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\d{9,}$`)
)

// Validate checks the intake payload. Rules run in a fixed priority order
// and the first failure wins; the returned error is always a
// *ValidationError. Validate has no side effects and is safe to re-run.
func (o *Order) Validate() error {
	required := []string{
		o.Code, o.UserCode, o.UserName, o.Email, o.Phone,
		o.PaymentMethod, o.DeliveryAddress, o.OrderDate,
	}
	for _, f := range required {
		if strings.TrimSpace(f) == "" {
			return incomplete()
		}
	}
	if !o.Total.IsPositive() {
		return incomplete()
	}
	if len(o.Products) == 0 {
		return incomplete()
	}
	if !emailRe.MatchString(o.Email) {
		return &ValidationError{Kind: KindInvalidEmail, Msg: "el email ingresado no es válido"}
	}
	if !phoneRe.MatchString(o.Phone) {
		return &ValidationError{Kind: KindInvalidPhone, Msg: "el número de celular debe tener al menos 9 dígitos"}
	}
	if !ValidPaymentMethod(o.PaymentMethod) {
		return &ValidationError{
			Kind: KindInvalidPaymentMethod,
			Msg:  fmt.Sprintf("método de pago inválido: %q", o.PaymentMethod),
		}
	}
	return nil
}

// Normalize fills the defaults applied after a successful validation:
// missing voucher path becomes the sentinel, missing status becomes pendiente.
func (o *Order) Normalize() {
	if strings.TrimSpace(o.VoucherPath) == "" {
		o.VoucherPath = VoucherUnavailable
	}
	if strings.TrimSpace(string(o.Status)) == "" {
		o.Status = StatusPending
	}
}
