package orders

// Broker topology shared with the storefront producer and the downstream
// alert/report consumers. Names are part of the wire contract.
const (
	ExchangeIntake  = "pedido_exchange"   // direct
	ExchangeNotify  = "notificaciones"    // fanout
	ExchangeReports = "reportes_exchange" // fanout

	QueueIntake  = "pedidos"
	QueueReports = "reportes"
	QueueAlerts  = "alertas"

	KeyIntake = "procesar_pedido"
	KeyAlerts = "enviar_alerta"
)
