package rabbitmq

// Ключи маршрутизации событий биллинга.
const (
	RoutingCheckoutCreated       = "checkout.created"
	RoutingPaymentConfirmed      = "payment.confirmed"
	RoutingSubscriptionCancelled = "subscription.cancelled"
)

// QueueConfig описывает очередь и ключ, которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// BillingQueues возвращает очереди, на которые раскладываются события биллинга.
func BillingQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "billing.checkouts", RoutingKey: RoutingCheckoutCreated},
		{QueueName: "billing.payments", RoutingKey: RoutingPaymentConfirmed},
		{QueueName: "billing.subscriptions", RoutingKey: RoutingSubscriptionCancelled},
	}
}
