package usecase

import "time"

const (
	ChannelOrderCompleted = "orders.completed.v1"
)

// Queued on RabbitMQ when an invoice must be (re)generated out of band.
type InvoiceRequestedMsg struct {
	OrderID     string    `json:"orderId"`
	RequestedAt time.Time `json:"requestedAt"`
	Reason      string    `json:"reason"`
}

// Written to the outbox in the checkout transaction, relayed to Kafka.
type OrderCompletedMsg struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	CustomerID string    `json:"customerId"`
	EmployeeID string    `json:"employeeId"`
	Total      int64     `json:"total"`
	Units      int       `json:"units"`
	CreatedAt  time.Time `json:"createdAt"`
}
