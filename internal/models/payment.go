package models

import "time"

// PaymentStatus состояние платежа.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
)

// Payment платёж пользователя. Amount хранится в минимальных единицах валюты.
type Payment struct {
	ID             int64         `json:"id"`
	UserID         int64         `json:"user_id"`
	SubscriptionID *int64        `json:"subscription_id,omitempty"`
	PlanName       string        `json:"plan_name"`
	Amount         int64         `json:"amount"`
	Status         PaymentStatus `json:"status"`
	SessionID      string        `json:"session_id"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Checkout результат создания платёжной сессии.
type Checkout struct {
	URL       string `json:"url"`
	PaymentID int64  `json:"payment_id"`
}
