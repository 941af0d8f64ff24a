package models

import "time"

// SubscriptionStatus состояние жизненного цикла подписки.
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription подписка пользователя на тарифный план.
// Даты хранятся с точностью до дня (колонки DATE).
type Subscription struct {
	ID         int64              `json:"id"`
	UserID     int64              `json:"user_id"`
	PlatformID *int64             `json:"platform_id,omitempty"`
	PlanName   string             `json:"plan_name"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`
	Status     SubscriptionStatus `json:"status"`
}

// Plan позиция статического каталога тарифов.
type Plan struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	DurationDays int    `json:"duration_days"`
}
