package services

import (
	"time"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Today возвращает начало текущих суток в UTC. Даты подписок сравниваются по дням.
func Today(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour)
}

// EvaluateStatus вычисляет статус подписки на момент now.
//
// Правила применяются по порядку:
//   - end_date раньше сегодняшнего дня: expired;
//   - есть привязанный платёж и он не подтверждён: active.
//
// Второе правило перенесено как есть: неподтверждённый платёж делает подписку
// активной, а не оставляет её в pending. Это поведение ждёт решения продукта.
// Статусы cancelled и expired терминальные и не меняются. Поэтому правило
// "end_date в прошлом даёт expired" действует только для pending и active:
// отменённая подписка с истёкшим сроком остаётся cancelled.
// Функция чистая: запись изменений выполняет вызывающий код.
func EvaluateStatus(sub models.Subscription, payment *models.Payment, now time.Time) (models.Subscription, bool) {
	if sub.Status == models.SubscriptionCancelled || sub.Status == models.SubscriptionExpired {
		return sub, false
	}

	prev := sub.Status
	switch {
	case sub.EndDate.Before(Today(now)):
		sub.Status = models.SubscriptionExpired
	case payment != nil && payment.Status != models.PaymentConfirmed:
		sub.Status = models.SubscriptionActive
	}
	return sub, sub.Status != prev
}
