package services

import "github.com/magabrotheeeer/saas-billing/internal/models"

// DefaultExtendDays срок продления, если в запросе не указано число дней.
const DefaultExtendDays = 30

// MaxDurationDays верхняя граница срока подписки и продления за один запрос.
const MaxDurationDays = 3650

// Plans возвращает статический каталог тарифов.
func Plans() []models.Plan {
	return []models.Plan{
		{ID: 1, Name: "Basic", Price: 10, DurationDays: 30},
		{ID: 2, Name: "Pro", Price: 20, DurationDays: 60},
		{ID: 3, Name: "Premium", Price: 30, DurationDays: 90},
	}
}
