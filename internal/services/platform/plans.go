package platform

import "github.com/magabrotheeeer/saas-billing/internal/models"

var platformPlans = map[int64][]models.Plan{
	1: {
		{ID: 1, Name: "Mobile", Price: 299, DurationDays: 30},
		{ID: 2, Name: "Standard", Price: 599, DurationDays: 30},
		{ID: 3, Name: "Premium", Price: 899, DurationDays: 30},
	},
	2: {
		{ID: 1, Name: "Individual", Price: 199, DurationDays: 30},
		{ID: 2, Name: "Duo", Price: 269, DurationDays: 30},
		{ID: 3, Name: "Family", Price: 299, DurationDays: 30},
	},
	3: {
		{ID: 1, Name: "Individual", Price: 249, DurationDays: 30},
		{ID: 2, Name: "Family", Price: 449, DurationDays: 30},
	},
}

var defaultPlans = []models.Plan{
	{ID: 1, Name: "Monthly", Price: 300, DurationDays: 30},
	{ID: 2, Name: "Quarterly", Price: 900, DurationDays: 90},
	{ID: 3, Name: "Yearly", Price: 3650, DurationDays: 365},
}

// PlansFor возвращает копию тарифов платформы или тарифы по умолчанию.
func PlansFor(platformID int64) []models.Plan {
	plans, ok := platformPlans[platformID]
	if !ok {
		plans = defaultPlans
	}
	out := make([]models.Plan, len(plans))
	copy(out, plans)
	return out
}
