package model

// PlanType identifies one of the fixed membership plans sold at the desk.
type PlanType string

const (
	PlanDay        PlanType = "day"
	PlanWeek       PlanType = "week"
	PlanMonth      PlanType = "month"
	PlanQuarterly  PlanType = "quarterly"
	PlanSemiAnnual PlanType = "semi_annual"
	PlanAnnual     PlanType = "annual"
)

// Plan is a catalog entry: price in whole KES and entitlement duration.
type Plan struct {
	Type         PlanType
	PriceKES     int64
	DurationDays int
}

// planCatalog is the source of truth for pricing. Amounts always come from
// here, never from client input.
var planCatalog = map[PlanType]Plan{
	PlanDay:        {Type: PlanDay, PriceKES: 500, DurationDays: 1},
	PlanWeek:       {Type: PlanWeek, PriceKES: 2000, DurationDays: 7},
	PlanMonth:      {Type: PlanMonth, PriceKES: 5500, DurationDays: 30},
	PlanQuarterly:  {Type: PlanQuarterly, PriceKES: 15000, DurationDays: 90},
	PlanSemiAnnual: {Type: PlanSemiAnnual, PriceKES: 30000, DurationDays: 180},
	PlanAnnual:     {Type: PlanAnnual, PriceKES: 54000, DurationDays: 365},
}

// PlanByType looks up a catalog entry.
func PlanByType(t PlanType) (Plan, bool) {
	p, ok := planCatalog[t]
	return p, ok
}

// ValidPlanType reports whether t names a sellable plan.
func ValidPlanType(t PlanType) bool {
	_, ok := planCatalog[t]
	return ok
}

// Plans returns the full catalog in no particular order.
func Plans() []Plan {
	out := make([]Plan, 0, len(planCatalog))
	for _, p := range planCatalog {
		out = append(out, p)
	}
	return out
}
