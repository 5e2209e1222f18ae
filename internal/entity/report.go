package domain

import "time"

// SalesSummary aggregates the orders created in a period.
type SalesSummary struct {
	Revenue int64 `json:"revenue"`
	Orders  int   `json:"orders"`
	Units   int   `json:"units"`
}

// Add folds one order into the summary.
func (s *SalesSummary) Add(o *Order) {
	s.Revenue += o.TotalPrice
	s.Orders++
	s.Units += o.TotalQuantity()
}

// Period is a half-open interval [From, To).
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.To)
}
