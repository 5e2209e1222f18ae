package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
)

// Range names accepted by SalesReport.
const (
	RangeAll        = "all"
	RangeToday      = "today"
	RangeYesterday  = "yesterday"
	RangeLast7Days  = "last_7_days"
	RangeThisMonth  = "this_month"
	RangeCustom     = "custom"
	DefaultPageSize = 10
	MaxPageSize     = 100
)

const dateLayout = "2006-01-02"

type ReportQuery struct {
	Range string
	// From and To are calendar days (YYYY-MM-DD) in the shop time zone,
	// both inclusive. Only used with RangeCustom.
	From, To string
	Page     int
	Size     int
}

type Pagination struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

type SalesReport struct {
	Period     domain.Period       `json:"period"`
	Summary    domain.SalesSummary `json:"summary"`
	Pagination Pagination          `json:"pagination"`
	Orders     []domain.Order      `json:"orders"`
}

type PurchaseHistory struct {
	Customer   *domain.Customer    `json:"customer"`
	Summary    domain.SalesSummary `json:"summary"`
	Pagination Pagination          `json:"pagination"`
	Orders     []domain.Order      `json:"orders"`
}

// Reports answers the back-office questions about past sales. Day
// boundaries are taken in the shop's time zone.
type Reports struct {
	orders    OrderRepo
	customers CustomerRepo
	loc       *time.Location
	now       Clock
}

func NewReports(orders OrderRepo, customers CustomerRepo, loc *time.Location, now Clock) *Reports {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Reports{orders: orders, customers: customers, loc: loc, now: now}
}

// Sales returns one page of the orders in the requested range together
// with totals over the whole range.
func (r *Reports) Sales(ctx context.Context, q ReportQuery) (*SalesReport, error) {
	period, err := r.Period(q.Range, q.From, q.To)
	if err != nil {
		return nil, err
	}
	page, size, err := pageBounds(q.Page, q.Size)
	if err != nil {
		return nil, err
	}

	summary, err := r.orders.SummarizeRange(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("summarize orders: %w", err)
	}
	res, err := r.orders.ListByRange(ctx, period, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &SalesReport{
		Period:     period,
		Summary:    summary,
		Pagination: paginate(page, size, res.Total),
		Orders:     nonNil(res.Orders),
	}, nil
}

// CustomerHistory lists a customer's orders, newest first. Summary covers
// the returned page only.
func (r *Reports) CustomerHistory(ctx context.Context, customerID string, page, size int) (*PurchaseHistory, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidRequest)
	}
	page, size, err := pageBounds(page, size)
	if err != nil {
		return nil, err
	}
	c, err := r.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	res, err := r.orders.ListByCustomer(ctx, customerID, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("list orders of customer %s: %w", customerID, err)
	}

	var sum domain.SalesSummary
	for i := range res.Orders {
		sum.Add(&res.Orders[i])
	}
	return &PurchaseHistory{
		Customer:   c,
		Summary:    sum,
		Pagination: paginate(page, size, res.Total),
		Orders:     nonNil(res.Orders),
	}, nil
}

// Period resolves a named range to [from, to) in the shop time zone. An
// empty name means this month.
func (r *Reports) Period(name, from, to string) (domain.Period, error) {
	now := r.now().In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	tomorrow := today.AddDate(0, 0, 1)

	switch strings.TrimSpace(name) {
	case RangeAll:
		return domain.Period{From: time.Unix(0, 0).In(r.loc), To: tomorrow}, nil
	case RangeToday:
		return domain.Period{From: today, To: tomorrow}, nil
	case RangeYesterday:
		return domain.Period{From: today.AddDate(0, 0, -1), To: today}, nil
	case RangeLast7Days:
		return domain.Period{From: today.AddDate(0, 0, -7), To: tomorrow}, nil
	case RangeThisMonth, "":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)
		return domain.Period{From: first, To: first.AddDate(0, 1, 0)}, nil
	case RangeCustom:
		if from == "" || to == "" {
			return domain.Period{}, fmt.Errorf("%w: custom range needs both dates", domain.ErrInvalidRequest)
		}
		start, err := time.ParseInLocation(dateLayout, from, r.loc)
		if err != nil {
			return domain.Period{}, fmt.Errorf("%w: bad start date %q", domain.ErrInvalidRequest, from)
		}
		end, err := time.ParseInLocation(dateLayout, to, r.loc)
		if err != nil {
			return domain.Period{}, fmt.Errorf("%w: bad end date %q", domain.ErrInvalidRequest, to)
		}
		if end.Before(start) {
			return domain.Period{}, fmt.Errorf("%w: end date before start date", domain.ErrInvalidRequest)
		}
		return domain.Period{From: start, To: end.AddDate(0, 0, 1)}, nil
	default:
		return domain.Period{}, fmt.Errorf("%w: unknown range %q", domain.ErrInvalidRequest, name)
	}
}

// pageBounds applies defaults; zero means "not supplied".
func pageBounds(page, size int) (int, int, error) {
	if page < 0 || size < 0 {
		return 0, 0, fmt.Errorf("%w: page and size must be positive", domain.ErrInvalidRequest)
	}
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size, nil
}

func paginate(page, size, total int) Pagination {
	return Pagination{
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: (total + size - 1) / size,
	}
}

func nonNil(orders []domain.Order) []domain.Order {
	if orders == nil {
		return []domain.Order{}
	}
	return orders
}
