package usecase_test

import (
	"context"
	"testing"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ict = time.FixedZone("ICT", 7*3600)

// salesEnv records three sales for one customer: one early today and one
// late yesterday (shop time), and one last month.
func salesEnv(t *testing.T) (*usecase.Reports, string) {
	t.Helper()
	e := newEnv(t)
	tea := e.product("Tea", 15000, 50)

	sell := func(at time.Time, qty int) *domain.Order {
		in := input(line(tea, qty))
		in.AmountPaid = 15000 * int64(qty)
		out, err := e.checkout(usecase.WithClock(func() time.Time { return at })).Execute(context.Background(), in)
		require.NoError(t, err)
		return out.Order
	}
	last := sell(time.Date(2024, 2, 28, 12, 0, 0, 0, ict), 1)
	sell(time.Date(2024, 3, 14, 20, 0, 0, 0, ict), 2)
	sell(time.Date(2024, 3, 15, 1, 0, 0, 0, ict), 1)

	now := func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, ict) }
	return usecase.NewReports(e.store.Orders(), e.store.Customers(), ict, now), last.CustomerID
}

func TestReports_NamedRanges(t *testing.T) {
	reports, _ := salesEnv(t)

	cases := []struct {
		rng    string
		orders int
		units  int
	}{
		{usecase.RangeToday, 1, 1},
		{usecase.RangeYesterday, 1, 2},
		{usecase.RangeLast7Days, 2, 3},
		{usecase.RangeThisMonth, 2, 3},
		{"", 2, 3},
		{usecase.RangeAll, 3, 4},
	}
	for _, tc := range cases {
		t.Run("range="+tc.rng, func(t *testing.T) {
			rep, err := reports.Sales(context.Background(), usecase.ReportQuery{Range: tc.rng})
			require.NoError(t, err)
			assert.Equal(t, tc.orders, rep.Summary.Orders)
			assert.Equal(t, tc.units, rep.Summary.Units)
			assert.Equal(t, int64(15000*tc.units), rep.Summary.Revenue)
			assert.Len(t, rep.Orders, tc.orders)
		})
	}
}

func TestReports_TodayUsesShopTimeZone(t *testing.T) {
	reports, _ := salesEnv(t)

	p, err := reports.Period(usecase.RangeToday, "", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 14, 17, 0, 0, 0, time.UTC), p.From.UTC())
	assert.Equal(t, 24*time.Hour, p.To.Sub(p.From))
}

func TestReports_CustomRangeIsInclusive(t *testing.T) {
	reports, _ := salesEnv(t)

	rep, err := reports.Sales(context.Background(), usecase.ReportQuery{
		Range: usecase.RangeCustom, From: "2024-02-28", To: "2024-02-28",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Summary.Orders)

	for name, q := range map[string]usecase.ReportQuery{
		"missing end":   {Range: usecase.RangeCustom, From: "2024-02-28"},
		"bad date":      {Range: usecase.RangeCustom, From: "28/02/2024", To: "2024-03-01"},
		"end first":     {Range: usecase.RangeCustom, From: "2024-03-02", To: "2024-03-01"},
		"unknown":       {Range: "fortnight"},
		"negative page": {Range: usecase.RangeAll, Page: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := reports.Sales(context.Background(), q)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestReports_PaginationKeepsWholeRangeTotals(t *testing.T) {
	reports, _ := salesEnv(t)

	rep, err := reports.Sales(context.Background(), usecase.ReportQuery{Range: usecase.RangeThisMonth, Page: 2, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, usecase.Pagination{Page: 2, Size: 1, TotalItems: 2, TotalPages: 2}, rep.Pagination)
	require.Len(t, rep.Orders, 1)
	assert.Equal(t, 2, rep.Orders[0].TotalQuantity(), "second page holds the older sale")
	assert.Equal(t, int64(45000), rep.Summary.Revenue)

	rep, err = reports.Sales(context.Background(), usecase.ReportQuery{Range: usecase.RangeAll, Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, usecase.MaxPageSize, rep.Pagination.Size)
}

func TestReports_CustomerHistory(t *testing.T) {
	reports, customerID := salesEnv(t)

	h, err := reports.CustomerHistory(context.Background(), customerID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "Lan", h.Customer.Name)
	assert.Equal(t, 3, h.Pagination.TotalItems)
	assert.Equal(t, 2, h.Pagination.TotalPages)
	require.Len(t, h.Orders, 2)
	assert.True(t, h.Orders[0].CreatedAt.After(h.Orders[1].CreatedAt))
	assert.Equal(t, 2, h.Summary.Orders)

	_, err = reports.CustomerHistory(context.Background(), "nope", 0, 0)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	_, err = reports.CustomerHistory(context.Background(), " ", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestReports_CustomerWithoutOrders(t *testing.T) {
	e := newEnv(t)
	c, err := domain.NewCustomer("c-1", "0911111111", "Hoa", "2 Hai Ba Trung")
	require.NoError(t, err)
	require.NoError(t, e.store.Customers().Create(context.Background(), c))
	reports := usecase.NewReports(e.store.Orders(), e.store.Customers(), ict, nil)

	h, err := reports.CustomerHistory(context.Background(), "c-1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, h.Orders)
	assert.NotNil(t, h.Orders)
	assert.Zero(t, h.Pagination.TotalPages)
}
