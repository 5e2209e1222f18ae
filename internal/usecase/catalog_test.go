package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aq2208/gorder-pos/internal/adapter/memstore"
	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productInput(name string) usecase.CreateProductInput {
	return usecase.CreateProductInput{
		Name:        name,
		ImportPrice: 1000,
		RetailPrice: 2000,
		CategoryID:  "general",
		Quantity:    1,
		Description: "desc",
		Images:      []domain.Image{{Data: "x", ContentType: "image/png"}},
	}
}

func TestSequence_FirstOfDayAndIncrement(t *testing.T) {
	st := memstore.New()
	seq := usecase.NewSequenceGenerator(st.Products(), fixedClock, time.UTC)

	code, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "01012400001", code)

	st.SeedProduct(domain.Product{Barcode: "01012400041", Name: "x"})
	st.SeedProduct(domain.Product{Barcode: "31122300099", Name: "yesterday"})
	code, err = seq.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "01012400042", code)
}

func TestSequence_UsesConfiguredZone(t *testing.T) {
	st := memstore.New()
	hcm := time.FixedZone("ICT", 7*3600)
	late := func() time.Time { return time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) }
	seq := usecase.NewSequenceGenerator(st.Products(), late, hcm)

	code, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "02012400001", code)
}

func TestSequence_CounterExhausted(t *testing.T) {
	st := memstore.New()
	st.SeedProduct(domain.Product{Barcode: "01012499999", Name: "last"})
	seq := usecase.NewSequenceGenerator(st.Products(), fixedClock, time.UTC)

	_, err := seq.Next(context.Background())
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)

	uc := usecase.NewCreateProduct(st.Products(), seq, fixedClock)
	_, err = uc.Execute(context.Background(), productInput("Tea"))
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestCreateProduct_ConcurrentIdentifiersAreUnique(t *testing.T) {
	st := memstore.New()
	seq := usecase.NewSequenceGenerator(st.Products(), fixedClock, time.UTC)
	uc := usecase.NewCreateProduct(st.Products(), seq, fixedClock)

	const n = 20
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := uc.Execute(context.Background(), productInput("Tea"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			codes[p.Barcode] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, codes, n)
	for code := range codes {
		assert.Equal(t, "010124", code[:6])
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	st := memstore.New()
	uc := usecase.NewCreateProduct(st.Products(), usecase.NewSequenceGenerator(st.Products(), fixedClock, time.UTC), fixedClock)

	in := productInput("Tea")
	in.RetailPrice = 0
	_, err := uc.Execute(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	in = productInput("Tea")
	in.Images = nil
	_, err = uc.Execute(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidImages)

	in = productInput("Tea")
	in.Quantity = 0
	_, err = uc.Execute(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	p, err := uc.Execute(context.Background(), productInput("Tea"))
	require.NoError(t, err)
	assert.True(t, p.InStock)
	assert.Equal(t, fixedNow, p.CreatedAt)
}

func TestCustomerDirectory_ConcurrentCreateConverges(t *testing.T) {
	st := memstore.New()
	dir := usecase.NewCustomerDirectory(st.Customers())

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := dir.CreateIfAbsent(context.Background(), "0900", "Lan", "Hue")
			if assert.NoError(t, err) {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, st.CountCustomers())
}

func TestCustomerDirectory_FindByPhone(t *testing.T) {
	st := memstore.New()
	dir := usecase.NewCustomerDirectory(st.Customers())

	_, err := dir.FindByPhone(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = dir.FindByPhone(context.Background(), "0900")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestCatalog_Lookup(t *testing.T) {
	st := memstore.New()
	tea := st.SeedProduct(domain.Product{Barcode: "01012400001", Name: "Green Tea"})
	st.SeedProduct(domain.Product{Barcode: "01012400002", Name: "Black tea"})
	st.SeedProduct(domain.Product{Barcode: "01012400003", Name: "Coffee"})
	c := usecase.NewCatalog(st.Products(), 0)

	byCode, err := c.Lookup(context.Background(), "01012400001")
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, tea.ID, byCode[0].ID)

	byName, err := c.Lookup(context.Background(), "TEA")
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	_, err = c.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

type mapCache struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	hits   int
	broken bool
}

func (c *mapCache) Get(_ context.Context, id string) (*domain.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, false, errors.New("cache down")
	}
	o, ok := c.orders[id]
	if ok {
		c.hits++
	}
	return &o, ok, nil
}

func (c *mapCache) Set(_ context.Context, o *domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ID] = *o
	return nil
}

func TestOrderQueries_ReadThroughCache(t *testing.T) {
	e := newEnv(t)
	tea := e.product("Tea", 15000, 5)
	in := input(line(tea, 1))
	in.AmountPaid = 15000
	out, err := e.checkout().Execute(context.Background(), in)
	require.NoError(t, err)

	cache := &mapCache{orders: map[string]domain.Order{}}
	q := usecase.NewOrderQueries(e.store.Orders(), cache)

	_, err = q.Get(context.Background(), out.Order.ID)
	require.NoError(t, err)
	got, err := q.Get(context.Background(), out.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Order.ID, got.ID)
	assert.Equal(t, 1, cache.hits)

	cache.broken = true
	_, err = q.Get(context.Background(), out.Order.ID)
	assert.NoError(t, err, "a cache outage falls back to the store")

	_, err = q.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
