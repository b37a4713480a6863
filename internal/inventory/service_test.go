package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bahikhata/bahikhata/internal/shared"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestInboundWeightedAverage(t *testing.T) {
	widget := Position{Quantity: d("10"), AvgCost: d("5.00")}

	m, err := ApplyInbound(1, widget, d("5"), d("7.00"))
	require.NoError(t, err)
	require.True(t, m.After.Quantity.Equal(d("15")), m.After.Quantity.String())
	require.Equal(t, "5.6667", m.After.AvgCost.String())
	require.True(t, m.Before.Equal(widget))
}

func TestInboundIntoEmptyStockTakesRate(t *testing.T) {
	m, err := ApplyInbound(1, Position{}, d("4"), d("12.50"))
	require.NoError(t, err)
	require.True(t, m.After.AvgCost.Equal(d("12.5")))

	m, err = ApplyInbound(1, Position{Quantity: d("-2"), AvgCost: d("9")}, d("4"), d("12.50"))
	require.NoError(t, err)
	require.True(t, m.After.Quantity.Equal(d("2")))
	require.True(t, m.After.AvgCost.Equal(d("12.5")))
}

func TestInboundRejectsBadInput(t *testing.T) {
	_, err := ApplyInbound(1, Position{}, d("0"), d("1"))
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = ApplyInbound(1, Position{}, d("1"), d("-1"))
	require.ErrorIs(t, err, ErrInvalidRate)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestOutboundKeepsAverage(t *testing.T) {
	m, err := ApplyOutbound(1, Position{Quantity: d("15"), AvgCost: d("5.6667")}, d("8"), Policy{})
	require.NoError(t, err)
	require.True(t, m.After.Quantity.Equal(d("7")))
	require.Equal(t, "5.6667", m.After.AvgCost.String())
	require.Equal(t, "5.6667", m.Rate.String())
	require.Empty(t, m.Warning)
}

func TestOutboundInsufficientStock(t *testing.T) {
	_, err := ApplyOutbound(7, Position{Quantity: d("3"), AvgCost: d("5")}, d("5"), Policy{})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.ErrorIs(t, err, shared.ErrRuleViolation)

	var short *InsufficientStockError
	require.True(t, errors.As(err, &short))
	require.Equal(t, int64(7), short.ItemID)
	require.Equal(t, "3.000", short.ProblemFields()["on_hand"])
	require.Equal(t, "5.000", short.ProblemFields()["requested"])
}

func TestOutboundAllowNegativeWarns(t *testing.T) {
	m, err := ApplyOutbound(7, Position{Quantity: d("3"), AvgCost: d("5")}, d("5"), Policy{AllowNegativeStock: true})
	require.NoError(t, err)
	require.True(t, m.After.Quantity.Equal(d("-2")))
	require.NotEmpty(t, m.Warning)
}

func TestReverseInboundRestoresSnapshot(t *testing.T) {
	start := Position{Quantity: d("10"), AvgCost: d("5.00")}
	in, err := ApplyInbound(1, start, d("5"), d("7.00"))
	require.NoError(t, err)

	back, err := ReverseInbound(1, in.After, in, Policy{})
	require.NoError(t, err)
	require.True(t, back.After.Equal(start))
	require.Equal(t, DirectionOut, back.Direction)
}

func TestReverseInboundAfterLaterMovementUnwinds(t *testing.T) {
	start := Position{Quantity: d("10"), AvgCost: d("5.00")}
	in, _ := ApplyInbound(1, start, d("5"), d("7.00"))
	sale, err := ApplyOutbound(1, in.After, d("3"), Policy{})
	require.NoError(t, err)

	back, err := ReverseInbound(1, sale.After, in, Policy{})
	require.NoError(t, err)
	require.True(t, back.After.Quantity.Equal(d("7")))
	// 12 * 5.6667 - 5 * 7 = 33.0004 over 7 units
	require.Equal(t, "4.7143", back.After.AvgCost.String())
}

func TestReverseInboundCannotGoNegative(t *testing.T) {
	in, _ := ApplyInbound(1, Position{}, d("5"), d("7"))
	sale, _ := ApplyOutbound(1, in.After, d("4"), Policy{})
	_, err := ReverseInbound(1, sale.After, in, Policy{})
	require.ErrorIs(t, err, ErrInsufficientStock)

	m, err := ReverseInbound(1, sale.After, in, Policy{AllowNegativeStock: true})
	require.NoError(t, err)
	require.True(t, m.After.Quantity.Equal(d("-4")))
	require.NotEmpty(t, m.Warning)
}

func TestReverseOutbound(t *testing.T) {
	start := Position{Quantity: d("10"), AvgCost: d("5")}
	sale, _ := ApplyOutbound(1, start, d("4"), Policy{})

	back, err := ReverseOutbound(1, sale.After, sale)
	require.NoError(t, err)
	require.True(t, back.After.Equal(start))

	later, _ := ApplyInbound(1, sale.After, d("6"), d("8"))
	back, err = ReverseOutbound(1, later.After, sale)
	require.NoError(t, err)
	require.True(t, back.After.Quantity.Equal(d("16")))
	// (12 * 6.5 + 4 * 5) / 16
	require.Equal(t, "6.125", back.After.AvgCost.String())
}

type memoryRepo struct {
	items map[int64]Item
	cards map[int64][]StockCardEntry
}

func (m *memoryRepo) GetItem(_ context.Context, id int64) (Item, error) {
	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (m *memoryRepo) ListItems(context.Context, ItemFilter) ([]Item, error) {
	var out []Item
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *memoryRepo) GetStockCard(_ context.Context, f StockCardFilter) ([]StockCardEntry, error) {
	return m.cards[f.ItemID], nil
}

func newTestRepo() *memoryRepo {
	return &memoryRepo{
		items: map[int64]Item{1: {ID: 1, Code: "WID", Name: "Widget", Unit: "nos", QuantityOnHand: d("15"), AvgCost: d("5.6667"), IsActive: true}},
		cards: map[int64][]StockCardEntry{1: {{VoucherID: 3, VoucherNumber: "PI-000001", Direction: DirectionIn, QtyIn: d("5"), Rate: d("7"), BalanceQty: d("15"), BalanceCost: d("5.6667")}}},
	}
}

func TestServiceStockCard(t *testing.T) {
	svc := NewService(newTestRepo())
	_, err := svc.GetStockCard(context.Background(), StockCardFilter{})
	require.ErrorIs(t, err, ErrFilterRequired)
	_, err = svc.GetStockCard(context.Background(), StockCardFilter{ItemID: 9})
	require.ErrorIs(t, err, ErrItemNotFound)

	entries, err := svc.GetStockCard(context.Background(), StockCardFilter{ItemID: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestHandlerItemView(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, NewService(newTestRepo())).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "15.000", body["quantity_on_hand"])
	require.Equal(t, "5.6667", body["avg_cost"])
	require.Equal(t, "85.00", body["stock_value"])

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/1/stock-card?from=bad", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/2/stock-card", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
