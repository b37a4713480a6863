package coa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	groups  map[string]AccountGroup
	ledgers map[int64]Ledger
}

func newMemoryRepo() *memoryRepo {
	repo := &memoryRepo{groups: map[string]AccountGroup{}, ledgers: map[int64]Ledger{}}
	repo.groups["CASH"] = AccountGroup{ID: 1, Code: "CASH", Name: "Cash-in-Hand", Nature: NatureAsset}
	repo.groups["SALES"] = AccountGroup{ID: 2, Code: "SALES", Name: "Sales Accounts", Nature: NatureIncome, AffectsGrossProfit: true}
	repo.ledgers[1] = Ledger{ID: 1, Name: "Petty Cash", Code: "CASH-002", GroupID: 1, GroupCode: "CASH", BalanceType: BalanceDebit, IsActive: true, CurrentBalance: decimal.RequireFromString("250.50")}
	repo.ledgers[2] = Ledger{ID: 2, Name: "Cash", Code: "CASH-001", GroupID: 1, GroupCode: "CASH", BalanceType: BalanceDebit, IsActive: true}
	repo.ledgers[3] = Ledger{ID: 3, Name: "Sales", Code: "SALES-001", GroupID: 2, GroupCode: "SALES", BalanceType: BalanceCredit, IsActive: false}
	return repo
}

func (m *memoryRepo) GetGroup(_ context.Context, code string) (AccountGroup, error) {
	g, ok := m.groups[code]
	if !ok {
		return AccountGroup{}, ErrGroupNotFound
	}
	return g, nil
}

func (m *memoryRepo) ListGroups(context.Context) ([]AccountGroup, error) {
	var out []AccountGroup
	for _, g := range m.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memoryRepo) GetLedger(_ context.Context, id int64) (Ledger, error) {
	l, ok := m.ledgers[id]
	if !ok {
		return Ledger{}, ErrLedgerNotFound
	}
	return l, nil
}

func (m *memoryRepo) ListLedgers(_ context.Context, f LedgerFilter) ([]Ledger, error) {
	var out []Ledger
	for _, l := range m.ledgers {
		if f.GroupCode != "" && l.GroupCode != f.GroupCode {
			continue
		}
		if f.Active != nil && l.IsActive != *f.Active {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(l.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func TestLedgerDeltaFollowsBalanceType(t *testing.T) {
	d := decimal.RequireFromString("100.00")
	c := decimal.RequireFromString("40.00")

	debitNormal := Ledger{BalanceType: BalanceDebit}
	creditNormal := Ledger{BalanceType: BalanceCredit}

	require.True(t, debitNormal.Delta(d, c).Equal(decimal.RequireFromString("60")))
	require.True(t, creditNormal.Delta(d, c).Equal(decimal.RequireFromString("-60")))
	require.True(t, creditNormal.Delta(decimal.Zero, d).Equal(d))
}

func TestNatureNormalBalance(t *testing.T) {
	require.Equal(t, BalanceDebit, NatureAsset.NormalBalance())
	require.Equal(t, BalanceDebit, NatureExpense.NormalBalance())
	require.Equal(t, BalanceCredit, NatureIncome.NormalBalance())
	require.Equal(t, BalanceCredit, NatureLiability.NormalBalance())
	require.Equal(t, BalanceCredit, NatureEquity.NormalBalance())
	require.False(t, Nature("revenue").Valid())
}

func TestServiceLookups(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	g, err := svc.GetGroup(ctx, " SALES ")
	require.NoError(t, err)
	require.True(t, g.AffectsGrossProfit)

	_, err = svc.GetGroup(ctx, "NOPE")
	require.ErrorIs(t, err, ErrGroupNotFound)
	_, err = svc.GetGroup(ctx, "")
	require.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.GetLedger(ctx, 99)
	require.ErrorIs(t, err, ErrLedgerNotFound)
}

func TestListLedgersOrderedByName(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ledgers, err := svc.ListLedgers(context.Background(), LedgerFilter{})
	require.NoError(t, err)
	names := []string{}
	for _, l := range ledgers {
		names = append(names, l.Name)
	}
	require.Equal(t, []string{"Cash", "Petty Cash", "Sales"}, names)

	active := true
	ledgers, err = svc.ListLedgers(context.Background(), LedgerFilter{GroupCode: "CASH", Active: &active, Query: "petty"})
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	require.Equal(t, int64(1), ledgers[0].ID)
}

func TestDefaultChartIsConsistent(t *testing.T) {
	seen := map[string]bool{}
	for _, g := range DefaultGroups() {
		if !g.Nature.Valid() {
			t.Fatalf("group %s has invalid nature %q", g.Code, g.Nature)
		}
		if g.Parent != "" && !seen[g.Parent] {
			t.Fatalf("group %s listed before parent %s", g.Code, g.Parent)
		}
		seen[g.Code] = true
	}
	for _, l := range DefaultLedgers() {
		if !seen[l.Group] {
			t.Fatalf("ledger %s references unknown group %s", l.Code, l.Group)
		}
	}
}

func newTestRouter() http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, NewService(newMemoryRepo())).MountRoutes(r)
	return r
}

func TestHandlerGetLedger(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledgers/1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var view LedgerView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, "250.50", view.CurrentBalance)
	require.Equal(t, "₹250.50", view.Display)
}

func TestHandlerErrors(t *testing.T) {
	router := newTestRouter()
	cases := map[string]int{
		"/ledgers/abc":          http.StatusBadRequest,
		"/ledgers/42":           http.StatusNotFound,
		"/groups/UNKNOWN":       http.StatusNotFound,
		"/ledgers?active=maybe": http.StatusBadRequest,
	}
	for path, status := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != status {
			t.Fatalf("%s: expected %d got %d", path, status, rr.Code)
		}
	}
}

func TestHandlerListLedgersFilters(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledgers?active=false", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data []LedgerView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "Sales", body.Data[0].Name)
}
