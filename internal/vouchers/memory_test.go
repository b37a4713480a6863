package vouchers

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/coa"
	"github.com/bahikhata/bahikhata/internal/inventory"
	"github.com/bahikhata/bahikhata/internal/shared"
)

// memoryRepo is a serialised in-memory store. A failed transaction restores
// the snapshot taken when it began.
type memoryRepo struct {
	mu sync.Mutex

	nextID        int64
	seq           map[Type]int64
	vouchers      map[int64]Voucher
	draftEntries  map[int64][]EntryLine
	draftItems    map[int64][]ItemLine
	ledgers       map[int64]coa.Ledger
	items         map[int64]inventory.Item
	ledgerEntries []LedgerEntry
	movements     []StockMovement

	// conflicts makes the next n transactions fail as if the database
	// detected a serialisation conflict.
	conflicts int
	// failOn injects an error into the named repository method.
	failOn map[string]error
	// locked records ledger ids in the order LockLedgers received them.
	locked [][]int64
	txs    int
}

type memorySnapshot struct {
	nextID        int64
	seq           map[Type]int64
	vouchers      map[int64]Voucher
	draftEntries  map[int64][]EntryLine
	draftItems    map[int64][]ItemLine
	ledgers       map[int64]coa.Ledger
	items         map[int64]inventory.Item
	ledgerEntries []LedgerEntry
	movements     []StockMovement
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		seq:          map[Type]int64{},
		vouchers:     map[int64]Voucher{},
		draftEntries: map[int64][]EntryLine{},
		draftItems:   map[int64][]ItemLine{},
		ledgers:      map[int64]coa.Ledger{},
		items:        map[int64]inventory.Item{},
		failOn:       map[string]error{},
	}
}

func (m *memoryRepo) addLedger(id int64, name string, bt coa.BalanceType, opening string) {
	bal := decimal.RequireFromString(opening)
	m.ledgers[id] = coa.Ledger{
		ID: id, Name: name, Code: fmt.Sprintf("L%03d", id), BalanceType: bt,
		OpeningBalance: bal, CurrentBalance: bal, IsActive: true,
	}
}

func (m *memoryRepo) addItem(id int64, name, qty, avg string) {
	q := decimal.RequireFromString(qty)
	m.items[id] = inventory.Item{
		ID: id, Code: fmt.Sprintf("I%03d", id), Name: name, Unit: "nos",
		OpeningBalance: q, QuantityOnHand: q, AvgCost: decimal.RequireFromString(avg), IsActive: true,
	}
}

func (m *memoryRepo) snapshot() memorySnapshot {
	s := memorySnapshot{
		nextID:        m.nextID,
		seq:           maps.Clone(m.seq),
		vouchers:      maps.Clone(m.vouchers),
		draftEntries:  map[int64][]EntryLine{},
		draftItems:    map[int64][]ItemLine{},
		ledgers:       maps.Clone(m.ledgers),
		items:         maps.Clone(m.items),
		ledgerEntries: slices.Clone(m.ledgerEntries),
		movements:     slices.Clone(m.movements),
	}
	for k, v := range m.draftEntries {
		s.draftEntries[k] = slices.Clone(v)
	}
	for k, v := range m.draftItems {
		s.draftItems[k] = slices.Clone(v)
	}
	return s
}

func (m *memoryRepo) restore(s memorySnapshot) {
	m.nextID = s.nextID
	m.seq = s.seq
	m.vouchers = s.vouchers
	m.draftEntries = s.draftEntries
	m.draftItems = s.draftItems
	m.ledgers = s.ledgers
	m.items = s.items
	m.ledgerEntries = s.ledgerEntries
	m.movements = s.movements
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs++
	if m.conflicts > 0 {
		m.conflicts--
		return fmt.Errorf("memory tx: %w", shared.ErrConcurrentModification)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := m.snapshot()
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memoryRepo) ListVouchers(_ context.Context, f ListFilter) ([]Voucher, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Voucher
	for _, v := range m.vouchers {
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if f.Type != "" && v.Type != f.Type {
			continue
		}
		if f.PartyLedgerID != 0 && (v.PartyLedgerID == nil || *v.PartyLedgerID != f.PartyLedgerID) {
			continue
		}
		if !f.From.IsZero() && v.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && v.Date.After(f.To) {
			continue
		}
		matched = append(matched, v)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date.Equal(matched[j].Date) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Date.After(matched[j].Date)
	})
	total := len(matched)
	start := (f.Page - 1) * f.PerPage
	if start > total {
		start = total
	}
	end := min(start+f.PerPage, total)
	return matched[start:end], total, nil
}

// ledgerBalance reports a ledger's cached balance.
func (m *memoryRepo) ledgerBalance(id int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledgers[id].CurrentBalance
}

func (m *memoryRepo) itemPosition(id int64) inventory.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Position()
}

func (m *memoryRepo) entriesFor(voucherID int64) []LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LedgerEntry
	for _, e := range m.ledgerEntries {
		if e.VoucherID == voucherID {
			out = append(out, e)
		}
	}
	return out
}

// foldedBalance recomputes a ledger balance from its opening balance and
// every posted row.
func (m *memoryRepo) foldedBalance(id int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.ledgers[id]
	bal := l.OpeningBalance
	for _, e := range m.ledgerEntries {
		if e.LedgerID == id {
			bal = bal.Add(l.Delta(e.Debit, e.Credit))
		}
	}
	return bal
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) fail(op string) error {
	return t.repo.failOn[op]
}

func (t *memoryTx) NextVoucherNumber(_ context.Context, typ Type) (int64, error) {
	t.repo.seq[typ]++
	return t.repo.seq[typ], nil
}

func (t *memoryTx) InsertVoucher(_ context.Context, v Voucher) (Voucher, error) {
	if err := t.fail("InsertVoucher"); err != nil {
		return Voucher{}, err
	}
	t.repo.nextID++
	v.ID = t.repo.nextID
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	t.repo.vouchers[v.ID] = v
	return v, nil
}

func (t *memoryTx) UpdateDraftHeader(_ context.Context, v Voucher) error {
	cur := t.repo.vouchers[v.ID]
	cur.Date = v.Date
	cur.PartyLedgerID = v.PartyLedgerID
	cur.Narration = v.Narration
	cur.Reference = v.Reference
	t.repo.vouchers[v.ID] = cur
	return nil
}

func (t *memoryTx) ReplaceDraftLines(_ context.Context, id int64, entries []EntryLine, items []ItemLine) error {
	t.repo.draftEntries[id] = slices.Clone(entries)
	t.repo.draftItems[id] = slices.Clone(items)
	return nil
}

func (t *memoryTx) DeleteVoucher(_ context.Context, id int64) error {
	delete(t.repo.vouchers, id)
	delete(t.repo.draftEntries, id)
	delete(t.repo.draftItems, id)
	return nil
}

func (t *memoryTx) GetVoucher(_ context.Context, id int64) (Voucher, error) {
	v, ok := t.repo.vouchers[id]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	return v, nil
}

func (t *memoryTx) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	return t.GetVoucher(ctx, id)
}

func (t *memoryTx) GetDraftLines(_ context.Context, id int64) ([]EntryLine, []ItemLine, error) {
	return slices.Clone(t.repo.draftEntries[id]), slices.Clone(t.repo.draftItems[id]), nil
}

func (t *memoryTx) GetLedgers(_ context.Context, ids []int64) (map[int64]coa.Ledger, error) {
	out := map[int64]coa.Ledger{}
	for _, id := range ids {
		if l, ok := t.repo.ledgers[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (t *memoryTx) LockLedgers(ctx context.Context, ids []int64) (map[int64]coa.Ledger, error) {
	t.repo.locked = append(t.repo.locked, slices.Clone(ids))
	return t.GetLedgers(ctx, ids)
}

func (t *memoryTx) AdjustLedgerBalance(_ context.Context, id int64, delta decimal.Decimal) error {
	if err := t.fail("AdjustLedgerBalance"); err != nil {
		return err
	}
	l, ok := t.repo.ledgers[id]
	if !ok {
		return coa.ErrLedgerNotFound
	}
	l.CurrentBalance = l.CurrentBalance.Add(delta)
	t.repo.ledgers[id] = l
	return nil
}

func (t *memoryTx) GetItems(_ context.Context, ids []int64) (map[int64]inventory.Item, error) {
	out := map[int64]inventory.Item{}
	for _, id := range ids {
		if it, ok := t.repo.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (t *memoryTx) LockItems(ctx context.Context, ids []int64) (map[int64]inventory.Item, error) {
	return t.GetItems(ctx, ids)
}

func (t *memoryTx) UpdateItemStock(_ context.Context, id int64, pos inventory.Position) error {
	if err := t.fail("UpdateItemStock"); err != nil {
		return err
	}
	it, ok := t.repo.items[id]
	if !ok {
		return inventory.ErrItemNotFound
	}
	it.QuantityOnHand = pos.Quantity
	it.AvgCost = pos.AvgCost
	t.repo.items[id] = it
	return nil
}

func (t *memoryTx) InsertLedgerEntries(_ context.Context, voucherID int64, entries []LedgerEntry) ([]LedgerEntry, error) {
	out := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		t.repo.nextID++
		e.ID = t.repo.nextID
		e.VoucherID = voucherID
		t.repo.ledgerEntries = append(t.repo.ledgerEntries, e)
		out = append(out, e)
	}
	return out, nil
}

func (t *memoryTx) ListLedgerEntries(_ context.Context, voucherID int64) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, e := range t.repo.ledgerEntries {
		if e.VoucherID == voucherID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memoryTx) InsertStockMovements(_ context.Context, voucherID int64, moves []StockMovement) error {
	for _, mv := range moves {
		t.repo.nextID++
		mv.ID = t.repo.nextID
		mv.VoucherID = voucherID
		t.repo.movements = append(t.repo.movements, mv)
	}
	return nil
}

func (t *memoryTx) ListStockMovements(_ context.Context, voucherID int64) ([]StockMovement, error) {
	var out []StockMovement
	for _, mv := range t.repo.movements {
		if mv.VoucherID == voucherID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (t *memoryTx) MarkPosted(_ context.Context, id int64, total decimal.Decimal, at time.Time) error {
	if err := t.fail("MarkPosted"); err != nil {
		return err
	}
	v := t.repo.vouchers[id]
	if v.Status != StatusDraft {
		return ErrNotDraft
	}
	v.Status = StatusPosted
	v.TotalAmount = total
	v.PostedAt = &at
	t.repo.vouchers[id] = v
	return nil
}

func (t *memoryTx) MarkCancelled(_ context.Context, id int64, date time.Time, reason string, at time.Time) error {
	v := t.repo.vouchers[id]
	if v.Status != StatusPosted {
		return ErrNotPosted
	}
	v.Status = StatusCancelled
	v.CancelDate = &date
	v.CancelReason = reason
	v.CancelledAt = &at
	t.repo.vouchers[id] = v
	return nil
}

type memoryAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *memoryAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

type recordedMetrics struct {
	outcomes []string
}

func (r *recordedMetrics) ObservePosting(operation, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, operation+":"+outcome)
}
