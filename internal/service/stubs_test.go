package service_test

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory store ───────────────────────────────────────────────────────────
// All stub repositories share one store. stubTransactor snapshots it before
// running fn and restores the snapshot when fn fails, which mirrors a
// database rollback closely enough for service tests.

type memStore struct {
	products     map[uuid.UUID]model.Product
	lots         map[uuid.UUID]model.Lot
	movements    []model.StockMovement
	purchases    map[uint]model.Purchase
	returns      map[uint]model.Return
	clients      map[uuid.UUID]model.Client
	purchaseSeq  uint
	returnSeq    uint
	productLocks [][]uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[uuid.UUID]model.Product),
		lots:      make(map[uuid.UUID]model.Lot),
		purchases: make(map[uint]model.Purchase),
		returns:   make(map[uint]model.Return),
		clients:   make(map[uuid.UUID]model.Client),
	}
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	c.movements = append([]model.StockMovement(nil), s.movements...)
	for k, v := range s.purchases {
		v.Lines = append([]model.PurchaseLine(nil), v.Lines...)
		c.purchases[k] = v
	}
	for k, v := range s.returns {
		v.Lines = append([]model.ReturnLine(nil), v.Lines...)
		c.returns[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	c.purchaseSeq = s.purchaseSeq
	c.returnSeq = s.returnSeq
	c.productLocks = s.productLocks
	return c
}

func (s *memStore) restore(snap *memStore) {
	seqP, seqR := s.purchaseSeq, s.returnSeq
	*s = *snap
	// sequences are not transactional in postgres either
	s.purchaseSeq, s.returnSeq = seqP, seqR
}

type stubTransactor struct {
	store *memStore
	calls int
}

func (t *stubTransactor) WithinTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	t.calls++
	snap := t.store.clone()
	if err := fn(nil); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

var _ repository.Transactor = (*stubTransactor)(nil)

func notFound(what string) error {
	return apierror.E(apierror.KindNotFound, "%s not found", what)
}

// ── Products ──────────────────────────────────────────────────────────────────

type stubProductRepo struct{ s *memStore }

func (r *stubProductRepo) CreateTx(_ context.Context, _ *gorm.DB, p *model.Product) error {
	for _, existing := range r.s.products {
		if existing.Reference == p.Reference {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	c := *p
	c.Lots = nil
	r.s.products[p.ID] = c
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.s.products[id]
	if !ok || p.Deleted {
		return nil, notFound("product")
	}
	return &p, nil
}

func (r *stubProductRepo) FindByReference(_ context.Context, reference string) (*model.Product, error) {
	for _, p := range r.s.products {
		if p.Reference == reference {
			return &p, nil
		}
	}
	return nil, notFound("product")
}

func (r *stubProductRepo) List(_ context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.s.products {
		if p.Deleted {
			continue
		}
		if filter.Active != "all" && p.Active != (filter.Active != "false") {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := int64(len(out))
	start := (filter.Page - 1) * filter.Limit
	if start > len(out) {
		start = len(out)
	}
	end := start + filter.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r *stubProductRepo) ListBelowThreshold(_ context.Context) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.s.products {
		if p.Active && !p.Deleted && p.AggregateStock.LessThanOrEqual(p.AlertThreshold) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubProductRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	p, ok := r.s.products[id]
	if !ok || p.Deleted {
		return notFound("product")
	}
	p.Active = active
	r.s.products[id] = p
	return nil
}

func (r *stubProductRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	p, ok := r.s.products[id]
	if !ok || p.Deleted {
		return notFound("product")
	}
	p.Deleted, p.Active = true, false
	r.s.products[id] = p
	return nil
}

func (r *stubProductRepo) FindByIDForUpdateTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, notFound("product")
	}
	return &p, nil
}

func (r *stubProductRepo) LockTx(_ context.Context, _ *gorm.DB, ids []uuid.UUID) error {
	r.s.productLocks = append(r.s.productLocks, append([]uuid.UUID(nil), ids...))
	return nil
}

func (r *stubProductRepo) AdjustStockTx(_ context.Context, _ *gorm.DB, id uuid.UUID, delta decimal.Decimal) error {
	p := r.s.products[id]
	p.AggregateStock = p.AggregateStock.Add(delta)
	r.s.products[id] = p
	return nil
}

func (r *stubProductRepo) SetStockTx(_ context.Context, _ *gorm.DB, id uuid.UUID, qty decimal.Decimal) error {
	p := r.s.products[id]
	p.AggregateStock = qty
	r.s.products[id] = p
	return nil
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── Lots ──────────────────────────────────────────────────────────────────────

type stubLotRepo struct{ s *memStore }

func (r *stubLotRepo) byProduct(productID uuid.UUID) []model.Lot {
	var out []model.Lot
	for _, l := range r.s.lots {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (r *stubLotRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.Lot, error) {
	return r.byProduct(productID), nil
}

func (r *stubLotRepo) CreateTx(_ context.Context, _ *gorm.DB, lot *model.Lot) error {
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	r.s.lots[lot.ID] = *lot
	return nil
}

func (r *stubLotRepo) ListByProductForUpdateTx(_ context.Context, _ *gorm.DB, productID uuid.UUID) ([]model.Lot, error) {
	return r.byProduct(productID), nil
}

func (r *stubLotRepo) UpdateRemainingTx(_ context.Context, _ *gorm.DB, id uuid.UUID, remaining decimal.Decimal) error {
	l := r.s.lots[id]
	l.QuantityRemaining = remaining
	r.s.lots[id] = l
	return nil
}

func (r *stubLotRepo) DeleteTx(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	delete(r.s.lots, id)
	return nil
}

func (r *stubLotRepo) SumAvailableTx(_ context.Context, _ *gorm.DB, productID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, l := range r.byProduct(productID) {
		if l.AvailableAt(now) {
			sum = sum.Add(l.QuantityRemaining)
		}
	}
	return sum, nil
}

var _ repository.LotRepository = (*stubLotRepo)(nil)

// ── Stock movements ───────────────────────────────────────────────────────────

type stubMovementRepo struct{ s *memStore }

func (r *stubMovementRepo) CreateTx(_ context.Context, _ *gorm.DB, m *model.StockMovement) error {
	r.s.movements = append(r.s.movements, *m)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, filter dto.MovementFilter) ([]model.StockMovement, int64, error) {
	var out []model.StockMovement
	for _, m := range r.s.movements {
		if filter.ProductID != "" && m.ProductID.String() != filter.ProductID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)

// ── Clients ───────────────────────────────────────────────────────────────────

type stubClientRepo struct{ s *memStore }

func (r *stubClientRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Client, error) {
	c, ok := r.s.clients[id]
	if !ok || c.Deleted {
		return nil, notFound("client")
	}
	return &c, nil
}

var _ repository.ClientRepository = (*stubClientRepo)(nil)

// ── Purchases ─────────────────────────────────────────────────────────────────

type stubPurchaseRepo struct{ s *memStore }

func (r *stubPurchaseRepo) hydrate(p model.Purchase) *model.Purchase {
	if c, ok := r.s.clients[p.ClientID]; ok {
		p.Client = &c
	}
	lines := make([]model.PurchaseLine, len(p.Lines))
	for i, l := range p.Lines {
		if prod, ok := r.s.products[l.ProductID]; ok {
			l.Product = &prod
		}
		lines[i] = l
	}
	p.Lines = lines
	return &p
}

func (r *stubPurchaseRepo) FindByID(_ context.Context, id uint) (*model.Purchase, error) {
	p, ok := r.s.purchases[id]
	if !ok {
		return nil, notFound("purchase")
	}
	return r.hydrate(p), nil
}

func (r *stubPurchaseRepo) List(_ context.Context, filter dto.PurchaseFilter) ([]model.Purchase, int64, error) {
	var out []model.Purchase
	for _, p := range r.s.purchases {
		if filter.ClientID != "" && p.ClientID.String() != filter.ClientID {
			continue
		}
		if filter.Status != "" && string(p.Status) != filter.Status {
			continue
		}
		out = append(out, *r.hydrate(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (r *stubPurchaseRepo) CreateTx(_ context.Context, _ *gorm.DB, p *model.Purchase) error {
	for _, existing := range r.s.purchases {
		if existing.Number == p.Number {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.purchaseSeq++
	p.ID = r.s.purchaseSeq
	c := *p
	c.Lines = make([]model.PurchaseLine, len(p.Lines))
	for i := range p.Lines {
		p.Lines[i].PurchaseID = p.ID
		c.Lines[i] = p.Lines[i]
	}
	r.s.purchases[p.ID] = c
	return nil
}

func (r *stubPurchaseRepo) UpdateNumberTx(_ context.Context, _ *gorm.DB, id uint, number string) error {
	p := r.s.purchases[id]
	p.Number = number
	r.s.purchases[id] = p
	return nil
}

func (r *stubPurchaseRepo) FindByIDForUpdateTx(_ context.Context, _ *gorm.DB, id uint) (*model.Purchase, error) {
	p, ok := r.s.purchases[id]
	if !ok {
		return nil, notFound("purchase")
	}
	p.Lines = append([]model.PurchaseLine(nil), p.Lines...)
	return &p, nil
}

func (r *stubPurchaseRepo) UpdateAmountPaidTx(_ context.Context, _ *gorm.DB, id uint, amountPaid decimal.Decimal) error {
	p := r.s.purchases[id]
	p.AmountPaid = amountPaid
	r.s.purchases[id] = p
	return nil
}

func (r *stubPurchaseRepo) UpdateLineReturnedTx(_ context.Context, _ *gorm.DB, lineID uuid.UUID, returned decimal.Decimal) error {
	for id, p := range r.s.purchases {
		for i := range p.Lines {
			if p.Lines[i].ID == lineID {
				lines := append([]model.PurchaseLine(nil), p.Lines...)
				lines[i].ReturnedQuantity = returned
				p.Lines = lines
				r.s.purchases[id] = p
				return nil
			}
		}
	}
	return notFound("purchase line")
}

func (r *stubPurchaseRepo) UpdateReturnStateTx(_ context.Context, _ *gorm.DB, id uint, status model.PurchaseStatus, totalRefunded decimal.Decimal) error {
	p := r.s.purchases[id]
	p.Status = status
	p.TotalRefunded = totalRefunded
	r.s.purchases[id] = p
	return nil
}

var _ repository.PurchaseRepository = (*stubPurchaseRepo)(nil)

// ── Returns ───────────────────────────────────────────────────────────────────

type stubReturnRepo struct{ s *memStore }

func (r *stubReturnRepo) FindByID(_ context.Context, id uint) (*model.Return, error) {
	ret, ok := r.s.returns[id]
	if !ok {
		return nil, notFound("return")
	}
	return &ret, nil
}

func (r *stubReturnRepo) ListByPurchase(_ context.Context, purchaseID uint) ([]model.Return, error) {
	var out []model.Return
	for _, ret := range r.s.returns {
		if ret.PurchaseID == purchaseID {
			out = append(out, ret)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubReturnRepo) CreateTx(_ context.Context, _ *gorm.DB, ret *model.Return) error {
	r.s.returnSeq++
	ret.ID = r.s.returnSeq
	c := *ret
	c.Lines = make([]model.ReturnLine, len(ret.Lines))
	for i := range ret.Lines {
		ret.Lines[i].ReturnID = ret.ID
		c.Lines[i] = ret.Lines[i]
	}
	r.s.returns[ret.ID] = c
	return nil
}

func (r *stubReturnRepo) UpdateNumberTx(_ context.Context, _ *gorm.DB, id uint, number string) error {
	ret := r.s.returns[id]
	ret.Number = number
	r.s.returns[id] = ret
	return nil
}

var _ repository.ReturnRepository = (*stubReturnRepo)(nil)

// ── Ports ─────────────────────────────────────────────────────────────────────

type stubDispatcher struct {
	receipts []uint
	alerts   []uuid.UUID
	err      error
}

func (d *stubDispatcher) EnqueueReceipt(_ context.Context, purchaseID uint) error {
	d.receipts = append(d.receipts, purchaseID)
	return d.err
}

func (d *stubDispatcher) EnqueueStockAlert(_ context.Context, productID uuid.UUID) error {
	d.alerts = append(d.alerts, productID)
	return d.err
}

var _ service.JobDispatcher = (*stubDispatcher)(nil)

type stubCache struct {
	entries     map[uuid.UUID]*dto.ProductResponse
	invalidated []uuid.UUID
	hits        int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[uuid.UUID]*dto.ProductResponse)}
}

func (c *stubCache) Get(_ context.Context, id uuid.UUID) (*dto.ProductResponse, bool) {
	resp, ok := c.entries[id]
	if ok {
		c.hits++
	}
	return resp, ok
}

func (c *stubCache) Set(_ context.Context, resp *dto.ProductResponse) {
	c.entries[uuid.MustParse(resp.ID)] = resp
}

func (c *stubCache) Invalidate(_ context.Context, ids ...uuid.UUID) {
	for _, id := range ids {
		delete(c.entries, id)
		c.invalidated = append(c.invalidated, id)
	}
}

var _ service.ProductCache = (*stubCache)(nil)

// ── Test environment ──────────────────────────────────────────────────────────

var fixedNow = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	store      *memStore
	tx         *stubTransactor
	products   *stubProductRepo
	lots       *stubLotRepo
	movements  *stubMovementRepo
	purchases  *stubPurchaseRepo
	returns    *stubReturnRepo
	dispatcher *stubDispatcher
	cache      *stubCache

	reconciler service.StockReconciler
	ledger     service.LotLedger
	purchase   service.PurchaseService
	ret        service.ReturnService
	inventory  service.InventoryService
	product    service.ProductService

	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := newMemStore()
	env := &testEnv{
		store:      s,
		tx:         &stubTransactor{store: s},
		products:   &stubProductRepo{s: s},
		lots:       &stubLotRepo{s: s},
		movements:  &stubMovementRepo{s: s},
		purchases:  &stubPurchaseRepo{s: s},
		returns:    &stubReturnRepo{s: s},
		dispatcher: &stubDispatcher{},
		cache:      newStubCache(),
		now:        fixedNow,
	}
	clock := func() time.Time { return env.now }
	clients := &stubClientRepo{s: s}

	env.reconciler = service.NewStockReconciler(env.products, env.lots, clock)
	env.ledger = service.NewLotLedger(env.products, env.lots, env.movements, env.reconciler, clock)
	env.purchase = service.NewPurchaseService(env.tx, env.purchases, env.products, clients, env.ledger,
		service.NewPricingEngine(), env.dispatcher, env.cache, nil, clock)
	env.ret = service.NewReturnService(env.tx, env.returns, env.purchases, env.products, env.ledger, env.cache, nil, clock)
	env.inventory = service.NewInventoryService(env.tx, env.products, env.movements, env.ledger, env.dispatcher, env.cache, nil, clock)
	env.product = service.NewProductService(env.tx, env.products, env.ledger, env.cache, clock)
	return env
}

// ── Fixtures ──────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func assertKind(t *testing.T, err error, kind apierror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apierror.KindOf(err), "unexpected error: %v", err)
}

func (e *testEnv) addClient(name string) uuid.UUID {
	id := uuid.New()
	e.store.clients[id] = model.Client{ID: id, Name: name}
	return id
}

// addCounterProduct adds a non-perishable TOTAL product with a stock counter.
func (e *testEnv) addCounterProduct(name, price, stock string) uuid.UUID {
	id := uuid.New()
	e.store.products[id] = model.Product{
		ID:             id,
		Reference:      "REF-" + name,
		Name:           name,
		SaleMode:       model.SaleModeTotal,
		TotalPrice:     decPtr(price),
		AlertThreshold: dec("0"),
		AggregateStock: dec(stock),
		Active:         true,
	}
	return id
}

// addPerishableProduct adds a perishable TOTAL product without lots.
func (e *testEnv) addPerishableProduct(name, price string) uuid.UUID {
	id := uuid.New()
	e.store.products[id] = model.Product{
		ID:             id,
		Reference:      "REF-" + name,
		Name:           name,
		SaleMode:       model.SaleModeTotal,
		TotalPrice:     decPtr(price),
		Perishable:     true,
		AlertThreshold: dec("0"),
		AggregateStock: decimal.Zero,
		Active:         true,
	}
	return id
}

func (e *testEnv) updateProduct(id uuid.UUID, fn func(p *model.Product)) {
	p := e.store.products[id]
	fn(&p)
	e.store.products[id] = p
}

// addLot stores a lot directly and bumps the cached aggregate when the lot
// is available, keeping the fixture reconciled.
func (e *testEnv) addLot(productID uuid.UUID, qty string, exp *time.Time, createdAt time.Time) uuid.UUID {
	id := uuid.New()
	lot := model.Lot{
		ID:                id,
		ProductID:         productID,
		QuantityReceived:  dec(qty),
		QuantityRemaining: dec(qty),
		ExpirationDate:    exp,
		Source:            model.LotSourceRestock,
		CreatedAt:         createdAt,
	}
	e.store.lots[id] = lot
	if lot.AvailableAt(e.now) {
		e.updateProduct(productID, func(p *model.Product) { p.AggregateStock = p.AggregateStock.Add(dec(qty)) })
	}
	return id
}

func (e *testEnv) stock(id uuid.UUID) decimal.Decimal { return e.store.products[id].AggregateStock }

func (e *testEnv) lotRemaining(id uuid.UUID) (decimal.Decimal, bool) {
	l, ok := e.store.lots[id]
	return l.QuantityRemaining, ok
}

func (e *testEnv) lotsOf(productID uuid.UUID) []model.Lot { return e.lots.byProduct(productID) }
