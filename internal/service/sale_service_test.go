package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/model"
	"github.com/reinaldoagf/servimarket-back/internal/repository"
	"github.com/reinaldoagf/servimarket-back/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubSaleRepo is an in-memory SaleRepository. DB() returns nil, which makes
// the service run its transaction body directly against the stub.
type stubSaleRepo struct {
	sales        map[uuid.UUID]*model.Sale
	ticketSeq    map[uuid.UUID]int64
	replaceCalls int
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{
		sales:     make(map[uuid.UUID]*model.Sale),
		ticketSeq: make(map[uuid.UUID]int64),
	}
}

func (r *stubSaleRepo) CreateTx(_ context.Context, _ *gorm.DB, s *model.Sale) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range s.Lines {
		if s.Lines[i].ID == uuid.Nil {
			s.Lines[i].ID = uuid.New()
		}
		s.Lines[i].SaleID = s.ID
	}
	for i := range s.Splits {
		s.Splits[i].SaleID = s.ID
	}
	r.sales[s.ID] = s
	return nil
}

func (r *stubSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSaleRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubSaleRepo) SaveTx(_ *gorm.DB, s *model.Sale) error {
	r.sales[s.ID] = s
	return nil
}

func (r *stubSaleRepo) CreateLineTx(_ *gorm.DB, l *model.SaleLine) error {
	s, ok := r.sales[l.SaleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.Lines = append(s.Lines, *l)
	return nil
}

func (r *stubSaleRepo) UpdateLineQuantityTx(_ *gorm.DB, lineID uuid.UUID, qty int) error {
	for _, s := range r.sales {
		for i := range s.Lines {
			if s.Lines[i].ID == lineID {
				s.Lines[i].Quantity = qty
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubSaleRepo) ReplaceSplitsTx(_ *gorm.DB, saleID uuid.UUID, splits []model.PaymentSplit) error {
	s, ok := r.sales[saleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range splits {
		splits[i].SaleID = saleID
	}
	s.Splits = splits
	r.replaceCalls++
	return nil
}

func (r *stubSaleRepo) NextTicketNumberTx(_ *gorm.DB, branchID uuid.UUID) (int64, error) {
	r.ticketSeq[branchID]++
	return r.ticketSeq[branchID], nil
}

func (r *stubSaleRepo) SetApprovalTx(_ *gorm.DB, id uuid.UUID, approved bool) error {
	s, ok := r.sales[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.ClientApproved = approved
	return nil
}

func (r *stubSaleRepo) List(_ context.Context, _ dto.SaleFilter) ([]model.Sale, int64, error) {
	out := make([]model.Sale, 0, len(r.sales))
	for _, s := range r.sales {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *stubSaleRepo) FindForSummary(_ context.Context, _, _, _ string) ([]model.Sale, error) {
	out := make([]model.Sale, 0, len(r.sales))
	for _, s := range r.sales {
		out = append(out, *s)
	}
	return out, nil
}

func (r *stubSaleRepo) LastByUser(_ context.Context, userID uuid.UUID) (*model.Sale, error) {
	var last *model.Sale
	for _, s := range r.sales {
		if s.UserID == nil || *s.UserID != userID {
			continue
		}
		if last == nil || s.CreatedAt.After(last.CreatedAt) {
			last = s
		}
	}
	if last == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return last, nil
}

func (r *stubSaleRepo) LastByScope(_ context.Context, _, _ string) (*model.Sale, error) {
	var last *model.Sale
	for _, s := range r.sales {
		if last == nil || s.CreatedAt.After(last.CreatedAt) {
			last = s
		}
	}
	if last == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return last, nil
}

func (r *stubSaleRepo) DB() *gorm.DB { return nil }

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

// stubStockRepo is an in-memory StockRepository whose DecrementTx enforces
// the same non-negative guard as the real conditional update.
type stubStockRepo struct {
	stocks    map[uuid.UUID]*model.ProductStock
	movements []model.StockMovement
	// failDecrement simulates a concurrent checkout winning the row between
	// the pre-flight read and the guarded update.
	failDecrement bool
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{stocks: make(map[uuid.UUID]*model.ProductStock)}
}

func (r *stubStockRepo) Create(_ context.Context, s *model.ProductStock) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.stocks[s.ID] = s
	return nil
}

// FindByID returns a copy, like a real row read: callers mutating the result
// must not silently mutate the store.
func (r *stubStockRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductStock, error) {
	s, ok := r.stocks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubStockRepo) FindExisting(_ context.Context, productID uuid.UUID, presentationID *uuid.UUID, branchID uuid.UUID) (*model.ProductStock, error) {
	for _, s := range r.stocks {
		if s.ProductID != productID || s.BranchID != branchID {
			continue
		}
		if (s.PresentationID == nil) != (presentationID == nil) {
			continue
		}
		if presentationID != nil && *s.PresentationID != *presentationID {
			continue
		}
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubStockRepo) List(_ context.Context, _ dto.StockFilter) ([]model.ProductStock, int64, error) {
	out := make([]model.ProductStock, 0, len(r.stocks))
	for _, s := range r.stocks {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *stubStockRepo) Update(_ context.Context, s *model.ProductStock) error {
	r.stocks[s.ID] = s
	return nil
}

func (r *stubStockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.stocks, id)
	return nil
}

func (r *stubStockRepo) DeleteByBranchProduct(_ context.Context, branchID, productID uuid.UUID) (int64, error) {
	var deleted int64
	for id, s := range r.stocks {
		if s.BranchID == branchID && s.ProductID == productID {
			delete(r.stocks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *stubStockRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.ProductStock, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubStockRepo) DecrementTx(_ *gorm.DB, id uuid.UUID, qty int) error {
	s, ok := r.stocks[id]
	if !ok || r.failDecrement || s.AvailableQuantity < qty {
		return repository.ErrGuardFailed
	}
	s.AvailableQuantity -= qty
	return nil
}

func (r *stubStockRepo) IncrementTx(_ *gorm.DB, id uuid.UUID, qty int) error {
	s, ok := r.stocks[id]
	if !ok {
		return repository.ErrGuardFailed
	}
	s.AvailableQuantity += qty
	return nil
}

func (r *stubStockRepo) CreateMovementTx(_ *gorm.DB, m *model.StockMovement) error {
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubStockRepo) DB() *gorm.DB { return nil }

var _ repository.StockRepository = (*stubStockRepo)(nil)

// stubAggRepo records every monthly total increment for assertion.
type aggCall struct {
	scopeType    string
	scopeID      uuid.UUID
	categoryID   uuid.UUID
	categoryName string
	amount       decimal.Decimal
	month        time.Time
}

type stubAggRepo struct {
	calls []aggCall
}

func (r *stubAggRepo) AddToMonthlyTotalTx(_ *gorm.DB, scopeType string, scopeID, categoryID uuid.UUID, categoryName string, amount decimal.Decimal, now time.Time) error {
	r.calls = append(r.calls, aggCall{
		scopeType:    scopeType,
		scopeID:      scopeID,
		categoryID:   categoryID,
		categoryName: categoryName,
		amount:       amount,
		month:        model.MonthOf(now),
	})
	return nil
}

func (r *stubAggRepo) FindByScopeMonth(_ context.Context, scopeType string, scopeID uuid.UUID, month time.Time) ([]model.CategoryAggregate, error) {
	totals := make(map[uuid.UUID]*model.CategoryAggregate)
	for _, c := range r.calls {
		if c.scopeType != scopeType || c.scopeID != scopeID || !c.month.Equal(month) {
			continue
		}
		agg, ok := totals[c.categoryID]
		if !ok {
			agg = &model.CategoryAggregate{
				ScopeType:    scopeType,
				ScopeID:      scopeID,
				CategoryID:   c.categoryID,
				CategoryName: c.categoryName,
				Month:        month,
				Total:        decimal.Zero,
			}
			totals[c.categoryID] = agg
		}
		agg.Total = agg.Total.Add(c.amount)
	}
	out := make([]model.CategoryAggregate, 0, len(totals))
	for _, agg := range totals {
		out = append(out, *agg)
	}
	return out, nil
}

// sumFor totals the recorded increments for one (scope, scopeID).
func (r *stubAggRepo) sumFor(scopeType string, scopeID uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range r.calls {
		if c.scopeType == scopeType && c.scopeID == scopeID {
			sum = sum.Add(c.amount)
		}
	}
	return sum
}

var _ repository.AggregateRepository = (*stubAggRepo)(nil)

type stubRegisterRepo struct {
	registers map[uuid.UUID]*model.CashRegister
}

func (r *stubRegisterRepo) Resolve(_ context.Context, id uuid.UUID) (*model.CashRegister, error) {
	cr, ok := r.registers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cr, nil
}

var _ repository.CashRegisterRepository = (*stubRegisterRepo)(nil)

type stubClientRepo struct {
	ensured []model.BusinessBranchClient
}

func (r *stubClientRepo) Ensure(_ context.Context, branchID, userID uuid.UUID) (*model.BusinessBranchClient, error) {
	for i := range r.ensured {
		if r.ensured[i].BranchID == branchID && r.ensured[i].UserID == userID {
			return &r.ensured[i], nil
		}
	}
	c := model.BusinessBranchClient{ID: uuid.New(), BranchID: branchID, UserID: userID}
	r.ensured = append(r.ensured, c)
	return &c, nil
}

var _ repository.ClientRepository = (*stubClientRepo)(nil)

// ── Fixtures ─────────────────────────────────────────────────────────────────

type saleFixture struct {
	svc        service.SaleService
	saleRepo   *stubSaleRepo
	stockRepo  *stubStockRepo
	aggRepo    *stubAggRepo
	clientRepo *stubClientRepo
	register   *model.CashRegister
	branchID   uuid.UUID
}

func newSaleFixture() *saleFixture {
	branchID := uuid.New()
	register := &model.CashRegister{
		ID:       uuid.New(),
		Name:     "Caja 1",
		BranchID: branchID,
		Branch: &model.BusinessBranch{
			ID:         branchID,
			BusinessID: uuid.New(),
		},
	}

	saleRepo := newStubSaleRepo()
	stockRepo := newStubStockRepo()
	aggRepo := &stubAggRepo{}
	clientRepo := &stubClientRepo{}
	registerRepo := &stubRegisterRepo{registers: map[uuid.UUID]*model.CashRegister{register.ID: register}}

	svc := service.NewSaleService(
		saleRepo,
		service.NewStockLedger(stockRepo),
		aggRepo,
		registerRepo,
		clientRepo,
		nil, // no dispatcher: notifications are best-effort and skipped
		nil, // no cache
		16.0,
		false,
	)
	return &saleFixture{
		svc:        svc,
		saleRepo:   saleRepo,
		stockRepo:  stockRepo,
		aggRepo:    aggRepo,
		clientRepo: clientRepo,
		register:   register,
		branchID:   branchID,
	}
}

func (f *saleFixture) seedStock(name string, qty int, price float64) *model.ProductStock {
	stock := &model.ProductStock{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		BranchID:  f.branchID,
		AvailableQuantity: qty,
		SalePrice:         decimal.NewFromFloat(price),
		PurchasePrice:     decimal.NewFromFloat(price / 2),
	}
	stock.Product = &model.Product{
		ID:         stock.ProductID,
		Name:       name,
		CategoryID: uuid.New(),
		Category:   &model.ProductCategory{ID: uuid.New(), Name: "Bebidas"},
	}
	f.stockRepo.stocks[stock.ID] = stock
	return stock
}

func money(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func methodSplit(amount float64) dto.PaymentSplitRequest {
	return dto.PaymentSplitRequest{PaymentMethodID: uuid.NewString(), Amount: money(amount)}
}

// ── Create ───────────────────────────────────────────────────────────────────

func TestCreateSale_AssignsSequentialTickets(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Malta 355ml", 50, 10)

	makeSale := func() *dto.SaleResponse {
		resp, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
			CashRegisterID:  f.register.ID.String(),
			TotalAmount:     money(30),
			AmountCancelled: money(30),
			Lines: []dto.SaleLineRequest{
				{StockID: stock.ID.String(), Quantity: 3, UnitPrice: money(10)},
			},
			Splits: []dto.PaymentSplitRequest{methodSplit(30)},
		})
		require.NoError(t, err)
		return resp
	}

	first := makeSale()
	second := makeSale()

	assert.Equal(t, int64(1), first.TicketNumber)
	assert.Equal(t, int64(2), second.TicketNumber)
	assert.Equal(t, model.StatusPaid, first.Status)
	assert.Equal(t, 44, stock.AvailableQuantity) // 50 - 3 - 3
}

func TestCreateSale_DecrementsStockAndFeedsBranchLedger(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Harina PAN 1kg", 20, 2.5)

	_, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		TotalAmount:     money(10),
		AmountCancelled: money(10),
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: 4, UnitPrice: money(2.5)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(10)},
	})
	require.NoError(t, err)

	assert.Equal(t, 16, stock.AvailableQuantity)

	// Every decrement leaves a movement record with before/after quantities.
	require.Len(t, f.stockRepo.movements, 1)
	mov := f.stockRepo.movements[0]
	assert.Equal(t, "sale", mov.Type)
	assert.Equal(t, -4, mov.Quantity)
	assert.Equal(t, 20, mov.QuantityBefore)
	assert.Equal(t, 16, mov.QuantityAfter)
	require.NotNil(t, mov.SaleID)

	// Branch ledger gets qty × unit price for the product's category.
	require.Len(t, f.aggRepo.calls, 1)
	call := f.aggRepo.calls[0]
	assert.Equal(t, model.ScopeBranch, call.scopeType)
	assert.Equal(t, f.branchID, call.scopeID)
	assert.Equal(t, stock.Product.CategoryID, call.categoryID)
	assert.Equal(t, "10", call.amount.String())
}

func TestCreateSale_ReportsEveryShortage(t *testing.T) {
	f := newSaleFixture()
	rice := f.seedStock("Arroz 1kg", 2, 3)
	oil := f.seedStock("Aceite 1L", 1, 8)

	_, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		TotalAmount:     money(55),
		AmountCancelled: money(55),
		Lines: []dto.SaleLineRequest{
			{StockID: rice.ID.String(), Quantity: 5, UnitPrice: money(3)},
			{StockID: oil.ID.String(), Quantity: 5, UnitPrice: money(8)},
		},
	})
	require.Error(t, err)

	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.KindInsufficientStock, apiErr.Kind)
	require.Len(t, apiErr.Shortages, 2)
	assert.Contains(t, apiErr.Shortages[0], "Arroz 1kg")
	assert.Contains(t, apiErr.Shortages[0], "requested 5, available 2")
	assert.Contains(t, apiErr.Shortages[1], "Aceite 1L")

	// All-or-nothing: nothing was persisted or decremented.
	assert.Empty(t, f.saleRepo.sales)
	assert.Empty(t, f.stockRepo.movements)
	assert.Empty(t, f.aggRepo.calls)
	assert.Equal(t, 2, rice.AvailableQuantity)
	assert.Equal(t, 1, oil.AvailableQuantity)
}

func TestCreateSale_GuardRaceReportedAsShortage(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Cafe 500g", 10, 6)
	f.stockRepo.failDecrement = true

	_, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		TotalAmount:     money(6),
		AmountCancelled: money(6),
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: 1, UnitPrice: money(6)},
		},
	})
	require.Error(t, err)

	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.KindInsufficientStock, apiErr.Kind)
	assert.Contains(t, apiErr.Shortages[0], "stock changed concurrently")
	assert.Equal(t, 10, stock.AvailableQuantity)
}

func TestCreateSale_PartialPaymentRegistersClient(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Azucar 1kg", 10, 4)
	userID := uuid.New()
	uid := userID.String()

	resp, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		UserID:          &uid,
		TotalAmount:     money(20),
		AmountCancelled: money(5),
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: 5, UnitPrice: money(4)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(5)},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, resp.Status)
	require.Len(t, f.clientRepo.ensured, 1)
	assert.Equal(t, f.branchID, f.clientRepo.ensured[0].BranchID)
	assert.Equal(t, userID, f.clientRepo.ensured[0].UserID)
}

func TestCreateSale_FullPaymentForcesPaidStatus(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Pan canilla", 10, 1.5)

	// Caller says pending, but the amounts match: the invariant wins.
	resp, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		TotalAmount:     money(3),
		AmountCancelled: money(3),
		Status:          model.StatusPending,
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: 2, UnitPrice: money(1.5)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, resp.Status)
}

func TestCreateSale_UnknownRegister(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Queso blanco", 5, 7)

	_, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  uuid.NewString(),
		TotalAmount:     money(7),
		AmountCancelled: money(7),
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: 1, UnitPrice: money(7)},
		},
	})
	require.Error(t, err)
	assert.Equal(t, 404, apierror.StatusOf(err))
}

func TestCreateSale_InvalidExpiredDate(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Leche 1L", 5, 3)
	bad := "31/12/2026"

	_, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		TotalAmount:     money(3),
		AmountCancelled: money(1),
		ExpiredDate:     &bad,
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: 1, UnitPrice: money(3)},
		},
	})
	require.Error(t, err)
	assert.Equal(t, 400, apierror.StatusOf(err))
	assert.ErrorContains(t, err, "expired_date")
}

// ── Update ───────────────────────────────────────────────────────────────────

func createSeedSale(t *testing.T, f *saleFixture, stock *model.ProductStock, qty int, price float64) *dto.SaleResponse {
	t.Helper()
	total := float64(qty) * price
	resp, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		TotalAmount:     money(total),
		AmountCancelled: money(total),
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: qty, UnitPrice: money(price)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(total)},
	})
	require.NoError(t, err)
	return resp
}

func TestUpdateSale_IncreaseConsumesOnlyTheDelta(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Jugo 1L", 20, 5)
	created := createSeedSale(t, f, stock, 3, 5) // stock now 17

	resp, err := f.svc.Update(context.Background(), uuid.MustParse(created.ID), dto.UpdateSaleRequest{
		TotalAmount:     money(25),
		AmountCancelled: money(25),
		Lines: []dto.SaleLineRequest{
			{ID: &created.Lines[0].ID, StockID: stock.ID.String(), Quantity: 5, UnitPrice: money(5)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(25)},
	})
	require.NoError(t, err)

	assert.Equal(t, 15, stock.AvailableQuantity) // 17 - (5-3)
	assert.Equal(t, 5, resp.Lines[0].Quantity)

	// Ledger moved by exactly the delta: 15 at create, then +10 more.
	assert.Equal(t, "25", f.aggRepo.sumFor(model.ScopeBranch, f.branchID).String())

	// The adjustment left its own movement next to the original sale's.
	require.Len(t, f.stockRepo.movements, 2)
	assert.Equal(t, "sale_update", f.stockRepo.movements[1].Type)
	assert.Equal(t, -2, f.stockRepo.movements[1].Quantity)
}

func TestUpdateSale_DecreaseRestoresStock(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Galletas", 20, 2)
	created := createSeedSale(t, f, stock, 5, 2) // stock now 15

	_, err := f.svc.Update(context.Background(), uuid.MustParse(created.ID), dto.UpdateSaleRequest{
		TotalAmount:     money(6),
		AmountCancelled: money(6),
		Lines: []dto.SaleLineRequest{
			{ID: &created.Lines[0].ID, StockID: stock.ID.String(), Quantity: 3, UnitPrice: money(2)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(6)},
	})
	require.NoError(t, err)

	assert.Equal(t, 17, stock.AvailableQuantity) // 15 + (5-3)
	// 10 at create, minus 4 for the two restored units.
	assert.Equal(t, "6", f.aggRepo.sumFor(model.ScopeBranch, f.branchID).String())
}

func TestUpdateSale_NewLineConsumesFullQuantity(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Mantequilla", 10, 4)
	extra := f.seedStock("Mermelada", 8, 6)
	created := createSeedSale(t, f, stock, 2, 4)

	resp, err := f.svc.Update(context.Background(), uuid.MustParse(created.ID), dto.UpdateSaleRequest{
		TotalAmount:     money(20),
		AmountCancelled: money(20),
		Lines: []dto.SaleLineRequest{
			{ID: &created.Lines[0].ID, StockID: stock.ID.String(), Quantity: 2, UnitPrice: money(4)},
			{StockID: extra.ID.String(), Quantity: 2, UnitPrice: money(6)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(20)},
	})
	require.NoError(t, err)

	assert.Equal(t, 6, extra.AvailableQuantity)
	assert.Len(t, resp.Lines, 2)
}

func TestUpdateSale_ShortageOnDelta(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Atun lata", 5, 3)
	created := createSeedSale(t, f, stock, 3, 3) // 2 left

	_, err := f.svc.Update(context.Background(), uuid.MustParse(created.ID), dto.UpdateSaleRequest{
		TotalAmount:     money(30),
		AmountCancelled: money(30),
		Lines: []dto.SaleLineRequest{
			{ID: &created.Lines[0].ID, StockID: stock.ID.String(), Quantity: 10, UnitPrice: money(3)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(30)},
	})
	require.Error(t, err)

	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.KindInsufficientStock, apiErr.Kind)
	assert.Contains(t, apiErr.Shortages[0], "requested 7 more, available 2")
	assert.Equal(t, 2, stock.AvailableQuantity)
}

func TestUpdateSale_UnprocessedKeepsSplits(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Sardinas", 10, 2)
	created := createSeedSale(t, f, stock, 2, 2)
	callsAfterCreate := f.saleRepo.replaceCalls

	resp, err := f.svc.Update(context.Background(), uuid.MustParse(created.ID), dto.UpdateSaleRequest{
		TotalAmount:     money(4),
		AmountCancelled: money(1),
		Status:          model.StatusUnprocessed,
		Lines: []dto.SaleLineRequest{
			{ID: &created.Lines[0].ID, StockID: stock.ID.String(), Quantity: 2, UnitPrice: money(2)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusUnprocessed, resp.Status)
	assert.Equal(t, callsAfterCreate, f.saleRepo.replaceCalls)
	// The splits recorded at checkout survive the correction.
	assert.Len(t, resp.Splits, 1)
}

func TestUpdateSale_NotFound(t *testing.T) {
	f := newSaleFixture()

	_, err := f.svc.Update(context.Background(), uuid.New(), dto.UpdateSaleRequest{
		TotalAmount: money(1),
		Lines:       []dto.SaleLineRequest{{StockID: uuid.NewString(), Quantity: 1, UnitPrice: money(1)}},
	})
	require.Error(t, err)
	assert.Equal(t, 404, apierror.StatusOf(err))
}

// ── RecordPayment ────────────────────────────────────────────────────────────

func TestRecordPayment_FullPaymentMarksPaid(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Pasta 500g", 10, 2)
	uid := uuid.NewString()
	resp, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		UserID:          &uid,
		TotalAmount:     money(10),
		AmountCancelled: money(4),
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: 5, UnitPrice: money(2)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(4)},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, resp.Status)
	stockBefore := stock.AvailableQuantity
	movementsBefore := len(f.stockRepo.movements)

	patched, err := f.svc.RecordPayment(context.Background(), uuid.MustParse(resp.ID), dto.PatchSalePaymentRequest{
		AmountCancelled: money(10),
		Splits:          []dto.PaymentSplitRequest{methodSplit(6), methodSplit(4)},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPaid, patched.Status)
	assert.Equal(t, "10", patched.AmountCancelled.String())
	assert.Len(t, patched.Splits, 2)

	// Payment completion touches neither stock nor movements.
	assert.Equal(t, stockBefore, stock.AvailableQuantity)
	assert.Len(t, f.stockRepo.movements, movementsBefore)
}

func TestRecordPayment_PartialKeepsPending(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Cereal", 10, 5)
	uid := uuid.NewString()
	resp, err := f.svc.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		UserID:          &uid,
		TotalAmount:     money(25),
		AmountCancelled: money(5),
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: 5, UnitPrice: money(5)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(5)},
	})
	require.NoError(t, err)

	patched, err := f.svc.RecordPayment(context.Background(), uuid.MustParse(resp.ID), dto.PatchSalePaymentRequest{
		AmountCancelled: money(15),
		Splits:          []dto.PaymentSplitRequest{methodSplit(10)},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, patched.Status)
	assert.Equal(t, "15", patched.AmountCancelled.String())
}

// ── Approve ──────────────────────────────────────────────────────────────────

// seedApprovableSale stores a sale with preloaded products directly in the
// stub, the shape FindByID returns in production.
func seedApprovableSale(f *saleFixture, userID uuid.UUID, lines []model.SaleLine) *model.Sale {
	sale := &model.Sale{
		ID:              uuid.New(),
		UserID:          &userID,
		CashRegisterID:  f.register.ID,
		CashRegister:    f.register,
		TicketNumber:    99,
		TotalAmount:     money(100),
		AmountCancelled: money(100),
		Status:          model.StatusPaid,
		Lines:           lines,
	}
	f.saleRepo.sales[sale.ID] = sale
	return sale
}

func TestApproveSale_AppliesVATToNonExemptLines(t *testing.T) {
	f := newSaleFixture()
	userID := uuid.New()

	taxedCat := uuid.New()
	exemptCat := uuid.New()
	sale := seedApprovableSale(f, userID, []model.SaleLine{
		{
			ID:        uuid.New(),
			Quantity:  2,
			UnitPrice: money(100),
			Product: &model.Product{
				CategoryID: taxedCat,
				VATExempt:  false,
				Category:   &model.ProductCategory{ID: taxedCat, Name: "Licores"},
			},
		},
		{
			ID:        uuid.New(),
			Quantity:  1,
			UnitPrice: money(50),
			Product: &model.Product{
				CategoryID: exemptCat,
				VATExempt:  true,
				Category:   &model.ProductCategory{ID: exemptCat, Name: "Medicinas"},
			},
		},
	})

	resp, err := f.svc.Approve(context.Background(), sale.ID, true)
	require.NoError(t, err)
	assert.True(t, resp.ClientApproved)

	require.Len(t, f.aggRepo.calls, 2)
	byCategory := make(map[uuid.UUID]aggCall)
	for _, c := range f.aggRepo.calls {
		assert.Equal(t, model.ScopeUser, c.scopeType)
		assert.Equal(t, userID, c.scopeID)
		byCategory[c.categoryID] = c
	}

	// 2 × 100 at 16% VAT = 232; the exempt line stays at face value.
	assert.Equal(t, "232", byCategory[taxedCat].amount.String())
	assert.Equal(t, "50", byCategory[exemptCat].amount.String())
}

func TestApproveSale_RejectDoesNotFeedLedger(t *testing.T) {
	f := newSaleFixture()
	userID := uuid.New()
	cat := uuid.New()
	sale := seedApprovableSale(f, userID, []model.SaleLine{
		{
			ID:        uuid.New(),
			Quantity:  1,
			UnitPrice: money(30),
			Product: &model.Product{
				CategoryID: cat,
				Category:   &model.ProductCategory{ID: cat, Name: "Viveres"},
			},
		},
	})

	resp, err := f.svc.Approve(context.Background(), sale.ID, false)
	require.NoError(t, err)
	assert.False(t, resp.ClientApproved)
	assert.Empty(t, f.aggRepo.calls)
}

func TestApproveSale_RevokeCompensatesLedger(t *testing.T) {
	f := newSaleFixture()
	userID := uuid.New()
	cat := uuid.New()
	sale := seedApprovableSale(f, userID, []model.SaleLine{
		{
			ID:        uuid.New(),
			Quantity:  2,
			UnitPrice: money(100),
			Product: &model.Product{
				CategoryID: cat,
				VATExempt:  false,
				Category:   &model.ProductCategory{ID: cat, Name: "Licores"},
			},
		},
	})

	_, err := f.svc.Approve(context.Background(), sale.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "232", f.aggRepo.sumFor(model.ScopeUser, userID).String())

	resp, err := f.svc.Approve(context.Background(), sale.ID, false)
	require.NoError(t, err)
	assert.False(t, resp.ClientApproved)
	assert.False(t, f.saleRepo.sales[sale.ID].ClientApproved)
	// The revoke pushed the same VAT-adjusted amount back negated.
	assert.True(t, f.aggRepo.sumFor(model.ScopeUser, userID).IsZero())

	// And the sale can be approved again afterwards.
	_, err = f.svc.Approve(context.Background(), sale.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "232", f.aggRepo.sumFor(model.ScopeUser, userID).String())
}

func TestApproveSale_AlreadyApproved(t *testing.T) {
	f := newSaleFixture()
	sale := seedApprovableSale(f, uuid.New(), nil)
	sale.ClientApproved = true

	_, err := f.svc.Approve(context.Background(), sale.ID, true)
	require.Error(t, err)
	assert.Equal(t, 409, apierror.StatusOf(err))
}

func TestApproveSale_NoAccount(t *testing.T) {
	f := newSaleFixture()
	sale := &model.Sale{
		ID:             uuid.New(),
		CashRegisterID: f.register.ID,
		TotalAmount:    money(10),
	}
	f.saleRepo.sales[sale.ID] = sale

	_, err := f.svc.Approve(context.Background(), sale.ID, true)
	require.Error(t, err)
	assert.Equal(t, 400, apierror.StatusOf(err))
}

// ── Split validation (strict mode) ───────────────────────────────────────────

func TestCreateSale_StrictSplitsMustSumToCancelled(t *testing.T) {
	f := newSaleFixture()
	stock := f.seedStock("Refresco 2L", 10, 3)

	registerRepo := &stubRegisterRepo{registers: map[uuid.UUID]*model.CashRegister{f.register.ID: f.register}}
	strict := service.NewSaleService(
		f.saleRepo,
		service.NewStockLedger(f.stockRepo),
		f.aggRepo,
		registerRepo,
		f.clientRepo,
		nil,
		nil,
		16.0,
		true,
	)

	_, err := strict.Create(context.Background(), dto.CreateSaleRequest{
		CashRegisterID:  f.register.ID.String(),
		TotalAmount:     money(9),
		AmountCancelled: money(9),
		Lines: []dto.SaleLineRequest{
			{StockID: stock.ID.String(), Quantity: 3, UnitPrice: money(3)},
		},
		Splits: []dto.PaymentSplitRequest{methodSplit(5)},
	})
	require.Error(t, err)
	assert.Equal(t, 400, apierror.StatusOf(err))
	assert.ErrorContains(t, err, "splits sum")
}
