package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/model"
	"github.com/reinaldoagf/servimarket-back/internal/repository"
	"github.com/reinaldoagf/servimarket-back/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	Create(ctx context.Context, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateSaleRequest) (*dto.SaleResponse, error)
	RecordPayment(ctx context.Context, id uuid.UUID, req dto.PatchSalePaymentRequest) (*dto.SaleResponse, error)
	Approve(ctx context.Context, id uuid.UUID, approve bool) (*dto.SaleResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
}

type saleService struct {
	repo         repository.SaleRepository
	ledger       StockLedger
	aggRepo      repository.AggregateRepository
	registerRepo repository.CashRegisterRepository
	clientRepo   repository.ClientRepository
	dispatcher   *worker.Dispatcher
	cache        *SummaryCache
	vatRate      decimal.Decimal
	strictSplits bool
}

func NewSaleService(
	repo repository.SaleRepository,
	ledger StockLedger,
	aggRepo repository.AggregateRepository,
	registerRepo repository.CashRegisterRepository,
	clientRepo repository.ClientRepository,
	dispatcher *worker.Dispatcher,
	cache *SummaryCache,
	vatRatePct float64,
	strictSplits bool,
) SaleService {
	return &saleService{
		repo:         repo,
		ledger:       ledger,
		aggRepo:      aggRepo,
		registerRepo: registerRepo,
		clientRepo:   clientRepo,
		dispatcher:   dispatcher,
		cache:        cache,
		vatRate:      decimal.NewFromFloat(vatRatePct),
		strictSplits: strictSplits,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// lineChange is one entry of the reconciliation plan built before the
// transaction opens. delta is the net stock consumption: the full quantity
// for new lines, the difference against the previous quantity for existing
// ones. Negative deltas restore stock.
type lineChange struct {
	stock     *model.ProductStock
	lineID    *uuid.UUID // set when mutating an existing line
	quantity  int        // requested final quantity
	delta     int
	unitPrice decimal.Decimal
}

// amount is the signed contribution of this change to the monthly category
// aggregate: delta units at the captured unit price.
func (c lineChange) amount() decimal.Decimal {
	return c.unitPrice.Mul(decimal.NewFromInt(int64(c.delta)))
}

func describeStock(s *model.ProductStock) string {
	name := "unknown product"
	if s.Product != nil {
		name = s.Product.Name
		if s.Product.Brand != nil {
			name += " " + s.Product.Brand.Name
		}
	}
	if s.Presentation != nil && s.Presentation.Flavor != nil {
		name += " (" + *s.Presentation.Flavor + ")"
	}
	return name
}

// ── Create ───────────────────────────────────────────────────────────────────
// One ACID transaction per checkout:
//   1. Resolve the cash register and its branch (pre-flight, outside TX)
//   2. Resolve every stock unit and collect ALL shortages before failing
//   3. BEGIN TX: assign ticket number, create sale+lines+splits,
//      guarded stock decrements with movement records, aggregate upserts
//   4. COMMIT
//   5. (async) purchase notification and receipt email

func (s *saleService) Create(ctx context.Context, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	registerID, err := uuid.Parse(req.CashRegisterID)
	if err != nil {
		return nil, apierror.InvalidRequest("invalid cash_register_id: %s", req.CashRegisterID)
	}
	register, err := s.registerRepo.Resolve(ctx, registerID)
	if err != nil {
		return nil, apierror.NotFound("cash register %s not found", req.CashRegisterID)
	}
	if len(req.Lines) == 0 {
		return nil, apierror.InvalidRequest("a sale requires at least one line")
	}

	var userID *uuid.UUID
	if req.UserID != nil && *req.UserID != "" {
		uid, err := uuid.Parse(*req.UserID)
		if err != nil {
			return nil, apierror.InvalidRequest("invalid user_id: %s", *req.UserID)
		}
		userID = &uid
	}

	if err := s.validateSplits(req.Splits, req.AmountCancelled); err != nil {
		return nil, err
	}

	// Pre-flight: resolve every stock unit and report every shortage at once,
	// so the cashier fixes the whole cart in one retry.
	plan := make([]lineChange, 0, len(req.Lines))
	var shortages []string
	for _, line := range req.Lines {
		stockID, err := uuid.Parse(line.StockID)
		if err != nil {
			return nil, apierror.InvalidRequest("invalid stock_id: %s", line.StockID)
		}
		stock, ok, err := s.ledger.CheckAvailability(ctx, stockID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			shortages = append(shortages, fmt.Sprintf("%s: requested %d, available %d",
				describeStock(stock), line.Quantity, stock.AvailableQuantity))
		}
		plan = append(plan, lineChange{
			stock:     stock,
			quantity:  line.Quantity,
			delta:     line.Quantity,
			unitPrice: line.UnitPrice,
		})
	}
	if len(shortages) > 0 {
		return nil, apierror.InsufficientStock(shortages)
	}

	// Partial payment against a user account registers that user as a branch
	// client, so the debt shows up in the branch's client book.
	if userID != nil && req.AmountCancelled.LessThan(req.TotalAmount) {
		if _, err := s.clientRepo.Ensure(ctx, register.BranchID, *userID); err != nil {
			return nil, err
		}
	}

	splits, err := buildSplits(req.Splits)
	if err != nil {
		return nil, err
	}

	expiredDate, err := parseExpiredDate(req.ExpiredDate)
	if err != nil {
		return nil, err
	}

	status := deriveStatus(req.TotalAmount, req.AmountCancelled, req.Status)
	now := time.Now().UTC()

	var sale model.Sale
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ticketNum, err := s.repo.NextTicketNumberTx(tx, register.BranchID)
		if err != nil {
			return err
		}

		sale = model.Sale{
			ClientName:      req.ClientName,
			ClientDNI:       req.ClientDNI,
			UserID:          userID,
			CashRegisterID:  registerID,
			TicketNumber:    ticketNum,
			TotalAmount:     req.TotalAmount,
			AmountCancelled: req.AmountCancelled,
			Status:          status,
			ExpiredDate:     expiredDate,
			Splits:          splits,
		}
		for _, change := range plan {
			sale.Lines = append(sale.Lines, model.SaleLine{
				StockID:        change.stock.ID,
				ProductID:      change.stock.ProductID,
				PresentationID: change.stock.PresentationID,
				Quantity:       change.quantity,
				UnitPrice:      change.unitPrice,
			})
		}
		if err := s.repo.CreateTx(ctx, tx, &sale); err != nil {
			return err
		}

		for _, change := range plan {
			if err := s.applyChange(tx, change, sale.ID, "sale",
				fmt.Sprintf("Sale #%d", ticketNum)); err != nil {
				return err
			}
			if err := s.addAggregate(tx, model.ScopeBranch, register.BranchID, change, change.amount(), now); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, &sale, "created", req.ClientEmail)
	s.invalidateSummaries(ctx, register, userID)

	resp := saleToResponse(&sale)
	for i, change := range plan {
		resp.Lines[i].ProductName = productName(change.stock)
	}
	return resp, nil
}

// ── Update ───────────────────────────────────────────────────────────────────
// Replays the create semantics against an existing sale: lines carrying an ID
// are adjusted by the delta between requested and previous quantity, lines
// without one are consumed in full. Stock and aggregates move by exactly the
// delta, so updating 3 → 5 consumes 2 units, and 5 → 3 restores 2.

func (s *saleService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateSaleRequest) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("sale %s not found", id)
	}
	register, err := s.registerRepo.Resolve(ctx, sale.CashRegisterID)
	if err != nil {
		return nil, apierror.NotFound("cash register %s not found", sale.CashRegisterID)
	}
	if len(req.Lines) == 0 {
		return nil, apierror.InvalidRequest("a sale requires at least one line")
	}

	status := deriveStatus(req.TotalAmount, req.AmountCancelled, req.Status)

	// "unprocessed" marks an account-level correction: amounts change but the
	// recorded payment splits are left exactly as they were.
	replaceSplits := status != model.StatusUnprocessed
	if replaceSplits {
		if err := s.validateSplits(req.Splits, req.AmountCancelled); err != nil {
			return nil, err
		}
	}

	existing := make(map[uuid.UUID]*model.SaleLine, len(sale.Lines))
	for i := range sale.Lines {
		existing[sale.Lines[i].ID] = &sale.Lines[i]
	}

	plan := make([]lineChange, 0, len(req.Lines))
	var shortages []string
	for _, line := range req.Lines {
		stockID, err := uuid.Parse(line.StockID)
		if err != nil {
			return nil, apierror.InvalidRequest("invalid stock_id: %s", line.StockID)
		}

		change := lineChange{quantity: line.Quantity, delta: line.Quantity, unitPrice: line.UnitPrice}
		if line.ID != nil && *line.ID != "" {
			lineID, err := uuid.Parse(*line.ID)
			if err != nil {
				return nil, apierror.InvalidRequest("invalid line id: %s", *line.ID)
			}
			prev, ok := existing[lineID]
			if !ok {
				return nil, apierror.NotFound("sale line %s not found on sale %s", lineID, id)
			}
			prevQty := prev.Quantity
			if line.PrevQuantity != nil {
				prevQty = *line.PrevQuantity
			}
			change.lineID = &lineID
			change.delta = line.Quantity - prevQty
			// Existing lines keep the unit price captured at sale time.
			change.unitPrice = prev.UnitPrice
		}

		stock, ok, err := s.ledger.CheckAvailability(ctx, stockID, change.delta)
		if err != nil {
			return nil, err
		}
		if change.delta > 0 && !ok {
			shortages = append(shortages, fmt.Sprintf("%s: requested %d more, available %d",
				describeStock(stock), change.delta, stock.AvailableQuantity))
		}
		change.stock = stock
		plan = append(plan, change)
	}
	if len(shortages) > 0 {
		return nil, apierror.InsufficientStock(shortages)
	}

	now := time.Now().UTC()
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for _, change := range plan {
			if change.lineID != nil {
				if err := s.repo.UpdateLineQuantityTx(tx, *change.lineID, change.quantity); err != nil {
					return err
				}
			} else {
				if err := s.repo.CreateLineTx(tx, &model.SaleLine{
					SaleID:         sale.ID,
					StockID:        change.stock.ID,
					ProductID:      change.stock.ProductID,
					PresentationID: change.stock.PresentationID,
					Quantity:       change.quantity,
					UnitPrice:      change.unitPrice,
				}); err != nil {
					return err
				}
			}

			if err := s.applyChange(tx, change, sale.ID, "sale_update",
				fmt.Sprintf("Sale #%d updated", sale.TicketNumber)); err != nil {
				return err
			}
			if err := s.addAggregate(tx, model.ScopeBranch, register.BranchID, change, change.amount(), now); err != nil {
				return err
			}
		}

		sale.TotalAmount = req.TotalAmount
		sale.AmountCancelled = req.AmountCancelled
		sale.Status = status
		if err := s.repo.SaveTx(tx, sale); err != nil {
			return err
		}

		if replaceSplits {
			splits, err := buildSplits(req.Splits)
			if err != nil {
				return err
			}
			return s.repo.ReplaceSplitsTx(tx, sale.ID, splits)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, sale, "updated", nil)
	s.invalidateSummaries(ctx, register, sale.UserID)

	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return saleToResponse(sale), nil
	}
	return saleToResponse(fresh), nil
}

// ── RecordPayment ────────────────────────────────────────────────────────────
// Payment completion on a pending sale: splits are replaced and the cancelled
// amount updated. Lines, stock and aggregates are untouched.

func (s *saleService) RecordPayment(ctx context.Context, id uuid.UUID, req dto.PatchSalePaymentRequest) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("sale %s not found", id)
	}

	if err := s.validateSplits(req.Splits, req.AmountCancelled); err != nil {
		return nil, err
	}
	splits, err := buildSplits(req.Splits)
	if err != nil {
		return nil, err
	}

	sale.AmountCancelled = req.AmountCancelled
	if req.AmountCancelled.Equal(sale.TotalAmount) {
		sale.Status = model.StatusPaid
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.SaveTx(tx, sale); err != nil {
			return err
		}
		return s.repo.ReplaceSplitsTx(tx, sale.ID, splits)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, sale, "payment", nil)
	s.invalidateSummaries(ctx, sale.CashRegister, sale.UserID)

	return saleToResponse(sale), nil
}

// ── Approve ──────────────────────────────────────────────────────────────────
// The buyer acknowledges (or revokes acknowledgement of) a purchase registered
// to their account. Approval feeds the purchase into the buyer's personal
// monthly ledger, adding VAT on non-exempt products; revoking an approval
// feeds the same amounts back negated, so the ledger never double-counts.
// The seller-side branch ledger recorded the raw amounts at checkout and is
// not touched here.

func (s *saleService) Approve(ctx context.Context, id uuid.UUID, approve bool) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("sale %s not found", id)
	}
	if sale.UserID == nil {
		return nil, apierror.InvalidRequest("sale %s has no account to approve against", id)
	}
	if approve && sale.ClientApproved {
		return nil, apierror.Conflict("sale %s is already approved", id)
	}
	wasApproved := sale.ClientApproved

	now := time.Now().UTC()
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.SetApprovalTx(tx, sale.ID, approve); err != nil {
			return err
		}
		// Revoking a sale that was never approved flips nothing in the ledger.
		if approve == wasApproved {
			return nil
		}
		for _, line := range sale.Lines {
			amount := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			if line.Product == nil {
				continue
			}
			if !line.Product.VATExempt {
				amount = amount.Add(amount.Mul(s.vatRate).Div(decimal.NewFromInt(100)))
			}
			if !approve {
				amount = amount.Neg()
			}
			categoryName := ""
			if line.Product.Category != nil {
				categoryName = line.Product.Category.Name
			}
			if err := s.aggRepo.AddToMonthlyTotalTx(tx, model.ScopeUser, *sale.UserID,
				line.Product.CategoryID, categoryName, amount, now); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	sale.ClientApproved = approve
	s.invalidateSummaries(ctx, sale.CashRegister, sale.UserID)
	return saleToResponse(sale), nil
}

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("sale %s not found", id)
	}
	return saleToResponse(sale), nil
}

func (s *saleService) List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 10
	}
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		data = append(data, *saleToResponse(&sales[i]))
	}
	totalPages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	return &dto.SaleListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// applyChange moves stock by the change's delta and records the movement. A
// guard failure means another checkout consumed the stock between pre-flight
// and here: the transaction aborts and the race is reported as a shortage.
func (s *saleService) applyChange(tx *gorm.DB, change lineChange, saleID uuid.UUID, movementType, reason string) error {
	err := s.ledger.ApplyTx(tx, change.stock.ID, -change.delta, saleID, movementType, reason)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrGuardFailed) {
		return apierror.InsufficientStock([]string{fmt.Sprintf(
			"%s: stock changed concurrently, please retry", describeStock(change.stock))})
	}
	return err
}

func (s *saleService) addAggregate(tx *gorm.DB, scopeType string, scopeID uuid.UUID, change lineChange, amount decimal.Decimal, now time.Time) error {
	if change.stock.Product == nil || amount.IsZero() {
		return nil
	}
	categoryName := ""
	if change.stock.Product.Category != nil {
		categoryName = change.stock.Product.Category.Name
	}
	return s.aggRepo.AddToMonthlyTotalTx(tx, scopeType, scopeID,
		change.stock.Product.CategoryID, categoryName, amount, now)
}

func (s *saleService) validateSplits(splits []dto.PaymentSplitRequest, amountCancelled decimal.Decimal) error {
	if !s.strictSplits || len(splits) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, split := range splits {
		sum = sum.Add(split.Amount)
	}
	if !sum.Equal(amountCancelled) {
		return apierror.InvalidRequest("payment splits sum to %s but amount cancelled is %s",
			sum.StringFixed(2), amountCancelled.StringFixed(2))
	}
	return nil
}

func (s *saleService) notify(ctx context.Context, sale *model.Sale, kind string, clientEmail *string) {
	if s.dispatcher == nil {
		return
	}
	// Best-effort — the sale is committed, a lost notification never fails it.
	if sale.UserID != nil {
		_ = s.dispatcher.EnqueuePurchaseEvent(ctx, worker.PurchaseEventPayload{
			SaleID: sale.ID.String(),
			Kind:   kind,
		})
	}
	if clientEmail != nil && *clientEmail != "" {
		_ = s.dispatcher.EnqueueEmail(ctx, worker.EmailJobPayload{
			SaleID:  sale.ID.String(),
			ToEmail: *clientEmail,
		})
	}
}

func (s *saleService) invalidateSummaries(ctx context.Context, register *model.CashRegister, userID *uuid.UUID) {
	if s.cache == nil {
		return
	}
	businessID, branchID, user := "", "", ""
	if register != nil {
		branchID = register.BranchID.String()
		if register.Branch != nil {
			businessID = register.Branch.BusinessID.String()
		}
	}
	if userID != nil {
		user = userID.String()
	}
	s.cache.Invalidate(ctx, businessID, branchID, user)
}

func buildSplits(reqs []dto.PaymentSplitRequest) ([]model.PaymentSplit, error) {
	splits := make([]model.PaymentSplit, 0, len(reqs))
	for _, r := range reqs {
		methodID, err := uuid.Parse(r.PaymentMethodID)
		if err != nil {
			return nil, apierror.InvalidRequest("invalid payment_method_id: %s", r.PaymentMethodID)
		}
		splits = append(splits, model.PaymentSplit{
			PaymentMethodID: methodID,
			Amount:          r.Amount,
		})
	}
	return splits, nil
}

// deriveStatus enforces the payment invariant: a fully cancelled sale is
// always "paid", whatever the caller asked for. Partial payments keep the
// requested status, defaulting to "pending".
func deriveStatus(total, cancelled decimal.Decimal, requested string) string {
	if cancelled.Equal(total) {
		return model.StatusPaid
	}
	if requested == model.StatusPending || requested == model.StatusUnprocessed {
		return requested
	}
	return model.StatusPending
}

func parseExpiredDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t, nil
		}
	}
	return nil, apierror.InvalidRequest("invalid expired_date: %s", *raw)
}

func productName(stock *model.ProductStock) string {
	if stock != nil && stock.Product != nil {
		return stock.Product.Name
	}
	return ""
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	lines := make([]dto.SaleLineResponse, 0, len(s.Lines))
	for _, line := range s.Lines {
		name := ""
		if line.Product != nil {
			name = line.Product.Name
		}
		var flavor *string
		if line.Presentation != nil {
			flavor = line.Presentation.Flavor
		}
		lines = append(lines, dto.SaleLineResponse{
			ID:          line.ID.String(),
			StockID:     line.StockID.String(),
			ProductID:   line.ProductID.String(),
			ProductName: name,
			Flavor:      flavor,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			CreatedAt:   line.CreatedAt.Format(time.RFC3339),
		})
	}
	splits := make([]dto.PaymentSplitResponse, 0, len(s.Splits))
	for _, split := range s.Splits {
		splits = append(splits, dto.PaymentSplitResponse{
			PaymentMethodID: split.PaymentMethodID.String(),
			Amount:          split.Amount,
		})
	}
	var userID *string
	if s.UserID != nil {
		uid := s.UserID.String()
		userID = &uid
	}
	return &dto.SaleResponse{
		ID:              s.ID.String(),
		TicketNumber:    s.TicketNumber,
		ClientName:      s.ClientName,
		ClientDNI:       s.ClientDNI,
		UserID:          userID,
		CashRegisterID:  s.CashRegisterID.String(),
		TotalAmount:     s.TotalAmount,
		AmountCancelled: s.AmountCancelled,
		Status:          s.Status,
		ClientApproved:  s.ClientApproved,
		Lines:           lines,
		Splits:          splits,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}
