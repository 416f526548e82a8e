package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/model"
	"github.com/reinaldoagf/servimarket-back/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSummarySale(repo *stubSaleRepo, status string, total, cancelled float64, expired *time.Time) *model.Sale {
	sale := &model.Sale{
		ID:              uuid.New(),
		CashRegisterID:  uuid.New(),
		TotalAmount:     decimal.NewFromFloat(total),
		AmountCancelled: decimal.NewFromFloat(cancelled),
		Status:          status,
		ExpiredDate:     expired,
		CreatedAt:       time.Now(),
	}
	repo.sales[sale.ID] = sale
	return sale
}

func TestSummaryByFilters_PartitionsByEffectiveStatus(t *testing.T) {
	saleRepo := newStubSaleRepo()
	svc := service.NewSummaryService(saleRepo, &stubAggRepo{}, nil)

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)

	seedSummarySale(saleRepo, model.StatusPaid, 100, 100, nil)
	seedSummarySale(saleRepo, model.StatusPending, 80, 30, &future) // balance 50, still pending
	seedSummarySale(saleRepo, model.StatusPending, 60, 10, &past)   // balance 50, expired
	seedSummarySale(saleRepo, model.StatusPending, 40, 0, nil)      // balance 40, no expiry
	seedSummarySale(saleRepo, model.StatusUnprocessed, 35, 0, &past) // grand total only

	resp, err := svc.SummaryByFilters(context.Background(), dto.SummaryFilter{BranchID: uuid.NewString()})
	require.NoError(t, err)

	assert.Equal(t, 5, resp.TotalSales)
	assert.Equal(t, 1, resp.Completed)
	assert.Equal(t, 2, resp.Pending)
	assert.Equal(t, 1, resp.Expired)
	assert.Equal(t, "315", resp.TotalAmount.String())
	assert.Equal(t, "100", resp.CompletedAmount.String())
	assert.Equal(t, "90", resp.PendingAmount.String())
	assert.Equal(t, "50", resp.ExpiredAmount.String())
}

func TestSummaryByFilters_OverpaymentClampsBalance(t *testing.T) {
	saleRepo := newStubSaleRepo()
	svc := service.NewSummaryService(saleRepo, &stubAggRepo{}, nil)

	// Cancelled above total on a still-pending record: the outstanding
	// balance never goes negative.
	seedSummarySale(saleRepo, model.StatusPending, 20, 25, nil)

	resp, err := svc.SummaryByFilters(context.Background(), dto.SummaryFilter{UserID: uuid.NewString()})
	require.NoError(t, err)
	assert.Equal(t, "0", resp.PendingAmount.String())
}

func TestSummaryByFilters_RequiresAScope(t *testing.T) {
	svc := service.NewSummaryService(newStubSaleRepo(), &stubAggRepo{}, nil)

	_, err := svc.SummaryByFilters(context.Background(), dto.SummaryFilter{})
	require.Error(t, err)
	assert.Equal(t, 400, apierror.StatusOf(err))
}

func TestCategoryTotals_AccumulatesPerCategoryMonth(t *testing.T) {
	aggRepo := &stubAggRepo{}
	svc := service.NewSummaryService(newStubSaleRepo(), aggRepo, nil)

	branchID := uuid.New()
	catID := uuid.New()
	now := time.Now().UTC()

	// Two increments in the same month collapse into one running total.
	require.NoError(t, aggRepo.AddToMonthlyTotalTx(nil, model.ScopeBranch, branchID, catID, "Bebidas", decimal.NewFromInt(30), now))
	require.NoError(t, aggRepo.AddToMonthlyTotalTx(nil, model.ScopeBranch, branchID, catID, "Bebidas", decimal.NewFromInt(20), now))

	rows, err := svc.CategoryTotals(context.Background(), model.ScopeBranch, branchID, model.MonthOf(now))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "50", rows[0].Total.String())
	assert.Equal(t, "Bebidas", rows[0].CategoryName)
}

func TestCategoryTotals_RejectsUnknownScope(t *testing.T) {
	svc := service.NewSummaryService(newStubSaleRepo(), &stubAggRepo{}, nil)

	_, err := svc.CategoryTotals(context.Background(), "warehouse", uuid.New(), time.Now())
	require.Error(t, err)
	assert.Equal(t, 400, apierror.StatusOf(err))
}

func TestMyLastPurchase(t *testing.T) {
	saleRepo := newStubSaleRepo()
	svc := service.NewSummaryService(saleRepo, &stubAggRepo{}, nil)
	userID := uuid.New()

	older := seedSummarySale(saleRepo, model.StatusPaid, 10, 10, nil)
	older.UserID = &userID
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := seedSummarySale(saleRepo, model.StatusPaid, 20, 20, nil)
	newer.UserID = &userID

	resp, err := svc.MyLastPurchase(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID.String(), resp.ID)
}

func TestMyLastPurchase_NoneFound(t *testing.T) {
	svc := service.NewSummaryService(newStubSaleRepo(), &stubAggRepo{}, nil)

	_, err := svc.MyLastPurchase(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, 404, apierror.StatusOf(err))
}

func TestMyLastSale_RequiresScope(t *testing.T) {
	svc := service.NewSummaryService(newStubSaleRepo(), &stubAggRepo{}, nil)

	_, err := svc.MyLastSale(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, 400, apierror.StatusOf(err))
}
