package service

import (
	"context"
	"errors"
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/model"
	"github.com/reinaldoagf/servimarket-back/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SummaryService serves the read paths over committed sales: status summaries
// per scope, the monthly category ledgers, and the "my last purchase / sale"
// lookups.
type SummaryService interface {
	SummaryByFilters(ctx context.Context, filter dto.SummaryFilter) (*dto.SaleSummaryResponse, error)
	CategoryTotals(ctx context.Context, scopeType string, scopeID uuid.UUID, month time.Time) ([]model.CategoryAggregate, error)
	MyLastPurchase(ctx context.Context, userID uuid.UUID) (*dto.SaleResponse, error)
	MyLastSale(ctx context.Context, businessID, branchID string) (*dto.SaleResponse, error)
}

type summaryService struct {
	repo    repository.SaleRepository
	aggRepo repository.AggregateRepository
	cache   *SummaryCache
}

func NewSummaryService(repo repository.SaleRepository, aggRepo repository.AggregateRepository, cache *SummaryCache) SummaryService {
	return &summaryService{repo: repo, aggRepo: aggRepo, cache: cache}
}

// SummaryByFilters groups the scope's sales by effective status. A pending
// sale whose expiry date has passed counts as expired; outstanding balances
// (total minus cancelled) make up the pending and expired amounts. Sales in
// other statuses (unprocessed) count toward the grand total only.
func (s *summaryService) SummaryByFilters(ctx context.Context, filter dto.SummaryFilter) (*dto.SaleSummaryResponse, error) {
	if filter.BusinessID == "" && filter.BranchID == "" && filter.UserID == "" {
		return nil, apierror.InvalidRequest("at least one of business_id, branch_id or user_id is required")
	}

	if cached, ok := s.cache.Get(ctx, filter); ok {
		return cached, nil
	}

	sales, err := s.repo.FindForSummary(ctx, filter.BusinessID, filter.BranchID, filter.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	resp := &dto.SaleSummaryResponse{
		TotalAmount:     decimal.Zero,
		CompletedAmount: decimal.Zero,
		PendingAmount:   decimal.Zero,
		ExpiredAmount:   decimal.Zero,
	}
	for _, sale := range sales {
		resp.TotalSales++
		resp.TotalAmount = resp.TotalAmount.Add(sale.TotalAmount)

		switch sale.Status {
		case model.StatusPaid:
			resp.Completed++
			resp.CompletedAmount = resp.CompletedAmount.Add(sale.TotalAmount)
		case model.StatusPending:
			balance := sale.TotalAmount.Sub(sale.AmountCancelled)
			if balance.IsNegative() {
				balance = decimal.Zero
			}
			if sale.ExpiredDate != nil && sale.ExpiredDate.Before(now) {
				resp.Expired++
				resp.ExpiredAmount = resp.ExpiredAmount.Add(balance)
			} else {
				resp.Pending++
				resp.PendingAmount = resp.PendingAmount.Add(balance)
			}
		}
	}

	s.cache.Set(ctx, filter, resp)
	return resp, nil
}

func (s *summaryService) CategoryTotals(ctx context.Context, scopeType string, scopeID uuid.UUID, month time.Time) ([]model.CategoryAggregate, error) {
	if scopeType != model.ScopeBranch && scopeType != model.ScopeUser {
		return nil, apierror.InvalidRequest("unknown scope type: %s", scopeType)
	}
	return s.aggRepo.FindByScopeMonth(ctx, scopeType, scopeID, month)
}

func (s *summaryService) MyLastPurchase(ctx context.Context, userID uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.LastByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("no purchases found for user %s", userID)
		}
		return nil, err
	}
	return saleToResponse(sale), nil
}

func (s *summaryService) MyLastSale(ctx context.Context, businessID, branchID string) (*dto.SaleResponse, error) {
	if businessID == "" && branchID == "" {
		return nil, apierror.InvalidRequest("business_id or branch_id is required")
	}
	sale, err := s.repo.LastByScope(ctx, businessID, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("no sales found for the given scope")
		}
		return nil, err
	}
	return saleToResponse(sale), nil
}
