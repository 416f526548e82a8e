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

// StockService is the admin surface over stock units: registration, price and
// quantity corrections, listing. Sale-time mutations never go through here —
// they belong to the ledger inside the sale transaction.
type StockService interface {
	Create(ctx context.Context, req dto.CreateStockRequest) (*dto.StockResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.StockResponse, error)
	List(ctx context.Context, filter dto.StockFilter) (*dto.StockListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateStockRequest) (*dto.StockResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBranchProduct(ctx context.Context, branchID, productID uuid.UUID) (int64, error)
}

type stockService struct {
	repo   repository.StockRepository
	ledger StockLedger
}

func NewStockService(repo repository.StockRepository, ledger StockLedger) StockService {
	return &stockService{repo: repo, ledger: ledger}
}

func (s *stockService) Create(ctx context.Context, req dto.CreateStockRequest) (*dto.StockResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, apierror.InvalidRequest("invalid product_id: %s", req.ProductID)
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return nil, apierror.InvalidRequest("invalid branch_id: %s", req.BranchID)
	}
	var presentationID *uuid.UUID
	if req.PresentationID != nil && *req.PresentationID != "" {
		pid, err := uuid.Parse(*req.PresentationID)
		if err != nil {
			return nil, apierror.InvalidRequest("invalid presentation_id: %s", *req.PresentationID)
		}
		presentationID = &pid
	}

	// One stock row per (product, presentation, branch).
	if _, err := s.repo.FindExisting(ctx, productID, presentationID, branchID); err == nil {
		return nil, apierror.Conflict("stock unit already exists for this product and branch")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profitPct, roi := profitMetrics(req.SalePrice, req.PurchasePrice)
	stock := &model.ProductStock{
		ProductID:          productID,
		PresentationID:     presentationID,
		BranchID:           branchID,
		AvailableQuantity:  req.AvailableQuantity,
		SalePrice:          req.SalePrice,
		PurchasePrice:      req.PurchasePrice,
		ProfitPercentage:   profitPct,
		ReturnOnInvestment: roi,
	}
	if err := s.repo.Create(ctx, stock); err != nil {
		return nil, err
	}

	full, err := s.repo.FindByID(ctx, stock.ID)
	if err != nil {
		return stockToResponse(stock), nil
	}
	return stockToResponse(full), nil
}

func (s *stockService) Get(ctx context.Context, id uuid.UUID) (*dto.StockResponse, error) {
	stock, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("stock unit %s not found", id)
	}
	return stockToResponse(stock), nil
}

func (s *stockService) List(ctx context.Context, filter dto.StockFilter) (*dto.StockListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 10
	}
	stocks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.StockResponse, 0, len(stocks))
	for i := range stocks {
		data = append(data, *stockToResponse(&stocks[i]))
	}
	totalPages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	return &dto.StockListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *stockService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateStockRequest) (*dto.StockResponse, error) {
	stock, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("stock unit %s not found", id)
	}

	if req.SalePrice != nil {
		stock.SalePrice = *req.SalePrice
	}
	if req.PurchasePrice != nil {
		stock.PurchasePrice = *req.PurchasePrice
	}
	stock.ProfitPercentage, stock.ReturnOnInvestment = profitMetrics(stock.SalePrice, stock.PurchasePrice)

	// Quantity corrections go through the ledger as manual adjustments, so
	// every change leaves a movement record.
	delta := 0
	if req.AvailableQuantity != nil {
		delta = *req.AvailableQuantity - stock.AvailableQuantity
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if delta != 0 {
			if err := s.ledger.ApplyTx(tx, stock.ID, delta, uuid.Nil, "manual_adjustment",
				"stock correction"); err != nil {
				if errors.Is(err, repository.ErrGuardFailed) {
					return apierror.Conflict("stock changed concurrently, please retry")
				}
				return err
			}
			stock.AvailableQuantity += delta
		}
		if tx == nil {
			return nil
		}
		return tx.Model(&model.ProductStock{}).Where("id = ?", stock.ID).
			Updates(map[string]interface{}{
				"sale_price":           stock.SalePrice,
				"purchase_price":       stock.PurchasePrice,
				"profit_percentage":    stock.ProfitPercentage,
				"return_on_investment": stock.ReturnOnInvestment,
			}).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return stockToResponse(stock), nil
}

func (s *stockService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return apierror.NotFound("stock unit %s not found", id)
	}
	return s.repo.Delete(ctx, id)
}

func (s *stockService) DeleteByBranchProduct(ctx context.Context, branchID, productID uuid.UUID) (int64, error) {
	deleted, err := s.repo.DeleteByBranchProduct(ctx, branchID, productID)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, apierror.NotFound("no stock for product %s at branch %s", productID, branchID)
	}
	return deleted, nil
}

// profitMetrics derives margin over sale price and return over purchase price,
// both as percentages. Zero denominators yield zero metrics.
func profitMetrics(salePrice, purchasePrice decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	profit := salePrice.Sub(purchasePrice)

	profitPct := decimal.Zero
	if !salePrice.IsZero() {
		profitPct = profit.Div(salePrice).Mul(hundred).Round(2)
	}
	roi := decimal.Zero
	if !purchasePrice.IsZero() {
		roi = profit.Div(purchasePrice).Mul(hundred).Round(2)
	}
	return profitPct, roi
}

func stockToResponse(s *model.ProductStock) *dto.StockResponse {
	resp := &dto.StockResponse{
		ID:                 s.ID.String(),
		ProductID:          s.ProductID.String(),
		BranchID:           s.BranchID.String(),
		AvailableQuantity:  s.AvailableQuantity,
		SalePrice:          s.SalePrice,
		PurchasePrice:      s.PurchasePrice,
		ProfitPercentage:   s.ProfitPercentage,
		ReturnOnInvestment: s.ReturnOnInvestment,
		CreatedAt:          s.CreatedAt.Format(time.RFC3339),
	}
	if s.PresentationID != nil {
		pid := s.PresentationID.String()
		resp.PresentationID = &pid
	}
	if s.Product != nil {
		resp.ProductName = s.Product.Name
		if s.Product.Brand != nil {
			resp.BrandName = &s.Product.Brand.Name
		}
		if s.Product.Category != nil {
			resp.CategoryName = s.Product.Category.Name
		}
	}
	if s.Presentation != nil {
		resp.Flavor = s.Presentation.Flavor
	}
	return resp
}
