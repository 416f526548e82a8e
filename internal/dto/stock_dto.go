package dto

import "github.com/shopspring/decimal"

type CreateStockRequest struct {
	ProductID         string          `json:"product_id"          validate:"required,uuid"`
	PresentationID    *string         `json:"presentation_id"     validate:"omitempty,uuid"`
	BranchID          string          `json:"branch_id"           validate:"required,uuid"`
	AvailableQuantity int             `json:"available_quantity"  validate:"min=0"`
	SalePrice         decimal.Decimal `json:"sale_price"          validate:"gt=0"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"      validate:"gte=0"`
}

type UpdateStockRequest struct {
	AvailableQuantity *int             `json:"available_quantity" validate:"omitempty,min=0"`
	SalePrice         *decimal.Decimal `json:"sale_price"`
	PurchasePrice     *decimal.Decimal `json:"purchase_price"`
}

// StockFilter is bound from the query string of GET /v1/stock.
type StockFilter struct {
	BranchID  string `form:"branch_id" validate:"omitempty,uuid"`
	Search    string `form:"search"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Page      int    `form:"page,default=1"       validate:"min=1"`
	PageSize  int    `form:"page_size,default=10" validate:"min=1,max=200"`
}

type StockResponse struct {
	ID                 string          `json:"id"`
	ProductID          string          `json:"product_id"`
	ProductName        string          `json:"product_name"`
	BrandName          *string         `json:"brand_name,omitempty"`
	CategoryName       string          `json:"category_name"`
	PresentationID     *string         `json:"presentation_id,omitempty"`
	Flavor             *string         `json:"flavor,omitempty"`
	BranchID           string          `json:"branch_id"`
	AvailableQuantity  int             `json:"available_quantity"`
	SalePrice          decimal.Decimal `json:"sale_price"`
	PurchasePrice      decimal.Decimal `json:"purchase_price"`
	ProfitPercentage   decimal.Decimal `json:"profit_percentage"`
	ReturnOnInvestment decimal.Decimal `json:"return_on_investment"`
	CreatedAt          string          `json:"created_at"`
}

type StockListResponse struct {
	Data       []StockResponse `json:"data"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}
