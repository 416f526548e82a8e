package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SaleLineRequest is one requested line item. On update, ID identifies an
// existing line and PrevQuantity carries the quantity already applied to
// stock, so the coordinator adjusts by the delta instead of re-consuming the
// full quantity.
type SaleLineRequest struct {
	ID           *string         `json:"id"             validate:"omitempty,uuid"`
	StockID      string          `json:"stock_id"       validate:"required,uuid"`
	Quantity     int             `json:"quantity"       validate:"required,min=1"`
	UnitPrice    decimal.Decimal `json:"unit_price"     validate:"gte=0"`
	PrevQuantity *int            `json:"prev_quantity"  validate:"omitempty,min=0"`
}

type PaymentSplitRequest struct {
	PaymentMethodID string          `json:"payment_method_id" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"            validate:"gt=0"`
}

type CreateSaleRequest struct {
	CashRegisterID  string          `json:"cash_register_id" validate:"required,uuid"`
	ClientName      *string         `json:"client_name"`
	ClientDNI       *string         `json:"client_dni"`
	UserID          *string         `json:"user_id"          validate:"omitempty,uuid"`
	// Money fields use gte=0 rather than required: required rejects the zero
	// value, and a fully discounted sale legitimately totals zero.
	TotalAmount     decimal.Decimal `json:"total_amount"     validate:"gte=0"`
	AmountCancelled decimal.Decimal `json:"amount_cancelled" validate:"gte=0"`
	// Status is honored only when the payment is partial; a fully cancelled
	// sale is always forced to "paid".
	Status      string                `json:"status"       validate:"omitempty,oneof=paid pending unprocessed"`
	ExpiredDate *string               `json:"expired_date" validate:"omitempty"`
	Lines       []SaleLineRequest     `json:"lines"        validate:"required,min=1,dive"`
	Splits      []PaymentSplitRequest `json:"splits"       validate:"omitempty,dive"`
	// ClientEmail: optional — when present, the email worker mails the PDF receipt.
	ClientEmail *string `json:"client_email" validate:"omitempty,email"`
}

// UpdateSaleRequest mirrors create; lines with an ID are reconciled against
// their previous quantity, lines without one are treated as new.
type UpdateSaleRequest struct {
	TotalAmount     decimal.Decimal       `json:"total_amount"     validate:"gte=0"`
	AmountCancelled decimal.Decimal       `json:"amount_cancelled" validate:"gte=0"`
	Status          string                `json:"status"           validate:"omitempty,oneof=paid pending unprocessed"`
	Lines           []SaleLineRequest     `json:"lines"            validate:"required,min=1,dive"`
	Splits          []PaymentSplitRequest `json:"splits"           validate:"omitempty,dive"`
}

// PatchSalePaymentRequest records a payment completion on a pending sale:
// splits are replaced and amounts updated without touching lines or stock.
type PatchSalePaymentRequest struct {
	AmountCancelled decimal.Decimal       `json:"amount_cancelled" validate:"gt=0"`
	Splits          []PaymentSplitRequest `json:"splits"           validate:"required,min=1,dive"`
}

type ApproveSaleRequest struct {
	Approve bool `json:"approve"`
}

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	UserID    string `form:"user_id"    validate:"omitempty,uuid"`
	BranchID  string `form:"branch_id"  validate:"omitempty,uuid"`
	Search    string `form:"search"`
	Status    string `form:"status"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Page      int    `form:"page,default=1"       validate:"min=1"`
	PageSize  int    `form:"page_size,default=10" validate:"min=1,max=200"`
}

// SummaryFilter requires at least one identifier; enforced by the service.
type SummaryFilter struct {
	BusinessID string `form:"business_id" validate:"omitempty,uuid"`
	BranchID   string `form:"branch_id"   validate:"omitempty,uuid"`
	UserID     string `form:"user_id"     validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleLineResponse struct {
	ID           string          `json:"id"`
	StockID      string          `json:"stock_id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Flavor       *string         `json:"flavor,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
	CreatedAt    string          `json:"created_at"`
}

type PaymentSplitResponse struct {
	PaymentMethodID string          `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
}

type SaleResponse struct {
	ID              string                 `json:"id"`
	TicketNumber    int64                  `json:"ticket_number"`
	ClientName      *string                `json:"client_name,omitempty"`
	ClientDNI       *string                `json:"client_dni,omitempty"`
	UserID          *string                `json:"user_id,omitempty"`
	CashRegisterID  string                 `json:"cash_register_id"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	AmountCancelled decimal.Decimal        `json:"amount_cancelled"`
	Status          string                 `json:"status"`
	ClientApproved  bool                   `json:"client_approved"`
	Lines           []SaleLineResponse     `json:"lines"`
	Splits          []PaymentSplitResponse `json:"splits"`
	CreatedAt       string                 `json:"created_at"`
}

type SaleListResponse struct {
	Data       []SaleResponse `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// SaleSummaryResponse groups counts and amounts by status; pending sales past
// their expiry date are reported as expired.
type SaleSummaryResponse struct {
	TotalSales      int             `json:"total_sales"`
	Completed       int             `json:"completed"`
	Pending         int             `json:"pending"`
	Expired         int             `json:"expired"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CompletedAmount decimal.Decimal `json:"completed_amount"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
	ExpiredAmount   decimal.Decimal `json:"expired_amount"`
}
