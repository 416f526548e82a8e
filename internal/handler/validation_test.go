package handler

import (
	"testing"

	"github.com/reinaldoagf/servimarket-back/internal/dto"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateSale() dto.CreateSaleRequest {
	return dto.CreateSaleRequest{
		CashRegisterID:  uuid.NewString(),
		TotalAmount:     decimal.NewFromInt(10),
		AmountCancelled: decimal.NewFromInt(10),
		Lines: []dto.SaleLineRequest{
			{StockID: uuid.NewString(), Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		},
		Splits: []dto.PaymentSplitRequest{
			{PaymentMethodID: uuid.NewString(), Amount: decimal.NewFromInt(10)},
		},
	}
}

// A fully discounted sale totals zero; the money tags must not treat the zero
// value as missing.
func TestValidate_ZeroTotalSaleIsAccepted(t *testing.T) {
	req := validCreateSale()
	req.TotalAmount = decimal.Zero
	req.AmountCancelled = decimal.Zero
	req.Lines[0].UnitPrice = decimal.Zero
	req.Splits = nil

	assert.NoError(t, validate.Struct(req))
}

func TestValidate_NegativeTotalIsRejected(t *testing.T) {
	req := validCreateSale()
	req.TotalAmount = decimal.NewFromInt(-5)

	err := validate.Struct(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TotalAmount")
}

func TestValidate_ZeroSplitAmountIsRejected(t *testing.T) {
	req := validCreateSale()
	req.Splits[0].Amount = decimal.Zero

	err := validate.Struct(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Amount")
}
