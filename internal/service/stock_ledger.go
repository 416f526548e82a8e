package service

import (
	"context"
	"errors"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/model"
	"github.com/reinaldoagf/servimarket-back/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockLedger owns the available-quantity counters. Reads are best-effort
// pre-flight checks; writes happen only inside the sale transaction through
// ApplyTx, which records an immutable stock movement per mutation.
type StockLedger interface {
	// CheckAvailability loads the stock unit and reports whether qty units
	// can be taken. Never mutates state.
	CheckAvailability(ctx context.Context, stockID uuid.UUID, qty int) (*model.ProductStock, bool, error)
	// ApplyTx applies a signed quantity delta inside the sale transaction:
	// negative deltas are guarded decrements (they fail rather than drive the
	// counter negative), positive deltas restore stock. A zero delta is a no-op.
	ApplyTx(tx *gorm.DB, stockID uuid.UUID, delta int, saleID uuid.UUID, movementType, reason string) error
}

type stockLedger struct {
	repo repository.StockRepository
}

func NewStockLedger(repo repository.StockRepository) StockLedger {
	return &stockLedger{repo: repo}
}

func (l *stockLedger) CheckAvailability(ctx context.Context, stockID uuid.UUID, qty int) (*model.ProductStock, bool, error) {
	stock, err := l.repo.FindByID(ctx, stockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apierror.NotFound("stock unit %s not found", stockID)
		}
		return nil, false, err
	}
	return stock, stock.AvailableQuantity >= qty, nil
}

func (l *stockLedger) ApplyTx(tx *gorm.DB, stockID uuid.UUID, delta int, saleID uuid.UUID, movementType, reason string) error {
	if delta == 0 {
		return nil
	}

	before, err := l.repo.FindByIDTx(tx, stockID)
	if err != nil {
		return err
	}

	if delta < 0 {
		err = l.repo.DecrementTx(tx, stockID, -delta)
	} else {
		err = l.repo.IncrementTx(tx, stockID, delta)
	}
	if err != nil {
		return err
	}

	mov := &model.StockMovement{
		StockID:        stockID,
		Type:           movementType,
		Quantity:       delta,
		QuantityBefore: before.AvailableQuantity,
		QuantityAfter:  before.AvailableQuantity + delta,
		Reason:         reason,
	}
	if saleID != uuid.Nil {
		saleRef := saleID
		mov.SaleID = &saleRef
	}
	return l.repo.CreateMovementTx(tx, mov)
}
