package worker

// purchase_worker.go
// Processes purchase-event jobs from QueuePurchaseEvent: after a sale with a
// registered buyer commits, a pending notification is written for that user.
// The notification is best-effort and must never affect the committed sale.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reinaldoagf/servimarket-back/internal/model"
	"github.com/reinaldoagf/servimarket-back/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PurchaseEventPayload is the job envelope sent to QueuePurchaseEvent.
type PurchaseEventPayload struct {
	SaleID string `json:"sale_id"`
	// Kind: "created" | "updated" | "payment"
	Kind string `json:"kind"`
}

// PurchaseWorker turns committed sale events into pending notifications for
// the buyer.
type PurchaseWorker struct {
	saleRepo    repository.SaleRepository
	pendingRepo repository.PendingRepository
	rdb         *redis.Client
}

func NewPurchaseWorker(saleRepo repository.SaleRepository, pendingRepo repository.PendingRepository, rdb *redis.Client) *PurchaseWorker {
	return &PurchaseWorker{saleRepo: saleRepo, pendingRepo: pendingRepo, rdb: rdb}
}

func (w *PurchaseWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload PurchaseEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("purchase_worker: invalid payload")
		return
	}

	saleID, err := uuid.Parse(payload.SaleID)
	if err != nil {
		log.Error().Str("sale_id", payload.SaleID).Msg("purchase_worker: invalid sale_id")
		return
	}

	sale, err := w.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		log.Error().Err(err).Str("sale_id", payload.SaleID).Msg("purchase_worker: sale not found")
		return
	}
	if sale.UserID == nil {
		// Walk-in client — nobody to notify.
		return
	}

	var title, message string
	switch payload.Kind {
	case "updated":
		title = "Purchase updated"
		message = fmt.Sprintf("Your purchase (ticket #%d) was updated. New total: %s, status: %s.",
			sale.TicketNumber, sale.TotalAmount.StringFixed(2), sale.Status)
	case "payment":
		title = "Payment recorded"
		message = fmt.Sprintf("A payment on your purchase (ticket #%d) was recorded. Amount cancelled: %s of %s.",
			sale.TicketNumber, sale.AmountCancelled.StringFixed(2), sale.TotalAmount.StringFixed(2))
	default:
		title = "Purchase registered"
		message = fmt.Sprintf("A purchase (ticket #%d) for %s was registered to your account. Please review and approve it.",
			sale.TicketNumber, sale.TotalAmount.StringFixed(2))
	}

	pending := &model.Pending{
		Title:        title,
		Message:      message,
		LinkedUserID: *sale.UserID,
		EventDate:    sale.ExpiredDate,
	}
	if sale.CashRegister != nil {
		branchID := sale.CashRegister.BranchID
		pending.BranchID = &branchID
		if sale.CashRegister.Branch != nil {
			businessID := sale.CashRegister.Branch.BusinessID
			pending.BusinessID = &businessID
		}
	}

	err = withRetry(ctx, 3, func(attempt int) error {
		if err := w.pendingRepo.Create(ctx, pending); err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).
				Str("sale_id", payload.SaleID).
				Msg("purchase_worker: create pending failed, retrying")
			return err
		}
		return nil
	})
	if err != nil {
		SendToDLQ(ctx, w.rdb, QueuePurchaseEvent, "purchase_event", raw, err.Error(), 3)
		return
	}

	log.Info().
		Str("sale_id", payload.SaleID).
		Str("user_id", sale.UserID.String()).
		Str("kind", payload.Kind).
		Msg("purchase_worker: notification created")
}
