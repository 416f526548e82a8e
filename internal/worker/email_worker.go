package worker

// email_worker.go
// Processes email jobs from QueueEmail: renders the PDF receipt for a
// committed sale and mails it to the client. SMTP calls go through the
// circuit breaker so a downed relay fast-fails instead of stalling the pool.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reinaldoagf/servimarket-back/internal/infra"
	"github.com/reinaldoagf/servimarket-back/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	SaleID  string `json:"sale_id"`
	ToEmail string `json:"to_email"`
}

// EmailWorker mails PDF receipts for committed sales.
type EmailWorker struct {
	mailer         *infra.Mailer
	saleRepo       repository.SaleRepository
	cb             *infra.CircuitBreaker
	rdb            *redis.Client
	pdfStoragePath string
}

func NewEmailWorker(mailer *infra.Mailer, saleRepo repository.SaleRepository, cb *infra.CircuitBreaker, rdb *redis.Client, pdfStoragePath string) *EmailWorker {
	return &EmailWorker{
		mailer:         mailer,
		saleRepo:       saleRepo,
		cb:             cb,
		rdb:            rdb,
		pdfStoragePath: pdfStoragePath,
	}
}

func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email — skipping")
		return
	}

	saleID, err := uuid.Parse(payload.SaleID)
	if err != nil {
		log.Error().Str("sale_id", payload.SaleID).Msg("email_worker: invalid sale_id")
		return
	}

	sale, err := w.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		log.Error().Err(err).Str("sale_id", payload.SaleID).Msg("email_worker: sale not found")
		return
	}

	businessName := "ServiMarket"
	if sale.CashRegister != nil && sale.CashRegister.Branch != nil && sale.CashRegister.Branch.Business != nil {
		businessName = sale.CashRegister.Branch.Business.Name
	}

	pdfPath, err := infra.GenerateReceiptPDF(sale, businessName, w.pdfStoragePath)
	if err != nil {
		log.Error().Err(err).Str("sale_id", payload.SaleID).Msg("email_worker: PDF generation failed")
		return
	}

	subject := fmt.Sprintf("Your receipt — ticket #%d", sale.TicketNumber)
	body := fmt.Sprintf("Thank you for your purchase at %s.\nTicket #%d, total %s.\nYour receipt is attached.",
		businessName, sale.TicketNumber, sale.TotalAmount.StringFixed(2))

	err = withRetry(ctx, 3, func(attempt int) error {
		sendErr := w.cb.Execute(func() error {
			return w.mailer.SendReceipt(payload.ToEmail, subject, body, pdfPath)
		})
		if sendErr != nil {
			log.Warn().Err(sendErr).Int("attempt", attempt+1).
				Str("to", payload.ToEmail).
				Msg("email_worker: send failed, retrying")
		}
		return sendErr
	})
	if err != nil {
		SendToDLQ(ctx, w.rdb, QueueEmail, "email", raw, err.Error(), 3)
		return
	}

	log.Info().Str("to", payload.ToEmail).Str("sale_id", payload.SaleID).Msg("email_worker: receipt sent")
}
