package repository

import (
	"context"

	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	SaveTx(tx *gorm.DB, s *model.Sale) error
	CreateLineTx(tx *gorm.DB, l *model.SaleLine) error
	UpdateLineQuantityTx(tx *gorm.DB, lineID uuid.UUID, qty int) error
	// ReplaceSplitsTx deletes every split for the sale and inserts the new
	// set. The set is never diffed incrementally.
	ReplaceSplitsTx(tx *gorm.DB, saleID uuid.UUID, splits []model.PaymentSplit) error
	// NextTicketNumberTx issues the next per-branch ticket number. The upsert
	// locks the branch counter row for the rest of the transaction, so two
	// concurrent sales in one branch cannot observe the same number.
	NextTicketNumberTx(tx *gorm.DB, branchID uuid.UUID) (int64, error)
	SetApprovalTx(tx *gorm.DB, id uuid.UUID, approved bool) error
	List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error)
	FindForSummary(ctx context.Context, businessID, branchID, userID string) ([]model.Sale, error)
	LastByUser(ctx context.Context, userID uuid.UUID) (*model.Sale, error)
	LastByScope(ctx context.Context, businessID, branchID string) (*model.Sale, error)
	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(ctx context.Context, tx *gorm.DB, s *model.Sale) error {
	return tx.WithContext(ctx).Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Lines.Product.Brand").
		Preload("Lines.Product.Category").
		Preload("Lines.Presentation").
		Preload("Splits.PaymentMethod").
		Preload("User").
		Preload("CashRegister.Branch.Business").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	if err := tx.Preload("Lines").Preload("Splits.PaymentMethod").First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) SaveTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Omit("Lines", "Splits").Save(s).Error
}

func (r *saleRepo) CreateLineTx(tx *gorm.DB, l *model.SaleLine) error {
	return tx.Create(l).Error
}

func (r *saleRepo) UpdateLineQuantityTx(tx *gorm.DB, lineID uuid.UUID, qty int) error {
	return tx.Model(&model.SaleLine{}).Where("id = ?", lineID).Update("quantity", qty).Error
}

func (r *saleRepo) ReplaceSplitsTx(tx *gorm.DB, saleID uuid.UUID, splits []model.PaymentSplit) error {
	if err := tx.Where("sale_id = ?", saleID).Delete(&model.PaymentSplit{}).Error; err != nil {
		return err
	}
	for i := range splits {
		splits[i].SaleID = saleID
		if err := tx.Create(&splits[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *saleRepo) NextTicketNumberTx(tx *gorm.DB, branchID uuid.UUID) (int64, error) {
	var num int64
	err := tx.Raw(`
		INSERT INTO branch_ticket_counters (branch_id, last_number, updated_at)
		VALUES (?, 1, now())
		ON CONFLICT (branch_id)
		DO UPDATE SET last_number = branch_ticket_counters.last_number + 1, updated_at = now()
		RETURNING last_number`, branchID).Scan(&num).Error
	return num, err
}

func (r *saleRepo) SetApprovalTx(tx *gorm.DB, id uuid.UUID, approved bool) error {
	return tx.Model(&model.Sale{}).Where("id = ?", id).Update("client_approved", approved).Error
}

func (r *saleRepo) List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Sale{})

	if filter.UserID != "" {
		q = q.Where("sales.user_id = ?", filter.UserID)
	}
	if filter.BranchID != "" {
		q = q.Joins("JOIN cash_registers ON cash_registers.id = sales.cash_register_id").
			Where("cash_registers.branch_id = ?", filter.BranchID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Joins("LEFT JOIN users ON users.id = sales.user_id").
			Where("users.name ILIKE ? OR users.email ILIKE ? OR users.dni ILIKE ? OR sales.client_name ILIKE ? OR sales.client_dni ILIKE ?",
				like, like, like, like, like)
	}
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("sales.status = ?", filter.Status)
	}
	if filter.StartDate != "" {
		q = q.Where("sales.created_at >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		q = q.Where("sales.created_at <= ?", filter.EndDate)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := q.Preload("Lines.Product.Brand").
		Preload("Lines.Presentation").
		Preload("Splits.PaymentMethod").
		Order("sales.created_at DESC").
		Offset(offset).Limit(filter.PageSize).
		Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) FindForSummary(ctx context.Context, businessID, branchID, userID string) ([]model.Sale, error) {
	var sales []model.Sale
	q := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("sales.id", "sales.status", "sales.total_amount", "sales.amount_cancelled", "sales.expired_date", "sales.created_at")

	if userID != "" {
		q = q.Where("sales.user_id = ?", userID)
	}
	if branchID != "" {
		q = q.Joins("JOIN cash_registers ON cash_registers.id = sales.cash_register_id").
			Where("cash_registers.branch_id = ?", branchID)
	} else if businessID != "" {
		q = q.Joins("JOIN cash_registers ON cash_registers.id = sales.cash_register_id").
			Joins("JOIN business_branches ON business_branches.id = cash_registers.branch_id").
			Where("business_branches.business_id = ?", businessID)
	}

	err := q.Find(&sales).Error
	return sales, err
}

func (r *saleRepo) LastByUser(ctx context.Context, userID uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Lines.Product.Brand").
		Preload("Lines.Presentation").
		Preload("Splits.PaymentMethod").
		Preload("CashRegister.Branch.Business").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) LastByScope(ctx context.Context, businessID, branchID string) (*model.Sale, error) {
	var s model.Sale
	q := r.db.WithContext(ctx).
		Preload("Lines.Product.Brand").
		Preload("Lines.Presentation").
		Preload("Splits.PaymentMethod").
		Preload("CashRegister.Branch.Business")

	if branchID != "" {
		q = q.Joins("JOIN cash_registers ON cash_registers.id = sales.cash_register_id").
			Where("cash_registers.branch_id = ?", branchID)
	} else if businessID != "" {
		q = q.Joins("JOIN cash_registers ON cash_registers.id = sales.cash_register_id").
			Joins("JOIN business_branches ON business_branches.id = cash_registers.branch_id").
			Where("business_branches.business_id = ?", businessID)
	}

	if err := q.Order("sales.created_at DESC").First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
