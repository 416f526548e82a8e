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
	"gorm.io/gorm"
)

// PendingService serves the notification inbox fed by the purchase-event
// worker. Dismissing a notification deletes it.
type PendingService interface {
	List(ctx context.Context, filter dto.PendingFilter) (*dto.PendingListResponse, error)
	Dismiss(ctx context.Context, id uuid.UUID) error
}

type pendingService struct {
	repo repository.PendingRepository
}

func NewPendingService(repo repository.PendingRepository) PendingService {
	return &pendingService{repo: repo}
}

func (s *pendingService) List(ctx context.Context, filter dto.PendingFilter) (*dto.PendingListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 10
	}
	pendings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.PendingResponse, 0, len(pendings))
	for i := range pendings {
		data = append(data, pendingToResponse(&pendings[i]))
	}
	totalPages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	return &dto.PendingListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *pendingService) Dismiss(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("pending %s not found", id)
		}
		return err
	}
	return nil
}

func pendingToResponse(p *model.Pending) dto.PendingResponse {
	resp := dto.PendingResponse{
		ID:           p.ID.String(),
		Title:        p.Title,
		Message:      p.Message,
		LinkedUserID: p.LinkedUserID.String(),
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
	if p.BranchID != nil {
		bid := p.BranchID.String()
		resp.BranchID = &bid
	}
	if p.EventDate != nil {
		d := p.EventDate.Format(time.RFC3339)
		resp.EventDate = &d
	}
	return resp
}
