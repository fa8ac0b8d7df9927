package service

import (
	"context"

	"github.com/turtacn/itemsvc/internal/application/dto"
	"github.com/turtacn/itemsvc/internal/domain/repository"
	"github.com/turtacn/itemsvc/pkg/errors"
	"github.com/turtacn/itemsvc/pkg/logger"
)

// ItemAppService defines the interface for item-related application services.
type ItemAppService interface {
	GetItem(ctx context.Context, id int64) (*dto.ItemResponse, error)
}

type itemAppServiceImpl struct {
	itemRepo repository.ItemRepository
	log      logger.Logger
}

// NewItemAppService creates a new ItemAppService.
func NewItemAppService(itemRepo repository.ItemRepository, log logger.Logger) ItemAppService {
	return &itemAppServiceImpl{
		itemRepo: itemRepo,
		log:      log,
	}
}

// GetItem looks up one item. Non-positive ids are rejected without touching the store.
func (s *itemAppServiceImpl) GetItem(ctx context.Context, id int64) (*dto.ItemResponse, error) {
	if id <= 0 {
		return nil, errors.ErrValidation("item id must be a positive integer")
	}

	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		fields := logger.Fields{"item_id": id}
		switch {
		case errors.IsNotFoundError(err):
			s.log.Debug(ctx, "Item not found", fields)
		case errors.IsTransientError(err):
			fields["error"] = err.Error()
			s.log.Warn(ctx, "Item store unavailable", fields)
		case errors.ShouldLogError(err):
			s.log.Error(ctx, "Item lookup failed", err, fields)
		default:
			fields["error"] = err.Error()
			s.log.Debug(ctx, "Item lookup rejected", fields)
		}
		return nil, err
	}

	resp := dto.NewItemResponse(item)
	return &resp, nil
}
