package usecases_port

import (
	"context"

	"real-estate-search-service/internal/core/domain"
)

// SearchRealEstateUseCase всегда возвращает непустое состояние;
// ошибка, если есть, - *domain.SearchAbortedError
type SearchRealEstateUseCase interface {
	Execute(ctx context.Context, req domain.SearchRequest) (*domain.QueryState, error)
}
