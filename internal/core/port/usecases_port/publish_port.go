package usecases_port

import (
	"context"

	"real-estate-search-service/internal/core/domain"
)

type PublishSearchResultUseCase interface {
	Execute(ctx context.Context, state *domain.QueryState) error
}
