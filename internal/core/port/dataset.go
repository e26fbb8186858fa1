package port

import (
	"context"

	"real-estate-search-service/internal/core/domain"
)

// DatasetPort публикует итоговую запись поиска во внешний датасет
type DatasetPort interface {
	PushResult(ctx context.Context, state *domain.QueryState) error
}
