package port

import (
	"context"
	"real-estate-search-service/internal/core/domain"
)

// ListingSourcePort - внешний источник объявлений.
// StartSearch запускает поиск и возвращает ссылку на набор результатов,
// IterateResults обходит этот набор, вызывая yield для каждой записи.
type ListingSourcePort interface {
	StartSearch(ctx context.Context, input domain.ListingSearchInput) (domain.ResultSetHandle, error)
	IterateResults(ctx context.Context, handle domain.ResultSetHandle, yield func(domain.ListingRecord) error) error
}
