package domain

import (
	"errors"
	"fmt"
)

// Таксономия ошибок стадий конвейера
var (
	ErrLocationResolutionFailed  = errors.New("location resolution failed")
	ErrParameterExtractionFailed = errors.New("parameter extraction failed")
	ErrNoZipCodesFound           = errors.New("no zip codes found")
	ErrListingSource             = errors.New("listing source error")
)

var ErrReportNotFound = errors.New("report not found")

// Причины прерывания, видимые клиенту
const (
	ReasonInvalidQuery  = "invalid search query"
	ReasonNoZipCodes    = "no zip codes found for location"
	ReasonFetchListings = "failed to fetch listings"
)

// SearchAbortedError - терминальное состояние ABORTED(reason).
// Reason безопасно показывать пользователю, Err хранит причину для логов.
type SearchAbortedError struct {
	Reason string
	Stage  Stage
	Err    error
}

func (e *SearchAbortedError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *SearchAbortedError) Unwrap() error { return e.Err }

// AbortReason возвращает причину прерывания, если err - SearchAbortedError
func AbortReason(err error) (string, bool) {
	var aborted *SearchAbortedError
	if errors.As(err, &aborted) {
		return aborted.Reason, true
	}
	return "", false
}
