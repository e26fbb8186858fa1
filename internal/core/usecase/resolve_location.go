package usecase

import (
	"context"
	"fmt"
	"strings"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"
)

// LocationResolver извлекает "City, State" из текста запроса одним вызовом модели.
// Повторов нет: неразборчивый ответ сразу считается неудачей.
type LocationResolver struct {
	llm port.LanguageModelPort
}

func NewLocationResolver(llm port.LanguageModelPort) *LocationResolver {
	return &LocationResolver{llm: llm}
}

func (r *LocationResolver) ResolveLocation(ctx context.Context, query string) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "LocationResolver",
	})
	logger.Info("Extracting city and state from query", port.Fields{"query": query})

	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: empty query", domain.ErrLocationResolutionFailed)
	}

	prompt := renderPrompt(locationPromptTemplate, map[string]string{"query": query})
	answer, err := r.llm.Complete(ctx, prompt, port.HintNone)
	if err != nil {
		logger.Error("Language model call failed", err, nil)
		return "", fmt.Errorf("%w: %w", domain.ErrLocationResolutionFailed, err)
	}

	location := strings.TrimSpace(answer)
	if !domain.IsCityState(location) {
		logger.Error("Invalid city/state extracted", nil, port.Fields{"answer": location})
		return "", fmt.Errorf("%w: unexpected answer %q", domain.ErrLocationResolutionFailed, location)
	}

	logger.Info("Extracted city & state", port.Fields{"city_state": location})
	return location, nil
}
