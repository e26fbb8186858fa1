package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"
)

type promptKind string

const (
	kindLocation promptKind = "location"
	kindZip      promptKind = "zip"
	kindParams   promptKind = "params"
)

func kindOf(prompt string) promptKind {
	switch {
	case strings.Contains(prompt, "Extract the city and state"):
		return kindLocation
	case strings.Contains(prompt, "ZIP codes"):
		return kindZip
	case strings.Contains(prompt, "search parameters"):
		return kindParams
	}
	return ""
}

// fakeLLM отвечает заготовленным текстом в зависимости от вида промпта
type fakeLLM struct {
	mu       sync.Mutex
	answers  map[promptKind]string
	failures map[promptKind]error
	calls    []promptKind
	prompts  []string
	hints    []port.ResponseHint
}

func newFakeLLM(answers map[promptKind]string) *fakeLLM {
	return &fakeLLM{answers: answers, failures: map[promptKind]error{}}
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, hint port.ResponseHint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kind := kindOf(prompt)
	f.calls = append(f.calls, kind)
	f.prompts = append(f.prompts, prompt)
	f.hints = append(f.hints, hint)

	if err := f.failures[kind]; err != nil {
		return "", err
	}
	answer, ok := f.answers[kind]
	if !ok {
		return "", errors.New("fake llm: no answer configured")
	}
	return answer, nil
}

func (f *fakeLLM) callCount(kind promptKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == kind {
			n++
		}
	}
	return n
}

// fakeListingSource запоминает входные данные и отдает заготовленные записи
type fakeListingSource struct {
	inputs     []domain.ListingSearchInput
	records    []domain.ListingRecord
	startErr   error
	iterateErr error
	panicMsg   string
}

func (s *fakeListingSource) StartSearch(_ context.Context, input domain.ListingSearchInput) (domain.ResultSetHandle, error) {
	s.inputs = append(s.inputs, input)
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.startErr != nil {
		return domain.ResultSetHandle{}, s.startErr
	}
	return domain.ResultSetHandle{RunID: "run", DatasetID: "dataset"}, nil
}

func (s *fakeListingSource) IterateResults(_ context.Context, _ domain.ResultSetHandle, yield func(domain.ListingRecord) error) error {
	for _, r := range s.records {
		if err := yield(r); err != nil {
			return err
		}
	}
	return s.iterateErr
}
