package apify_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"
)

const (
	DefaultBaseURL = "https://api.apify.com"
	// DefaultActorID - актор поиска Zillow по почтовым индексам
	DefaultActorID = "maxcopell/zillow-zip-search"
)

// Config для клиента Apify
type Config struct {
	BaseURL string
	Token   string
	ActorID string
	// WaitForFinish - сколько секунд сервер держит запрос в ожидании завершения (не больше 60)
	WaitForFinish int
	// MaxRunDuration ограничивает общее ожидание запуска
	MaxRunDuration time.Duration
	PageSize       int
	HTTPTimeout    time.Duration
}

// Client реализует port.ListingSourcePort через запуск актора и чтение его датасета
type Client struct {
	baseURL        string
	token          string
	actorID        string
	waitForFinish  int
	maxRunDuration time.Duration
	pageSize       int
	httpClient     *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("apify client: token is required")
	}
	c := &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		token:          cfg.Token,
		actorID:        cfg.ActorID,
		waitForFinish:  cfg.WaitForFinish,
		maxRunDuration: cfg.MaxRunDuration,
		pageSize:       cfg.PageSize,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.actorID == "" {
		c.actorID = DefaultActorID
	}
	if c.waitForFinish <= 0 || c.waitForFinish > 60 {
		c.waitForFinish = 60
	}
	if c.maxRunDuration <= 0 {
		c.maxRunDuration = 10 * time.Minute
	}
	if c.pageSize <= 0 {
		c.pageSize = 1000
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		// long-poll запросы держатся до waitForFinish секунд
		timeout = time.Duration(c.waitForFinish+30) * time.Second
	}
	c.httpClient = &http.Client{Timeout: timeout}
	return c, nil
}

// doRequest - внутренний хелпер для выполнения запросов
func (c *Client) doRequest(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// decodeResponse проверяет статус и декодирует тело в out
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr errorResponse
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("apify returned status %d (%s): %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return fmt.Errorf("apify returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode apify response: %w", err)
	}
	return nil
}

// actorPathID: в URL "user/actor" записывается как "user~actor"
func actorPathID(actorID string) string {
	return url.PathEscape(strings.Replace(actorID, "/", "~", 1))
}

// StartSearch запускает актор и дожидается завершения запуска
func (c *Client) StartSearch(ctx context.Context, input domain.ListingSearchInput) (domain.ResultSetHandle, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	clientLogger := logger.WithFields(port.Fields{
		"component": "ApifyClient",
		"method":    "StartSearch",
		"actor_id":  c.actorID,
	})

	body, err := json.Marshal(input)
	if err != nil {
		return domain.ResultSetHandle{}, fmt.Errorf("failed to marshal actor input: %w", err)
	}

	runURL := fmt.Sprintf("%s/v2/acts/%s/runs?waitForFinish=%d", c.baseURL, actorPathID(c.actorID), c.waitForFinish)
	clientLogger.Info("Starting actor run", port.Fields{"zip_codes": input.ZipCodes})

	resp, err := c.doRequest(ctx, http.MethodPost, runURL, bytes.NewReader(body))
	if err != nil {
		clientLogger.Error("Failed to perform request to Apify", err, nil)
		return domain.ResultSetHandle{}, fmt.Errorf("failed to start actor run: %w", err)
	}

	var run runResponse
	if err := decodeResponse(resp, &run); err != nil {
		clientLogger.Error("Failed to start actor run", err, nil)
		return domain.ResultSetHandle{}, err
	}

	finished, err := c.waitForRun(ctx, run.Data)
	if err != nil {
		clientLogger.Error("Actor run did not succeed", err, port.Fields{"run_id": run.Data.ID})
		return domain.ResultSetHandle{}, err
	}

	clientLogger.Info("Actor run finished", port.Fields{"run_id": finished.ID, "dataset_id": finished.DefaultDatasetID})
	return domain.ResultSetHandle{RunID: finished.ID, DatasetID: finished.DefaultDatasetID}, nil
}

// waitForRun опрашивает запуск, пока он не перейдет в терминальный статус
func (c *Client) waitForRun(ctx context.Context, run runDTO) (runDTO, error) {
	if run.ID == "" {
		return run, fmt.Errorf("apify returned a run without id")
	}

	deadline := time.Now().Add(c.maxRunDuration)
	for !isTerminal(run.Status) {
		if time.Now().After(deadline) {
			return run, fmt.Errorf("actor run %s still %s after %s", run.ID, run.Status, c.maxRunDuration)
		}
		if err := ctx.Err(); err != nil {
			return run, err
		}

		pollURL := fmt.Sprintf("%s/v2/actor-runs/%s?waitForFinish=%d", c.baseURL, url.PathEscape(run.ID), c.waitForFinish)
		resp, err := c.doRequest(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return run, fmt.Errorf("failed to poll actor run %s: %w", run.ID, err)
		}
		var polled runResponse
		if err := decodeResponse(resp, &polled); err != nil {
			return run, err
		}
		run = polled.Data
	}

	if run.Status != statusSucceeded {
		return run, fmt.Errorf("actor run %s finished with status %s: %s", run.ID, run.Status, run.StatusMessage)
	}
	if run.DefaultDatasetID == "" {
		return run, fmt.Errorf("actor run %s has no default dataset", run.ID)
	}
	return run, nil
}

// IterateResults читает датасет страницами и отдает каждую запись в yield
func (c *Client) IterateResults(ctx context.Context, handle domain.ResultSetHandle, yield func(domain.ListingRecord) error) error {
	logger := contextkeys.LoggerFromContext(ctx)
	clientLogger := logger.WithFields(port.Fields{
		"component":  "ApifyClient",
		"method":     "IterateResults",
		"dataset_id": handle.DatasetID,
	})

	if handle.DatasetID == "" {
		return fmt.Errorf("result set handle has no dataset id")
	}

	total := 0
	for offset := 0; ; offset += c.pageSize {
		q := url.Values{}
		q.Set("format", "json")
		q.Set("clean", "true")
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(c.pageSize))
		itemsURL := fmt.Sprintf("%s/v2/datasets/%s/items?%s", c.baseURL, url.PathEscape(handle.DatasetID), q.Encode())

		resp, err := c.doRequest(ctx, http.MethodGet, itemsURL, nil)
		if err != nil {
			clientLogger.Error("Failed to perform request to Apify", err, nil)
			return fmt.Errorf("failed to fetch dataset items: %w", err)
		}

		var page []domain.ListingRecord
		if err := decodeResponse(resp, &page); err != nil {
			clientLogger.Error("Failed to read dataset page", err, port.Fields{"offset": offset})
			return err
		}

		for _, item := range page {
			if err := yield(item); err != nil {
				return err
			}
		}
		total += len(page)

		if len(page) < c.pageSize {
			break
		}
	}

	clientLogger.Info("Dataset read", port.Fields{"items": total})
	return nil
}
