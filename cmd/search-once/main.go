package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"real-estate-search-service/internal"
	"real-estate-search-service/internal/core/domain"

	"github.com/spf13/cobra"
)

// errSearchAborted - поиск завершился ABORTED, запись уже напечатана
var errSearchAborted = errors.New("search aborted")

func newRootCmd() *cobra.Command {
	var inputPath, query, envPath string

	cmd := &cobra.Command{
		Use:           "search-once",
		Short:         "Run one real-estate search and print the resulting record",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := loadRequest(inputPath, query)
			if err != nil {
				return fmt.Errorf("failed to read search request: %w", err)
			}

			var envPaths []string
			if envPath != "" {
				envPaths = append(envPaths, envPath)
			}
			application, err := internal.NewApp(envPaths...)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer application.Close()

			state, searchErr := application.RunOnce(cmd.Context(), req)
			if state == nil {
				return fmt.Errorf("search failed: %w", searchErr)
			}

			out, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode search result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if searchErr != nil {
				return errSearchAborted
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "INPUT.json", "path to a JSON search request")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search query; overrides the query from --input")
	cmd.Flags().StringVar(&envPath, "env", "", "optional .env file")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errSearchAborted) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// loadRequest читает запрос из файла; флаг --query позволяет обойтись без файла
func loadRequest(path, query string) (domain.SearchRequest, error) {
	var req domain.SearchRequest

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
	case os.IsNotExist(err) && query != "":
	default:
		return req, err
	}

	if query != "" {
		req.Query = query
	}
	return req, req.Validate()
}
