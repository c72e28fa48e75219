package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spigell/erranza/internal/backend"
	"github.com/spigell/erranza/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load destinations and questionnaire responses into the local sqlite cache",
	Run: func(cmd *cobra.Command, _ []string) {
		importData(cmd)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("destinations", "", "json file with an array of destination records")
	importCmd.Flags().String("responses", "", "json file with an array of questionnaire responses")
	importCmd.Flags().Bool("from-backend", false, "copy the catalog and the latest responses from the configured backend")
}

func importData(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := setup()

	destinationsFile, _ := cmd.Flags().GetString("destinations")
	responsesFile, _ := cmd.Flags().GetString("responses")
	fromBackend, _ := cmd.Flags().GetBool("from-backend")

	if destinationsFile == "" && responsesFile == "" && !fromBackend {
		logger.Fatal("nothing to import", zap.String("hint", "use --destinations, --responses or --from-backend"))
	}

	store, err := openSQLite(config.Storage)
	if err != nil {
		logger.Fatal("opening sqlite store", zap.Error(err))
	}
	defer store.Close()

	if destinationsFile != "" {
		records, err := storage.LoadDestinationsFromFile(destinationsFile)
		if err != nil {
			logger.Fatal("loading destinations", zap.Error(err))
		}
		n, err := store.UpsertDestinations(ctx, records)
		if err != nil {
			logger.Fatal("storing destinations", zap.Error(err))
		}
		logger.Info("imported destinations", zap.String("filename", destinationsFile), zap.Int("count", n))
	}

	if responsesFile != "" {
		records, err := storage.LoadResponsesFromFile(responsesFile)
		if err != nil {
			logger.Fatal("loading responses", zap.Error(err))
		}
		for _, r := range records {
			if err := store.SaveResponse(ctx, r.RespondentID, r.Answers, r.CreatedAt); err != nil {
				logger.Fatal("storing response", zap.String("respondent_id", r.RespondentID), zap.Error(err))
			}
		}
		logger.Info("imported responses", zap.String("filename", responsesFile), zap.Int("count", len(records)))
	}

	if fromBackend {
		client, err := newBackend(config.Backend, logger)
		if err != nil {
			logger.Fatal("configuring backend", zap.Error(err))
		}
		if err := syncFromBackend(ctx, client, store, logger); err != nil {
			logger.Fatal("syncing from backend", zap.Error(err))
		}
	}
}

// syncFromBackend copies the catalog and each respondent's latest response.
func syncFromBackend(ctx context.Context, client *backend.Client, store *storage.SQLiteStore, logger *zap.Logger) error {
	catalog, err := client.ListDestinations(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}
	n, err := store.UpsertDestinations(ctx, catalog.Items)
	if err != nil {
		return fmt.Errorf("store catalog: %w", err)
	}
	logger.Info("synced destinations", zap.Int("count", n))

	ids, err := client.ListRespondents(ctx)
	if err != nil {
		return fmt.Errorf("list respondents: %w", err)
	}

	before, err := store.CountResponses(ctx)
	if err != nil {
		return fmt.Errorf("count responses: %w", err)
	}

	var errs error
	for _, id := range ids {
		sub, err := client.GetLatestSubmission(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if sub.CreatedAt.IsZero() {
			logger.Warn("response has no creation time, using now", zap.String("respondent_id", id))
			sub.CreatedAt = time.Now().UTC()
		}
		// Already synced submissions are skipped by the store.
		if err := store.SaveResponse(ctx, id, sub.Answers, sub.CreatedAt); err != nil {
			return fmt.Errorf("store response %s: %w", id, err)
		}
	}

	after, err := store.CountResponses(ctx)
	if err != nil {
		return fmt.Errorf("count responses: %w", err)
	}
	logger.Info("synced responses", zap.Int("added", after-before), zap.Int("respondents", len(ids)))
	return errs
}
