package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spigell/erranza/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var batchCmd = &cobra.Command{
	Use:   "batch [respondent-id...]",
	Short: "Match many respondents at once (every stored respondent by default)",
	Run: func(cmd *cobra.Command, args []string) {
		batch(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addMatchFlags(batchCmd)
	batchCmd.Flags().StringP("out", "o", "", "write the reports as json to this file instead of stdout")
}

func batch(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, config := setup()

	svc, release, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching service", zap.Error(err))
	}
	defer release()

	sess := session.New(session.SourceBatch)
	logger.Info("starting the batch", zap.String("session_id", sess.ID), zap.Int("respondents", len(args)))

	reports, matchErr := svc.MatchAll(ctx, sess, args, optionsFromFlags(cmd))
	failures := multierr.Errors(matchErr)
	for _, e := range failures {
		logger.Error("respondent failed", zap.Error(e))
	}

	if len(reports) == 0 {
		logger.Fatal("exiting", zap.String("reason", "no respondent was matched"), zap.Error(matchErr))
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			logger.Fatal("creating output file", zap.Error(err))
		}
		defer file.Close()
		out = file
		logger.Info("writing reports to file", zap.String("filename", path))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		logger.Fatal("writing reports", zap.Error(err))
	}

	logger.Info("batch finished",
		zap.Int("matched", len(reports)),
		zap.Int("failed", len(failures)),
	)
}
