package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/erranza/internal/catalog"
	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/service"
	"github.com/spigell/erranza/internal/session"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptNewest = "newest respondent"

	outputText = "text"
	outputJSON = "json"
)

var matchCmd = &cobra.Command{
	Use:   "match [respondent-id]",
	Short: "Match a respondent's latest questionnaire against the destination catalog",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		match(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	addMatchFlags(matchCmd)
	matchCmd.Flags().String("output", outputText, "output format: text or json")
	matchCmd.Flags().Bool("dump", false, "dump the filtered destination catalog to a temporary file")
	matchCmd.Flags().Bool("mark-seen", false, "append the matched destinations to the exclude file")
}

// addMatchFlags registers the flags shared by match and batch.
func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("top", "n", 0, "number of narrated matches (default from matching.top)")
	cmd.Flags().StringSlice("country", nil, "keep only destinations in these countries")
	cmd.Flags().StringSlice("region", nil, "keep only destinations in these regions")
	cmd.Flags().Float64("max-flight-hours", 0, "drop destinations further away than this")
	cmd.Flags().StringSlice("exclude", nil, "destination ids to skip")
	cmd.Flags().Bool("include-inactive", false, "do not drop inactive destinations")
	cmd.Flags().StringP("exclude-file", "e", "", "special file with destinations to exclude. Default is unset.")
	cmd.Flags().Bool("no-persist", false, "do not store the match results")
	cmd.Flags().Bool("skip-prose", false, "use template narratives only")
}

// optionsFromFlags reads the shared matching flags into service options.
func optionsFromFlags(cmd *cobra.Command) service.Options {
	flags := cmd.Flags()

	top, _ := flags.GetInt("top")
	countries, _ := flags.GetStringSlice("country")
	regions, _ := flags.GetStringSlice("region")
	maxHours, _ := flags.GetFloat64("max-flight-hours")
	exclude, _ := flags.GetStringSlice("exclude")
	inactive, _ := flags.GetBool("include-inactive")
	excludeFile, _ := flags.GetString("exclude-file")
	noPersist, _ := flags.GetBool("no-persist")
	skipProse, _ := flags.GetBool("skip-prose")

	return service.Options{
		Top: top,
		Catalog: catalog.Config{
			Countries:       countries,
			Regions:         regions,
			MaxFlightHours:  maxHours,
			Exclude:         exclude,
			ExcludeFile:     excludeFile,
			IncludeInactive: inactive,
		},
		NoPersist: noPersist,
		SkipProse: skipProse,
	}
}

func match(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, config := setup()

	logger.Info("starting the erranza matcher", zap.String("version", version))

	svc, release, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching service", zap.Error(err))
	}
	defer release()

	sess := session.New(session.SourceCLI)
	opts := optionsFromFlags(cmd)

	var respondentID string
	if len(args) > 0 {
		respondentID = args[0]
	} else {
		respondentID, err = pickRespondent(ctx, svc)
		if err != nil {
			logger.Fatal("choosing a respondent", zap.Error(err))
		}
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filtered, _, err := svc.Destinations(ctx, opts.Catalog)
		if err != nil {
			logger.Fatal("filtering destinations", zap.Error(err))
		}
		filename, err := filtered.DumpToTmpFile()
		if err != nil {
			logger.Fatal("dump destinations to file", zap.Error(err))
		}
		logger.Info("dumping destinations to file", zap.String("filename", filename), zap.Int("count", filtered.Len()))
	}

	report, err := svc.Match(ctx, sess, respondentID, opts)
	if err != nil {
		logger.Fatal("matching", append(sess.Fields(respondentID), zap.Error(err))...)
	}

	output, _ := cmd.Flags().GetString("output")
	if err := writeReport(cmd.OutOrStdout(), report, output); err != nil {
		logger.Fatal("writing the report", zap.Error(err))
	}

	if report.PersistError != "" {
		logger.Warn("match results were not stored", zap.String("reason", report.PersistError))
	}

	if markSeen, _ := cmd.Flags().GetBool("mark-seen"); markSeen {
		excludeFile := opts.Catalog.ExcludeFile
		if excludeFile == "" {
			excludeFile = config.Catalog.ExcludeFile
		}
		added, err := markMatchesSeen(excludeFile, report)
		if err != nil {
			logger.Fatal("updating exclude file", zap.Error(err))
		}
		logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("count", added))
	}
}

// pickRespondent lets the user choose one of the stored respondents.
func pickRespondent(ctx context.Context, svc *service.Service) (string, error) {
	ids, err := svc.Respondents(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", errors.New("there are no stored questionnaire responses")
	}

	respondentPrompt := promptui.Select{
		Label: "Choose a respondent and press ENTER",
		Items: append([]string{PromptNewest}, ids...),
		Size:  10,
	}

	_, selected, err := respondentPrompt.Run()
	if err != nil {
		return "", err
	}
	if selected == PromptNewest {
		return ids[0], nil
	}
	return selected, nil
}

func markMatchesSeen(excludeFile string, report *service.Report) (int, error) {
	if excludeFile == "" {
		return 0, errors.New("exclude file is not configured (use --exclude-file or catalog.exclude-file)")
	}

	excluded, err := destination.LoadExcluded(excludeFile)
	if err != nil {
		return 0, err
	}

	records := make([]*destination.Record, 0, len(report.Matches))
	for _, m := range report.Matches {
		records = append(records, m.Destination)
	}

	added := excluded.Add(records...)
	if err := excluded.Save(excludeFile); err != nil {
		return 0, err
	}
	return added, nil
}

func writeReport(w io.Writer, report *service.Report, format string) error {
	switch strings.ToLower(format) {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "", outputText:
		return writeTextReport(w, report)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func writeTextReport(w io.Writer, report *service.Report) error {
	t := report.Traits
	fmt.Fprintf(w, "Respondent %s (%s questionnaire)\n", report.RespondentID, report.Format)
	fmt.Fprintf(w, "Traits: energy %.0f, social %.0f, luxury %.0f, pace %.0f\n", t.Energy, t.Social, t.Luxury, t.Pace)
	fmt.Fprintf(w, "Destinations considered: %d\n\n", report.Considered)

	if len(report.Matches) == 0 {
		_, err := fmt.Fprintln(w, "No destinations left to match.")
		return err
	}

	for _, m := range report.Matches {
		fmt.Fprintf(w, "%d. %s  %.1f  %s\n", m.Rank, m.Destination.DisplayName(), m.Result.FitScore, m.Narrative.Label)
		fmt.Fprintf(w, "   %s\n", m.Narrative.Prose)
	}
	return nil
}
