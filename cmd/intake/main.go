// Package main provides the standalone intake tool for outcome
// questionnaires. It runs against a local SQLite store and needs no
// PostgreSQL or Redis, for single-clinic and offline deployments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/config"
	"github.com/rehab-triage-engine/internal/domain"
	"github.com/rehab-triage-engine/internal/outcomes"
	"github.com/rehab-triage-engine/internal/service"
)

// scoringTypes maps questionnaire keys to their formulas for offline use,
// where no questionnaire catalog is reachable.
var scoringTypes = map[string]domain.ScoringType{
	"odi":       domain.ScoringODI,
	"koos":      domain.ScoringKOOS,
	"quickdash": domain.ScoringQuickDASH,
	"nprs":      domain.ScoringNPRS,
	"groc":      domain.ScoringGROC,
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.LoadLiteConfig()
	if err := cfg.EnsureDataDir(); err != nil {
		fmt.Fprintf(os.Stderr, "creating data directory: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	store, err := outcomes.NewSQLiteStore(cfg.OutcomesDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open outcome store")
	}
	defer store.Close()

	ctx := context.Background()

	var runErr error
	switch os.Args[1] {
	case "score":
		runErr = runScore(ctx, store, os.Args[2:])
	case "list":
		runErr = runList(ctx, store, os.Args[2:])
	case "export":
		runErr = store.ExportJSON(ctx, os.Stdout)
	case "import":
		runErr = runImport(ctx, store)
	case "count":
		runErr = runCount(ctx, store)
	default:
		usage()
		os.Exit(2)
	}
	if runErr != nil {
		logger.WithError(runErr).Fatal("Command failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: intake <command> [flags]

commands:
  score   -questionnaire <key> -context <baseline|followup|final> [-condition <text>] -responses <n,n,...>
  list    [-limit N] [-offset N]
  export  write all assessments as JSON to stdout
  import  read an assessment export from stdin
  count   print the number of stored assessments`)
}

// runScore applies a questionnaire formula and persists the result.
func runScore(ctx context.Context, store outcomes.Store, args []string) error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	key := fs.String("questionnaire", "", "questionnaire key (odi, koos, quickdash, nprs, groc)")
	condition := fs.String("condition", "", "condition label, e.g. 'low back pain'")
	contextTag := fs.String("context", "baseline", "assessment context: baseline, followup, or final")
	rawResponses := fs.String("responses", "", "comma-separated responses")
	fs.Parse(args)

	scoringType, ok := scoringTypes[strings.ToLower(*key)]
	if !ok {
		return fmt.Errorf("unknown questionnaire key %q", *key)
	}

	responses, err := parseResponses(*rawResponses)
	if err != nil {
		return err
	}

	result, err := service.Score(scoringType, responses)
	if err != nil {
		return err
	}

	assessment := &domain.OutcomeAssessment{
		QuestionnaireKey: strings.ToLower(*key),
		Condition:        *condition,
		Context:          domain.AssessmentContext(*contextTag),
		Responses:        responses,
		Score:            result.Score,
		Interpretation:   result.Interpretation,
		CompletedAt:      time.Now().UTC(),
	}
	if err := store.Save(ctx, assessment); err != nil {
		return err
	}

	return printJSON(assessment)
}

func runList(ctx context.Context, store outcomes.Store, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum assessments to print")
	offset := fs.Int("offset", 0, "assessments to skip")
	fs.Parse(args)

	assessments, err := store.List(ctx, *limit, *offset)
	if err != nil {
		return err
	}
	return printJSON(assessments)
}

func runImport(ctx context.Context, store outcomes.Store) error {
	imported, skipped, err := store.ImportJSON(ctx, os.Stdin)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d, skipped %d\n", imported, skipped)
	return nil
}

func runCount(ctx context.Context, store outcomes.Store) error {
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Println(count)
	return nil
}

func parseResponses(raw string) ([]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	responses := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing response %q: %w", part, err)
		}
		responses = append(responses, value)
	}
	return responses, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
