package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-classify/internal/api"
	"github.com/miradorstack/mirador-classify/internal/config"
	"github.com/miradorstack/mirador-classify/internal/engine"
	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/patterns"
	"github.com/miradorstack/mirador-classify/internal/repo"
	"github.com/miradorstack/mirador-classify/internal/utils"
)

type filterOptions struct {
	recordsPath  string
	patternsPath string
	rulesPath    string
	counts       bool
	request      api.FilterRequest
}

func newFilterCommand(root *rootOptions) *cobra.Command {
	opts := &filterOptions{}
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Classify a JSON record file offline and print the filtered records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if root.logLevel != "" {
				cfg.Logging.Level = root.logLevel
			}
			if opts.patternsPath == "" {
				opts.patternsPath = cfg.Patterns.Path
			}
			if opts.rulesPath == "" {
				opts.rulesPath = cfg.Rules.Path
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			logger := utils.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON)
			return runFilter(ctx, opts, cfg.Classifier.Workers, logger, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.recordsPath, "records", "r", "", "JSON file with a record array or an object with a \"records\" array (- for stdin)")
	f.StringVarP(&opts.patternsPath, "patterns", "p", "", "pattern dictionary file (default from config)")
	f.StringVar(&opts.rulesPath, "rules", "", "violation rule override file (default from config)")
	f.BoolVar(&opts.counts, "counts", false, "print entity counts instead of records")
	f.StringVarP(&opts.request.Query, "query", "q", "", "boolean query (AND, OR, NOT, parentheses)")
	f.StringVar(&opts.request.From, "from", "", "inclusive start date (YYYY-MM-DD)")
	f.StringVar(&opts.request.To, "to", "", "inclusive end date (YYYY-MM-DD)")
	f.StringVar(&opts.request.DatePreset, "preset", "", "date preset (today, yesterday, last7days, last30days, thisMonth, lastMonth, thisYear, all)")
	f.StringVar(&opts.request.Tier, "tier", "", "score tier (all, likely, strong)")
	f.StringSliceVar(&opts.request.Systems, "system", nil, "weapon system key (repeatable)")
	f.StringSliceVar(&opts.request.Units, "unit", nil, "military unit key (repeatable)")
	f.StringSliceVar(&opts.request.RecordIDs, "id", nil, "record ID (repeatable)")
	f.StringSliceVar(&opts.request.Locations, "location", nil, "exact location (repeatable)")
	f.StringSliceVar(&opts.request.Entities, "entity", nil, "annotated entity (repeatable)")
	f.IntVar(&opts.request.Limit, "limit", 0, "maximum records to print (0 for all)")
	_ = cmd.MarkFlagRequired("records")
	return cmd
}

func runFilter(ctx context.Context, opts *filterOptions, workers int, logger *slog.Logger, out io.Writer) error {
	criteria, err := opts.request.Criteria(time.Now())
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	records, err := readRecords(opts.recordsPath)
	if err != nil {
		return err
	}

	dict, err := patterns.LoadFile(opts.patternsPath, logger)
	if err != nil {
		logger.Warn("pattern dictionary unavailable, matching nothing", slog.Any("error", err))
		dict = patterns.Empty()
	}
	rules, err := engine.LoadRuleSet(opts.rulesPath, logger)
	if err != nil {
		return fmt.Errorf("load violation rules: %w", err)
	}

	store := repo.NewStore(logger, engine.NewClassifier(logger, engine.NewScorer(rules), workers), dict)
	snap, err := store.Ingest(ctx, records, true)
	if err != nil {
		return err
	}

	matched, err := engine.NewFilterPipeline(logger).Apply(criteria, snap.Records)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if opts.counts {
		counts := patterns.Tally(matched)
		return enc.Encode(api.CountsResponse{
			SnapshotID: snap.ID,
			Counts:     counts,
			TopSystems: patterns.TopKeys(counts.Systems, opts.request.Limit),
			TopUnits:   patterns.TopKeys(counts.Units, opts.request.Limit),
		})
	}
	return enc.Encode(api.RecordsResponse{
		SnapshotID:        snap.ID,
		DictionaryVersion: dict.Version(),
		Total:             len(matched),
		Records:           api.Truncate(matched, opts.request.Limit),
	})
}

// readRecords accepts either a bare JSON array or an ingest payload.
func readRecords(path string) ([]models.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var records []models.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return records, nil
	}
	var req api.IngestRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return req.Records, nil
}
