// Command analyze runs batting analytics from the command line and prints
// JSON to stdout.
//
// Usage:
//
//	batting-analyze regression 660271 --season 2024 --statcast
//	batting-analyze predict 660271 --season 2024
//	batting-analyze percentile --season 2024 --metric wrc_plus --value 135
//	batting-analyze scan --season 2024 --workers 8 --threshold 2
//	batting-analyze report 660271 --fixture testdata/league.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/config"
	"github.com/thatsmyboye/baseball-analytics/internal/db"
	"github.com/thatsmyboye/baseball-analytics/internal/store/memstore"
	"github.com/thatsmyboye/baseball-analytics/internal/store/postgres"
)

// Logs go to stderr so stdout stays valid JSON.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// fixturePath, when set, runs the engine over a JSON fixture instead of Postgres.
var fixturePath string

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "batting-analyze",
		Short:        "Batting analytics CLI",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&fixturePath, "fixture", "", "Read players and seasons from a JSON fixture instead of the database")

	root.AddCommand(regressionCmd())
	root.AddCommand(predictCmd())
	root.AddCommand(trajectoryCmd())
	root.AddCommand(breakoutCmd())
	root.AddCommand(declineCmd())
	root.AddCommand(peakCmd())
	root.AddCommand(roleCmd())
	root.AddCommand(percentilesCmd())
	root.AddCommand(percentileCmd())
	root.AddCommand(cohortsCmd())
	root.AddCommand(topCmd())
	root.AddCommand(scanCmd())
	root.AddCommand(reportCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// player commands
// --------------------------------------------------------------------------

func regressionCmd() *cobra.Command {
	var (
		season   int
		statcast bool
	)
	cmd := &cobra.Command{
		Use:   "regression <player-id>",
		Short: "Flag luck-driven rates in a season against the player's career",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error) {
				s := seasonOr(season, cfg)
				if statcast {
					return nilable(e.Statcast.AnalyzePlayerSeason(ctx, id, s))
				}
				return nilable(e.Detector.AnalyzePlayerSeason(ctx, id, s))
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season (defaults to CURRENT_SEASON)")
	cmd.Flags().BoolVar(&statcast, "statcast", false, "Include Statcast signals")
	return cmd
}

func predictCmd() *cobra.Command {
	var season int
	cmd := &cobra.Command{
		Use:   "predict <player-id>",
		Short: "Project next season's wRC+",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error) {
				return nilable(e.Predictor.PredictNextSeason(ctx, id, seasonOr(season, cfg)))
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season projected from (defaults to CURRENT_SEASON)")
	return cmd
}

func trajectoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trajectory <player-id>",
		Short: "Career trajectory with year-over-year changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, _ *config.Config, e *analytics.Engine) (any, error) {
				return e.Trends.CareerTrajectory(ctx, id)
			})
		},
	}
}

func breakoutCmd() *cobra.Command {
	var season int
	cmd := &cobra.Command{
		Use:   "breakout <player-id>",
		Short: "Check whether a season broke out from the prior baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error) {
				return nilable(e.Trends.DetectBreakoutSeason(ctx, id, seasonOr(season, cfg)))
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season (defaults to CURRENT_SEASON)")
	return cmd
}

func declineCmd() *cobra.Command {
	var lookback int
	cmd := &cobra.Command{
		Use:   "decline <player-id>",
		Short: "Fit slopes over the most recent seasons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, _ *config.Config, e *analytics.Engine) (any, error) {
				return nilable(e.Trends.DetectDeclineTrend(ctx, id, lookback))
			})
		},
	}
	cmd.Flags().IntVar(&lookback, "lookback", 3, "Seasons to fit")
	return cmd
}

func peakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peak <player-id>",
		Short: "Find the career peak season",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, _ *config.Config, e *analytics.Engine) (any, error) {
				return nilable(e.Trends.IdentifyCareerPeak(ctx, id))
			})
		},
	}
}

func roleCmd() *cobra.Command {
	var (
		season int
		aging  bool
	)
	cmd := &cobra.Command{
		Use:   "role <player-id>",
		Short: "Classify playing-time role (every season unless --season is set)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, _ *config.Config, e *analytics.Engine) (any, error) {
				switch {
				case aging:
					return e.Trends.AgingCurve(ctx, id)
				case season > 0:
					return nilable(e.Roles.ClassifyPlayerSeason(ctx, id, season))
				default:
					return e.Roles.ClassifyPlayer(ctx, id)
				}
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Single season to classify")
	cmd.Flags().BoolVar(&aging, "aging", false, "Print the age-indexed curve instead")
	return cmd
}

func reportCmd() *cobra.Command {
	var season int
	cmd := &cobra.Command{
		Use:   "report <player-id>",
		Short: "Combined stat line, role, percentiles, regression and career context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error) {
				return nilable(e.Reporter.Build(ctx, id, seasonOr(season, cfg)))
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season (defaults to CURRENT_SEASON)")
	return cmd
}

// --------------------------------------------------------------------------
// league commands
// --------------------------------------------------------------------------

func percentilesCmd() *cobra.Command {
	var season, minPA int
	cmd := &cobra.Command{
		Use:   "percentiles",
		Short: "Per-metric league distributions for a season",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error) {
				return nilable(e.Baselines.LeaguePercentiles(ctx, seasonOr(season, cfg), minPA))
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season (defaults to CURRENT_SEASON)")
	cmd.Flags().IntVar(&minPA, "min-pa", batting.LeagueAverageMinPA, "Minimum PA")
	return cmd
}

func percentileCmd() *cobra.Command {
	var (
		season, minPA int
		metric        string
		value         float64
	)
	cmd := &cobra.Command{
		Use:   "percentile",
		Short: "Rank one value against the season's population",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := batting.ParseStatKey(metric)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error) {
				p, err := e.Baselines.PlayerPercentile(ctx, &value, key, seasonOr(season, cfg), minPA)
				if err != nil || p == nil {
					return nil, err
				}
				return analytics.PercentileRank{
					Metric:     key,
					Value:      value,
					Percentile: *p,
					Tier:       analytics.PercentileTier(*p),
				}, nil
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season (defaults to CURRENT_SEASON)")
	cmd.Flags().IntVar(&minPA, "min-pa", batting.LeagueAverageMinPA, "Minimum PA")
	cmd.Flags().StringVar(&metric, "metric", string(batting.StatWRCPlus), "Metric to rank")
	cmd.Flags().Float64Var(&value, "value", 0, "Value to rank")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func cohortsCmd() *cobra.Command {
	var season, minPA int
	cmd := &cobra.Command{
		Use:   "cohorts",
		Short: "Mean rate stats by playing-time role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error) {
				return e.Baselines.RoleCohortStats(ctx, seasonOr(season, cfg), minPA)
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season (defaults to CURRENT_SEASON)")
	cmd.Flags().IntVar(&minPA, "min-pa", batting.LeagueAverageMinPA, "Minimum PA")
	return cmd
}

func topCmd() *cobra.Command {
	var season, minPA, limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Best hitters by wRC+",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error) {
				return e.Baselines.TopPerformers(ctx, seasonOr(season, cfg), minPA, limit)
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season (defaults to CURRENT_SEASON)")
	cmd.Flags().IntVar(&minPA, "min-pa", batting.MinCareerPA, "Minimum PA")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum players")
	return cmd
}

type scanOutput struct {
	*analytics.ScanResult
	Buys   []*analytics.SeasonAnalysis `json:"buy_candidates"`
	Sells  []*analytics.SeasonAnalysis `json:"sell_candidates"`
	Digest *analytics.Digest           `json:"digest"`
}

func scanCmd() *cobra.Command {
	var (
		season, minPA, workers int
		statcast               bool
		threshold              float64
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "League-wide regression scan with buy/sell candidates and digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error) {
				if !cmd.Flags().Changed("min-pa") {
					minPA = cfg.ScanMinPA
				}
				if !cmd.Flags().Changed("workers") {
					workers = cfg.ScanWorkers
				}
				start := time.Now()
				res, err := e.Scanner.Scan(ctx, analytics.ScanOptions{
					Season:       seasonOr(season, cfg),
					MinPA:        minPA,
					Workers:      workers,
					WithStatcast: statcast,
				})
				if err != nil {
					return nil, err
				}
				buys, sells := analytics.SplitCandidates(res.Analyses, threshold)
				digest := analytics.BuildDigest(res.Analyses)
				logger.Info("Scan finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", res.Summary(),
					"digest", digest.Summary())
				return scanOutput{ScanResult: res, Buys: buys, Sells: sells, Digest: digest}, nil
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season (defaults to CURRENT_SEASON)")
	cmd.Flags().IntVar(&minPA, "min-pa", 0, "Minimum PA (defaults to SCAN_MIN_PA)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent analyses (defaults to SCAN_WORKERS)")
	cmd.Flags().BoolVar(&statcast, "statcast", true, "Include Statcast signals")
	cmd.Flags().Float64Var(&threshold, "threshold", analytics.DefaultCandidateThreshold, "Net score marking a strong candidate")
	return cmd
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("player id must be a positive integer, got %q", s)
	}
	return id, nil
}

func seasonOr(season int, cfg *config.Config) int {
	if season > 0 {
		return season
	}
	return cfg.CurrentSeason
}

// nilable turns a typed nil result into an untyped one so run can report
// insufficient data.
func nilable[T any](v *T, err error) (any, error) {
	if err != nil || v == nil {
		return nil, err
	}
	return v, nil
}

// run loads config, builds the engine over the fixture or the database,
// and prints fn's result as indented JSON.
func run(fn func(ctx context.Context, cfg *config.Config, e *analytics.Engine) (any, error)) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var (
		cfg   *config.Config
		store batting.Store
		err   error
	)
	if fixturePath != "" {
		if cfg, err = config.LoadOffline(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		f, err := os.Open(fixturePath)
		if err != nil {
			return fmt.Errorf("open fixture: %w", err)
		}
		defer f.Close()
		if store, err = memstore.Load(f); err != nil {
			return err
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		store = postgres.New(pool.Pool, cfg, logger)
	}

	out, err := fn(ctx, cfg, analytics.NewEngine(store, logger))
	if err != nil {
		return err
	}
	if out == nil {
		return fmt.Errorf("insufficient data")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
