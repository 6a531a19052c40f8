package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"abtester/adapters/api"
	"abtester/adapters/dataset"
	"abtester/adapters/stats/primitives"
	"abtester/domain/core"
	"abtester/domain/experiment"
	"abtester/internal"
	"abtester/internal/batch"
	"abtester/internal/config"
	"abtester/internal/decision"
	"abtester/internal/profiling"
	"abtester/internal/report"
	"abtester/internal/testkit"
)

// splitFlags are the dataset selection flags shared by evaluate and describe
type splitFlags struct {
	group string
	value string
	min   float64
	max   float64
}

func (f *splitFlags) register(cmd *cobra.Command, defaults config.DataConfig) {
	cmd.Flags().StringVar(&f.group, "group", defaults.GroupColumn, "Group column")
	cmd.Flags().StringVar(&f.value, "value", defaults.ValueColumn, "Target (metric) column")
	cmd.Flags().Float64Var(&f.min, "min", 0, "Keep values >= min")
	cmd.Flags().Float64Var(&f.max, "max", 0, "Keep values < max")
}

func (f *splitFlags) filter(cmd *cobra.Command) dataset.Filter {
	var filter dataset.Filter
	if cmd.Flags().Changed("min") {
		v := f.min
		filter.Min = &v
	}
	if cmd.Flags().Changed("max") {
		v := f.max
		filter.Max = &v
	}
	return filter
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Flags still apply; fall back to defaults for anything the environment broke
		internal.DefaultLogger.Warn("ignoring invalid environment configuration: %v", err)
		return &config.Config{
			Test:   experiment.DefaultConfig(),
			Data:   config.DataConfig{GroupColumn: "version"},
			Batch:  config.BatchConfig{Workers: batch.DefaultWorkers},
			Server: config.ServerConfig{Port: "8080"},
		}
	}
	return cfg
}

func commandLogger(cmd *cobra.Command) *internal.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		return internal.NewDefaultLogger()
	}
	return internal.NewLogger(internal.ParseLogLevel(level))
}

func resolveDataFile(args []string, defaults config.DataConfig) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if defaults.File != "" {
		return defaults.File, nil
	}
	return "", fmt.Errorf("no data file given and DATA_FILE is not set")
}

func newEvaluateCmd(appConfig *config.Config) *cobra.Command {
	var (
		split       splitFlags
		labelA      string
		labelB      string
		alpha       float64
		alternative string
		rankTest    string
		format      string
		profile     bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate [data-file]",
		Short: "Run the A/B decision procedure on a CSV or XLSX file",
		Long: `Split the target column by group label into samples A and B, select the
appropriate test and report the verdict.

Example: abtest evaluate cookie_cats.csv --group version --value sum_gamerounds --a gate_30 --b gate_40 --max 10000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveDataFile(args, appConfig.Data)
			if err != nil {
				return err
			}
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			cfg := appConfig.Test
			cfg.LabelA, cfg.LabelB, cfg.Alpha = labelA, labelB, alpha
			if cfg.Alternative, err = experiment.ParseAlternative(alternative); err != nil {
				return err
			}
			if cfg.RankTest, err = experiment.ParseRankTest(rankTest); err != nil {
				return err
			}

			logger := commandLogger(cmd)
			table, err := dataset.NewDataReader(path).WithLogger(logger).ReadData()
			if err != nil {
				return err
			}
			samples, err := dataset.Split(table, dataset.SplitConfig{
				GroupColumn: split.group,
				ValueColumn: split.value,
				LabelA:      labelA,
				LabelB:      labelB,
				Filter:      split.filter(cmd),
			})
			if err != nil {
				return err
			}
			if samples.Dropped > 0 {
				logger.Info("dropped %d rows (empty, non-numeric or filtered)", samples.Dropped)
			}

			engine := decision.NewEngine(primitives.New(), decision.WithLogger(logger))
			result, err := engine.Evaluate(samples.A, samples.B, cfg)
			if err != nil {
				return err
			}

			rep := report.Report{ID: core.NewEvaluationID().String(), Config: cfg, Result: result}
			if profile {
				rep.Profiles, err = profiling.NewDataProfiler(logger).ProfileGroups(
					map[string][]float64{labelA: samples.A, labelB: samples.B}, []string{labelA, labelB})
				if err != nil {
					return err
				}
			}
			return report.NewRenderer().Render(cmd.OutOrStdout(), rep, outFormat)
		},
	}

	split.register(cmd, appConfig.Data)
	cmd.Flags().StringVar(&labelA, "a", appConfig.Test.LabelA, "Group label of sample A")
	cmd.Flags().StringVar(&labelB, "b", appConfig.Test.LabelB, "Group label of sample B")
	cmd.Flags().Float64Var(&alpha, "alpha", appConfig.Test.Alpha, "Significance level")
	cmd.Flags().StringVar(&alternative, "alternative", string(appConfig.Test.Alternative), "two-sided, less or greater")
	cmd.Flags().StringVar(&rankTest, "rank-test", string(appConfig.Test.EffectiveRankTest()), "brunner-munzel or mann-whitney")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, markdown, html")
	cmd.Flags().BoolVar(&profile, "profile", false, "Include descriptive group profiles")

	return cmd
}

func newDescribeCmd(appConfig *config.Config) *cobra.Command {
	var (
		split  splitFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "describe [data-file]",
		Short: "Profile every group of the target column",
		Long: `Print per-group count, min, median, max, mean and std, plus shape measures,
normal-aligned percentiles and decile bins in the structured formats.

Example: abtest describe cookie_cats.csv --group version --value sum_gamerounds --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveDataFile(args, appConfig.Data)
			if err != nil {
				return err
			}
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			logger := commandLogger(cmd)
			table, err := dataset.NewDataReader(path).WithLogger(logger).ReadData()
			if err != nil {
				return err
			}
			groups, order, err := dataset.GroupValues(table, split.group, split.value, split.filter(cmd))
			if err != nil {
				return err
			}
			profiles, err := profiling.NewDataProfiler(logger).ProfileGroups(groups, order)
			if err != nil {
				return err
			}
			return report.NewRenderer().RenderProfiles(cmd.OutOrStdout(), profiles, outFormat)
		},
	}

	split.register(cmd, appConfig.Data)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, markdown, html")
	return cmd
}

func newBatchCmd(appConfig *config.Config) *cobra.Command {
	var (
		planPath string
		workers  int
		format   string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate every comparison of a YAML plan in parallel",
		Long: `Run the comparisons listed in a plan file. Failing comparisons are reported
without stopping the rest.

Example: abtest batch --plan plans/cookie_cats.yaml --workers 8 --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			plan, err := batch.LoadPlan(planPath)
			if err != nil {
				return err
			}
			if plan.DataFile == "" {
				plan.DataFile = appConfig.Data.File
			}
			if !cmd.Flags().Changed("workers") && plan.Workers > 0 {
				workers = plan.Workers
			}

			logger := commandLogger(cmd)
			table, err := dataset.NewDataReader(plan.DataFile).WithLogger(logger).ReadData()
			if err != nil {
				return err
			}

			engine := decision.NewEngine(primitives.New(), decision.WithLogger(logger))
			results, err := batch.NewRunner(engine, workers, logger).Run(cmd.Context(), plan.Jobs(table))
			if err != nil {
				return err
			}
			return report.NewRenderer().RenderBatch(cmd.OutOrStdout(), report.FromJobResults(results), outFormat)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Path to the YAML plan")
	cmd.Flags().IntVar(&workers, "workers", appConfig.Batch.Workers, "Maximum parallel evaluations")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, markdown, html")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func newServeCmd(appConfig *config.Config) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := commandLogger(cmd)
			engine := decision.NewEngine(primitives.New(), decision.WithLogger(logger))
			server := api.NewServer(api.Config{
				Port:            port,
				Workers:         appConfig.Batch.Workers,
				ShutdownTimeout: appConfig.Server.ShutdownTimeout,
			}, engine, logger)
			return server.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&port, "port", appConfig.Server.Port, "Listen port")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var (
		out   string
		seed  int64
		size  int
		shift float64
		shape string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic two-group dataset as CSV",
		Long: `Generate reproducible A/B samples for trying the other commands.

Example: abtest generate --out samples.csv --size 200 --shift 1.5 --shape lognormal`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sampleConfig := testkit.DefaultSampleConfig()
			sampleConfig.Seed = seed
			for i := range sampleConfig.Groups {
				sampleConfig.Groups[i].Size = size
				sampleConfig.Groups[i].Shape = testkit.Shape(shape)
			}
			sampleConfig.Groups[1].Mean = sampleConfig.Groups[0].Mean + shift
			if sampleConfig.Groups[0].Shape == testkit.ShapeLogNormal {
				sampleConfig.Groups[0].Std, sampleConfig.Groups[1].Std = 1, 1
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return testkit.NewSampleGenerator(sampleConfig).WriteCSV(w)
		},
	}

	cmd.Flags().StringVar(&out, "out", "-", "Output file, - for stdout")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic output")
	cmd.Flags().IntVar(&size, "size", 150, "Observations per group")
	cmd.Flags().Float64Var(&shift, "shift", 2, "Mean of B minus mean of A")
	cmd.Flags().StringVar(&shape, "shape", string(testkit.ShapeNormal), "normal, lognormal, uniform or outlier")
	return cmd
}
