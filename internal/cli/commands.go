package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nutrition-engine/internal/app"
	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/core/vital"
	"nutrition-engine/internal/infrastructure/database"
)

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the food tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			db, err := database.Open(opts.cfg.Database, opts.cfg.App.Debug)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations completed")
			return nil
		},
	}
}

func newSeedCommand(opts *RootOptions) *cobra.Command {
	var (
		corpus string
		file   string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load food records from a YAML file into a corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			source := food.Source(corpus)
			if source != "" && source != food.SourceRegional && source != food.SourceGeneral {
				return fmt.Errorf("--corpus must be %q or %q", food.SourceRegional, food.SourceGeneral)
			}
			records, err := database.LoadSeedFile(file, source)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			db, err := database.Open(opts.cfg.Database, opts.cfg.App.Debug)
			if err != nil {
				return err
			}
			defer database.Close(db)

			n, err := database.Seed(ctx, db, records)
			if err != nil {
				return err
			}
			if n > 0 {
				source = records[0].Corpus
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d %s foods from %s\n", n, source, file)
			return nil
		},
	}
	cmd.Flags().StringVar(&corpus, "corpus", "", "target corpus: regional|general (default: corpus in file)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newResolveCommand(opts *RootOptions) *cobra.Command {
	var confidence float64
	cmd := &cobra.Command{
		Use:   "resolve NAME",
		Short: "Resolve a food name against the regional and general corpora",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			a, err := app.New(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			req := food.Request{Name: strings.Join(args, " ")}
			if cmd.Flags().Changed("confidence") {
				req.Confidence = &confidence
			}
			res := a.Service.ResolveFood(ctx, req)

			matched := "-"
			if res.Food != nil {
				matched = res.Food.Name
			}
			rows := [][]string{{
				res.Name, string(res.Source), string(res.Tier), matched,
				strconv.FormatFloat(res.Confidence, 'f', 2, 64), strconv.FormatBool(res.RequiresVerification),
			}}
			return opts.print(cmd.OutOrStdout(), res,
				[]string{"CANDIDATE", "SOURCE", "TIER", "MATCH", "CONFIDENCE", "VERIFY"}, rows)
		},
	}
	cmd.Flags().Float64Var(&confidence, "confidence", 0.5, "caller confidence used when no match is accepted")
	return cmd
}

func newVitalCommand(opts *RootOptions) *cobra.Command {
	var readingContext string
	cmd := &cobra.Command{
		Use:   "vital TYPE VALUE [VALUE]",
		Short: "Classify a vital reading (blood pressure takes systolic and diastolic)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := vital.ParseType(args[0])
			if err != nil {
				return err
			}
			c, err := vital.ParseContext(readingContext)
			if err != nil {
				return err
			}
			values := make([]float64, 0, len(args)-1)
			for _, raw := range args[1:] {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return fmt.Errorf("invalid reading %q: %w", raw, err)
				}
				values = append(values, v)
			}

			status, err := vital.Classify(t, values, c)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), status,
				[]string{"TYPE", "LEVEL", "READING"},
				[][]string{{string(status.Type), string(status.Level), status.Describe()}})
		},
	}
	cmd.Flags().StringVar(&readingContext, "context", "", "glucose context: fasting|post_meal|random")
	return cmd
}

func newTargetsCommand(opts *RootOptions) *cobra.Command {
	var (
		conditions []string
		primary    string
		weight     float64
	)
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Compute daily nutrient targets for a set of conditions",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.NewService(opts.cfg, app.Stores{}, nil, nil)
			if err != nil {
				return err
			}
			profile, err := nutrient.ParseProfile(conditions, primary, nil)
			if err != nil {
				return err
			}
			var w *float64
			if cmd.Flags().Changed("weight") {
				w = &weight
			}

			set, err := svc.ComputeNutrientTargets(profile, w)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(set))
			for _, code := range set.Codes() {
				t := set[code]
				rows = append(rows, []string{
					string(t.Nutrient), strconv.FormatFloat(t.Value, 'f', -1, 64), t.Unit,
					string(t.Direction), string(t.Provenance), string(t.Condition),
				})
			}
			return opts.print(cmd.OutOrStdout(), set,
				[]string{"NUTRIENT", "VALUE", "UNIT", "DIRECTION", "PROVENANCE", "CONDITION"}, rows)
		},
	}
	cmd.Flags().StringSliceVar(&conditions, "condition", nil, "condition code, repeatable (e.g. diabetes, ckd:4, ckd5d)")
	cmd.Flags().StringVar(&primary, "primary", "", "primary condition used to break ties")
	cmd.Flags().Float64Var(&weight, "weight", 0, "body weight in kg")
	return cmd
}
