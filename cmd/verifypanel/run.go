package main

import (
	"context"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AaronLay10/verifypanel/internal/logpane"
	"github.com/AaronLay10/verifypanel/internal/prefs"
	"github.com/AaronLay10/verifypanel/internal/sequencer"
	"github.com/AaronLay10/verifypanel/internal/termui"
)

// exitNeedsReview is the exit code of a run that ends needing manual review.
const exitNeedsReview = 3

func runCmd(a *app) *cobra.Command {
	var (
		fast bool
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one check in the terminal",
		Long: `Runs the staged check once without the web page and prints the log
and a summary. Exits 0 when verified and 3 when a manual check is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			theme := loadTheme(ctx, a)
			r := termui.New(cmd.OutOrStdout(), theme)
			pane := logpane.New(logpane.WithPublisher(r), logpane.WithMaxLines(a.cfg.LogMaxLines()))

			timing := a.cfg.Timing()
			if fast {
				timing.StepDelay, timing.SettleDelay = 0, 0
			}
			opts := []sequencer.Option{
				sequencer.WithStages(a.cfg.Stages()),
				sequencer.WithTiming(timing),
				sequencer.WithVerifiedChance(a.cfg.VerifiedChance()),
				sequencer.WithLog(pane),
				sequencer.WithLogger(a.logger),
			}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, sequencer.WithRand(rand.New(rand.NewPCG(seed, seed))))
			}

			ctrl := sequencer.New(opts...)
			res, _ := ctrl.Run()
			r.Print(ctrl.Snapshot(), ctrl.Stages())

			if res.Outcome != sequencer.OutcomeVerified {
				return &exitError{code: exitNeedsReview}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fast, "fast", false, "Skip the progress animation delays")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed the random draws for a reproducible run")
	return cmd
}

// loadTheme reads the stored theme; the terminal falls back to dark when
// the store is unavailable.
func loadTheme(ctx context.Context, a *app) prefs.Theme {
	store, err := prefs.Open(ctx, a.cfg.Preferences, a.cfg.Panel.ID)
	if err != nil {
		a.logger.Debug("preferences unavailable", zap.Error(err))
		return prefs.ThemeDark
	}
	defer store.Close()

	theme, err := prefs.NewThemes(store).Load(ctx)
	if err != nil {
		a.logger.Debug("theme unreadable", zap.Error(err))
	}
	return theme
}
