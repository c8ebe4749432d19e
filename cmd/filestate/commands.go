package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Filestate/internal/config"
	"github.com/Ning0612/Filestate/internal/core/checkstore"
	"github.com/Ning0612/Filestate/internal/logger"
	"github.com/Ning0612/Filestate/internal/reconcile"
	"github.com/Ning0612/Filestate/internal/resource"
)

var (
	cfgFile string
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:   "filestate",
		Short: "Converge filesystem entries toward their declared state",
		Long: `Filestate reads a declaration of paths and their desired attributes
(existence, owner, group, mode, content source) and converges the local
filesystem toward it, recording content checksums across runs so drift
can be told apart from a first sighting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}
			return logger.Init(cfg.LoggerConfig())
		},
	}

	applyCmd = &cobra.Command{
		Use:   "apply",
		Short: "Retrieve, compare and converge every declared resource",
		RunE:  runApply,
	}

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would change without touching anything",
		RunE:  runPlan,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default searches standard locations)")
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(planCmd)
}

// buildRun assembles the collaborators one reconciliation pass needs
func buildRun(cmd *cobra.Command) (*reconcile.Reconciler, *checkstore.Store, error) {
	store, err := checkstore.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	rc := resource.NewContext(cmd.Context(), store, logger.Get())
	catalog, err := reconcile.BuildCatalog(rc, cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return reconcile.New(rc, catalog), store, nil
}

func runApply(cmd *cobra.Command, args []string) error {
	rec, store, err := buildRun(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := rec.Run()
	if err != nil {
		return err
	}

	logger.Get().Info("run complete",
		"resources", summary.Resources, "events", len(summary.Events))
	for _, occ := range summary.Events {
		fmt.Printf("%s\t%s\n", occ.Event, occ.Path)
	}
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	rec, store, err := buildRun(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	pending, err := rec.Plan()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("Nothing to change.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tATTRIBUTE\tIS\tSHOULD")
	for _, p := range pending {
		is := p.Is
		if is == "" {
			is = "(absent)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Path, p.Attribute, is, p.Should)
	}
	return w.Flush()
}
