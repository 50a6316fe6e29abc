package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"menu-advisor/internal/common/cache"
	"menu-advisor/internal/common/config"
	"menu-advisor/internal/common/export"
	"menu-advisor/internal/models"
	runanalysis "menu-advisor/internal/workers/analysis/run-analysis"
	formdiscovery "menu-advisor/internal/workers/scrape/form-discovery"
	menuresolve "menu-advisor/internal/workers/scrape/menu-resolve"
	"menu-advisor/pkg/registry"

	"github.com/spf13/cobra"
)

type analysisFlags struct {
	prefs    models.Preferences
	useCache bool
}

func (f *analysisFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.prefs.Campus, "campus", "", "campus profile key (default from config)")
	fs.BoolVar(&f.prefs.Vegetarian, "vegetarian", false, "exclude meat and fish")
	fs.BoolVar(&f.prefs.Vegan, "vegan", false, "exclude all animal products")
	fs.BoolVar(&f.prefs.ExcludeBeef, "exclude-beef", false, "exclude beef dishes")
	fs.BoolVar(&f.prefs.ExcludePork, "exclude-pork", false, "exclude pork dishes")
	fs.BoolVar(&f.prefs.PrioritizeProtein, "prioritize-protein", false, "favor protein over balance")
	fs.BoolVar(&f.useCache, "cache", false, "read and write the configured cache backend")
}

// run executes one analysis with the configured stack.
func (f *analysisFlags) run(cmd *cobra.Command, e *env) (*runanalysis.Output, error) {
	var store cache.Cache = cache.NopCache{}
	if f.useCache {
		c, closeFn, err := cache.Open(cmd.Context(), e.cfg, e.log)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		defer closeFn()
		store = c
	}

	h := runanalysis.Build(e.cfg, e.sessions, e.campuses, store, nil, e.log)
	return h.Execute(cmd.Context(), &runanalysis.Input{Preferences: f.prefs})
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	f := &analysisFlags{}
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print today's top recommendations per meal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(g)
			if err != nil {
				return err
			}
			out, err := f.run(cmd, e)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out.Result)
			}
			printResult(cmd.OutOrStdout(), out)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func printResult(w io.Writer, out *runanalysis.Output) {
	r := out.Result
	fmt.Fprintf(w, "%s, %s (source: %s, scorer: %s", r.Campus, r.Date, r.Source, r.Scorer)
	if out.Cached {
		fmt.Fprint(w, ", cached")
	}
	fmt.Fprintln(w, ")")
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, meal := range models.Meals {
		fmt.Fprintf(tw, "\n%s\n", strings.ToUpper(meal))
		items := r.Meals[meal]
		if len(items) == 0 {
			fmt.Fprintln(tw, "  (nothing matched)")
		}
		for i, it := range items {
			fmt.Fprintf(tw, "  %d.\t%s\t%d\t%s\n", i+1, it.Name, it.Score, it.Reasoning)
		}
	}
	tw.Flush()
}

func newExportCmd(g *globalFlags) *cobra.Command {
	f := &analysisFlags{}
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run an analysis and write it as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(g)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = e.cfg.Export.CSVDir
			}
			out, err := f.run(cmd, e)
			if err != nil {
				return err
			}
			if dir == "-" {
				return export.WriteCSV(cmd.OutOrStdout(), out.Result)
			}
			path, err := export.WriteFile(dir, out.Result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVarP(&dir, "out", "o", "", `output directory, "-" for stdout (default export.csv_dir)`)
	return cmd
}

func newFormsCmd(g *globalFlags) *cobra.Command {
	var campusKey string
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Show the campus, meal and date options the menu site offers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(g)
			if err != nil {
				return err
			}
			up := e.cfg.Upstream
			forms := formdiscovery.NewHandler(
				formdiscovery.LoadConfig(up.MenuURL, up.MaxRetries, config.GetDuration(up.RetryDelay)),
				e.sessions(), e.log,
			)
			out, err := forms.Execute(cmd.Context(), &formdiscovery.Input{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, sel := range []struct {
				kind string
				set  models.OptionSet
			}{
				{"campus", out.Options.Campus},
				{"meal", out.Options.Meal},
				{"date", out.Options.Date},
			} {
				fmt.Fprintf(tw, "%s (field %q)\n", strings.ToUpper(sel.kind), out.Fields[sel.kind])
				for _, o := range sel.set.Options() {
					fmt.Fprintf(tw, "  %s\t%s\n", o.Value, o.Label)
				}
			}
			tw.Flush()

			if campusKey == "" {
				return nil
			}
			resolver := menuresolve.NewHandler(menuresolve.LoadConfig(e.campuses), e.log)
			res, err := resolver.Execute(cmd.Context(), &menuresolve.Input{Options: out.Options, CampusKey: campusKey})
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%s -> campus %s (%s), date %s (%s)\n", campusKey, res.CampusValue, res.CampusLabel, res.DateValue, res.DateLabel)
			for _, warning := range res.Warnings {
				fmt.Fprintf(w, "warning: %s\n", warning)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&campusKey, "resolve", "", "also resolve this campus profile against the options")
	return cmd
}

func newCampusesCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campuses",
		Short: "List campus profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			campuses := registry.Default()
			if g.registryPath != "" {
				var err error
				if campuses, err = registry.LoadRegistry(g.registryPath); err != nil {
					return err
				}
			}
			printCampuses(cmd.OutOrStdout(), campuses)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check a campus registry file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			campuses, err := registry.LoadRegistry(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d profiles\n", args[0], len(campuses.Keys()))
			return nil
		},
	})
	return cmd
}

func printCampuses(w io.Writer, campuses *registry.Registry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tSEARCH TERMS")
	for _, key := range campuses.Keys() {
		p, _ := campuses.Get(key)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Key, p.DisplayName, strings.Join(p.SearchTerms, ", "))
	}
	tw.Flush()
}
