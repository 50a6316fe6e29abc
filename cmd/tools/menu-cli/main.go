// cmd/tools/menu-cli/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"menu-advisor/internal/common/config"
	commonhttp "menu-advisor/internal/common/http"
	"menu-advisor/internal/common/logger"
	"menu-advisor/pkg/registry"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath   string
	registryPath string
	verbose      bool
}

// env is what every subcommand needs from the environment.
type env struct {
	cfg      *config.Config
	log      logger.Logger
	sessions func() *commonhttp.Client
	campuses *registry.Registry
}

func setup(g *globalFlags) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFromFile(g.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	level := "warn"
	if g.verbose {
		level = "debug"
	}

	path := g.registryPath
	if path == "" {
		path = cfg.Campuses.RegistryPath
	}
	campuses := registry.Default()
	if path != "" {
		if campuses, err = registry.LoadRegistry(path); err != nil {
			return nil, err
		}
	}

	return &env{
		cfg: cfg,
		log: logger.NewStructured(level, "console", "stderr"),
		sessions: commonhttp.NewSessionFactory(
			config.GetDuration(cfg.Upstream.RequestTimeout),
			commonhttp.WithUserAgent(cfg.Upstream.UserAgent),
		),
		campuses: campuses,
	}, nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "menu-cli",
		Short:         "Scrape and score the dining hall menu from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default: configs/config.yaml lookup)")
	root.PersistentFlags().StringVar(&g.registryPath, "campuses", "", "campus registry JSON overriding the built-in table")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newAnalyzeCmd(g),
		newExportCmd(g),
		newFormsCmd(g),
		newCampusesCmd(g),
	)
	return root
}

func main() {
	start := time.Now()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v (after %s)\n", err, time.Since(start).Round(time.Millisecond))
		os.Exit(1)
	}
}
