package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/postgres"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/yamlcatalog"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/config"
)

// runMigrate handles "migrate up|down|version".
func runMigrate(args []string) error {
	if len(args) == 0 {
		printHelp()
		return fmt.Errorf("migrate: missing action (up, down or version)")
	}
	action := args[0]

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configFile := fs.String("config", config.DefaultConfigFile, "path to YAML config file")
	dsn := fs.String("dsn", "", "PostgreSQL DSN (overrides config)")
	steps := fs.Int("steps", 1, "migrations to roll back (down only)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.LoadFrom(*configFile, config.DefaultEnvFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dsn != "" {
		cfg.Postgres.DSN = *dsn
	}

	ctx := context.Background()
	switch action {
	case "up":
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
	case "down":
		if *steps < 1 {
			return fmt.Errorf("migrate down: --steps must be >= 1")
		}
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "schema version: %d\n", v)
	return nil
}

// runCatalog handles "catalog check" and "catalog list".
func runCatalog(args []string) error {
	if len(args) == 0 {
		printHelp()
		return fmt.Errorf("catalog: missing action (check or list)")
	}
	action := args[0]

	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	agentsFile := fs.String("agents", "", "agent catalog YAML (default: embedded)")
	chainsFile := fs.String("chains", "", "chain catalog YAML (default: embedded)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cat, err := yamlcatalog.Load(*agentsFile, *chainsFile)
	if err != nil {
		return err
	}

	switch action {
	case "check":
		agentsVersion, chainsVersion := cat.Versions()
		if err := cat.Check(); err != nil {
			fmt.Fprintf(os.Stderr, "catalog invalid (agents v%d, chains v%d):\n%v\n", agentsVersion, chainsVersion, err)
			return fmt.Errorf("catalog check failed")
		}
		fmt.Fprintf(os.Stderr, "catalog ok (agents v%d, chains v%d)\n", agentsVersion, chainsVersion)
		return nil
	case "list":
		return listCatalog(cat)
	default:
		return fmt.Errorf("unknown catalog action: %s", action)
	}
}

func listCatalog(cat *yamlcatalog.Catalog) error {
	ctx := context.Background()
	agents, err := cat.GetAllAgents(ctx)
	if err != nil {
		return err
	}
	chains, err := cat.Chains(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AGENT\tNAME\tCATEGORY\tTIER")
	for i := range agents {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			agents[i].ID, agents[i].DisplayName(), agents[i].Category, agents[i].RequiredTier)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "CHAIN\tTIER\tSTEPS")
	for i := range chains {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			chains[i].ID, chains[i].RequiredTier, strings.Join(chains[i].AgentIDs(), " -> "))
	}
	return w.Flush()
}
