package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-find-imports/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize gfi configuration interactively",
		Long: `Guides you through setting up gfi configuration step by step.
Creates a config file with the module search path, ignored names and
analysis limits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd)
		},
	}
}

func validateCount(s string) error {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("enter a non-negative number")
	}
	return nil
}

func runInit(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	cfg := config.DefaultConfig()

	// === SECTION 1: Module search ===
	searchPath := strings.Join(cfg.SearchPath, string(os.PathListSeparator))
	ignore := strings.Join(cfg.Ignore, ",")
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Module search path").
				Description(fmt.Sprintf("Directories and zip archives searched for modules outside the analyzed files, separated by %q", os.PathListSeparator)).
				Placeholder("/usr/lib/python3/dist-packages").
				Value(&searchPath),
			huh.NewInput().
				Title("Ignored names").
				Description("Comma separated file and directory names skipped while scanning").
				Placeholder("venv").
				Value(&ignore),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Limits ===
	maxDepth := strconv.Itoa(cfg.MaxDepth)
	workers := strconv.Itoa(cfg.Workers)
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Maximum import depth").
				Description("Imports nested this deep or deeper are ignored (0 = no limit)").
				Value(&maxDepth).
				Validate(validateCount),
			huh.NewInput().
				Title("Workers").
				Description("Files analyzed concurrently (0 = one per CPU)").
				Value(&workers).
				Validate(validateCount),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.gfi/config.yaml)", "global"),
					huh.NewOption("Project (./.gfi/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigFilePath()
	if saveLocationChoice == "global" {
		configPath = config.GlobalConfigFilePath()
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	cfg.SearchPath = nil
	for _, entry := range filepath.SplitList(searchPath) {
		if entry = strings.TrimSpace(entry); entry != "" {
			cfg.SearchPath = append(cfg.SearchPath, entry)
		}
	}
	cfg.Ignore = nil
	for _, name := range strings.Split(ignore, ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Ignore = append(cfg.Ignore, name)
		}
	}
	cfg.MaxDepth, _ = strconv.Atoi(maxDepth)
	cfg.Workers, _ = strconv.Atoi(workers)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Fprintln(out, "\n=== Configuration Preview ===")
	fmt.Fprintf(out, "Config path: %s\n", configPath)
	fmt.Fprintf(out, "Search path: %s\n", strings.Join(cfg.SearchPath, ", "))
	fmt.Fprintf(out, "Ignore: %s\n", strings.Join(cfg.Ignore, ", "))
	fmt.Fprintf(out, "Max depth: %d\n", cfg.MaxDepth)
	fmt.Fprintf(out, "Workers: %d\n", cfg.Workers)
	fmt.Fprintln(out, "================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Configuration saved to: %s\n", configPath)

	for _, entry := range cfg.SearchPath {
		if _, err := os.Stat(entry); err != nil {
			fmt.Fprintf(out, "warning: search path entry %s does not exist\n", entry)
		}
	}
	return nil
}
