package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-find-imports/internal/config"
	"github.com/l3aro/go-find-imports/internal/log"
	"github.com/l3aro/go-find-imports/internal/scanner"
	"github.com/l3aro/go-find-imports/pkg/analysis"
	"github.com/l3aro/go-find-imports/pkg/cache"
	"github.com/l3aro/go-find-imports/pkg/extractor"
	"github.com/l3aro/go-find-imports/pkg/graph"
	"github.com/l3aro/go-find-imports/pkg/output"
	"github.com/l3aro/go-find-imports/pkg/resolver"
	"github.com/l3aro/go-find-imports/pkg/types"
)

type action string

const (
	actionImports action = "imports"
	actionDot     action = "dot"
	actionNames   action = "names"
	actionUnused  action = "unused"
	actionCSV     action = "csv"
	actionJSON    action = "json"
)

var actions = []action{actionImports, actionDot, actionNames, actionUnused, actionCSV, actionJSON}

// rootOptions holds the command-line flags of one invocation.
type rootOptions struct {
	selected map[action]*bool

	all              bool
	duplicate        bool
	verbose          bool
	ignoreStdlib     bool
	noext            bool
	hideUnresolved   bool
	packages         bool
	packageExternals bool
	level            int
	collapse         bool
	tests            bool
	writeCache       string
	ignore           []string
	rmprefix         []string
	depth            int
	attrs            []string
	searchPath       []string
	workers          int
	configPath       string
	jsonLogs         bool
	stats            bool
}

// action returns the single selected action; imports is the default.
func (o *rootOptions) action() (action, error) {
	var chosen []action
	for _, a := range actions {
		if *o.selected[a] {
			chosen = append(chosen, a)
		}
	}
	switch len(chosen) {
	case 0:
		return actionImports, nil
	case 1:
		return chosen[0], nil
	default:
		return "", usageErrorf("only one action can be given, got --%s and --%s", chosen[0], chosen[1])
	}
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the gfi command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{selected: make(map[action]*bool)}

	cmd := &cobra.Command{
		Use:   "gfi [action] [options] [filename|dirname ...]",
		Short: "go-find-imports - Python module import analysis",
		Long: `go-find-imports finds the imports of Python modules, reports names that
are imported but never used, and draws the dependency graph of modules and
packages.

Exactly one action is performed (default: --imports). Arguments are files,
directories (scanned recursively) or import caches written by --write-cache.
The default argument is the current directory.

Exit status is 0 on success, 1 when a source file could not be parsed and
2 on invalid invocation.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.action(); err != nil {
				return err
			}
			if opts.packages && opts.packageExternals {
				return usageErrorf("only one of --packages and --package-externals can be provided")
			}
			if opts.level < 0 {
				return usageErrorf("--level must be non-negative")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts, args)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	f := cmd.Flags()
	opts.selected[actionImports] = f.BoolP("imports", "i", false, "print dependency graph (default action)")
	opts.selected[actionDot] = f.BoolP("dot", "d", false, "print dependency graph in dot (graphviz) format")
	opts.selected[actionNames] = f.BoolP("names", "n", false, "print all imported names of each module")
	opts.selected[actionUnused] = f.BoolP("unused", "u", false, "print unused imports")
	opts.selected[actionCSV] = f.Bool("csv", false, "print every resolved import as a CSV row")
	opts.selected[actionJSON] = f.Bool("json", false, "print modules, edges, imports and diagnostics as JSON")

	f.BoolVarP(&opts.all, "all", "a", false, "don't ignore unused imports when there's a comment on the same line (only affects --unused)")
	f.BoolVar(&opts.duplicate, "duplicate", false, "warn about duplicate imports")
	f.BoolVar(&opts.ignoreStdlib, "ignore-stdlib", false, "ignore the imports of modules from the Python standard library")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print more information (debug logs, previous import locations with --duplicate)")
	f.BoolVarP(&opts.noext, "noext", "N", false, "omit external dependencies")
	f.BoolVar(&opts.hideUnresolved, "hide-unresolved", false, "omit imports that could not be resolved from the graph")
	f.BoolVarP(&opts.packages, "packages", "p", false, "convert the module graph to a package graph")
	f.BoolVarP(&opts.packageExternals, "package-externals", "E", false, "convert external modules to packages")
	f.IntVarP(&opts.level, "level", "l", 0, "collapse subpackages to the topmost Nth levels (with --packages); 0 means top-level packages")
	f.BoolVarP(&opts.collapse, "collapse", "c", false, "collapse dependency cycles")
	f.BoolVarP(&opts.tests, "tests", "T", false, "collapse packages named 'tests' and 'ftests' with parent packages")
	f.StringVarP(&opts.writeCache, "write-cache", "w", "", "write a cache of parsed imports to `FILE`"+cache.Extension)
	f.StringSliceVarP(&opts.ignore, "ignore", "I", nil, "ignore a file or directory name; repeatable (default [venv])")
	f.StringSliceVarP(&opts.rmprefix, "rmprefix", "R", nil, "remove `PREFIX` and the following dot from displayed node names")
	f.IntVarP(&opts.depth, "depth", "D", 0, "maximum import nesting depth; 0 means no limit")
	f.StringArrayVarP(&opts.attrs, "attr", "A", nil, `add dot graph attributes, e.g. "rankdir=TB"`)
	f.StringSliceVarP(&opts.searchPath, "search-path", "S", nil, "directories and zip archives searched for modules outside the corpus")
	f.IntVarP(&opts.workers, "workers", "j", 0, "number of files analyzed concurrently; 0 uses every CPU")
	f.StringVar(&opts.configPath, "config", "", "config file path (default: ~/.gfi/config.yaml then ./.gfi/config.yaml)")
	f.BoolVar(&opts.jsonLogs, "json-logs", false, "write logs as JSON")
	f.BoolVar(&opts.stats, "stats", false, "print a summary table to stderr")

	cmd.AddCommand(newInitCmd())
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := RootCmd.Execute()
	if err != nil && !errors.Is(err, ErrUnitsFailed) {
		fmt.Fprintf(RootCmd.ErrOrStderr(), "gfi: %v\n", err)
		var usage *UsageError
		if errors.As(err, &usage) {
			fmt.Fprintln(RootCmd.ErrOrStderr(), `Run "gfi --help" for usage.`)
		}
	}
	return ExitCode(err)
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &UsageError{Err: fmt.Errorf("loading config: %w", err)}
	}

	flags := cmd.Flags()
	if flags.Changed("ignore") {
		cfg.Ignore = opts.ignore
	}
	if flags.Changed("depth") {
		cfg.MaxDepth = opts.depth
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("search-path") {
		cfg.SearchPath = opts.searchPath
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if flags.Changed("json-logs") {
		cfg.JSONLogs = opts.jsonLogs
	}
	cfg.DotAttributes = append(cfg.DotAttributes, opts.attrs...)

	if err := cfg.Validate(); err != nil {
		return nil, &UsageError{Err: err}
	}
	return cfg, nil
}

func runRoot(cmd *cobra.Command, opts *rootOptions, args []string) error {
	start := time.Now()
	act, _ := opts.action()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	logger := log.New(log.LoggerConfig{Level: level, JSONOutput: cfg.JSONLogs, Stderr: cmd.ErrOrStderr()})

	var sources, caches []string
	for _, arg := range args {
		if cache.IsCacheFile(arg) {
			caches = append(caches, arg)
		} else {
			sources = append(sources, arg)
		}
	}
	if len(args) == 0 {
		sources = []string{"."}
	}

	cached, err := cache.LoadFiles(caches)
	if err != nil {
		return &UsageError{Err: err}
	}

	res := analysis.Assemble(cached)
	var sourceBytes uint64
	if len(sources) > 0 {
		registry := extractor.NewLanguageRegistry(cfg.Extensions...)
		sc := scanner.New(scanner.Options{
			Ignore:         cfg.Ignore,
			SkipHidden:     true,
			IgnoreFileName: ".gfiignore",
			Registry:       registry,
			Logger:         logger,
		})
		files, err := sc.ScanAll(sources)
		if err != nil {
			return &UsageError{Err: err}
		}
		for _, f := range files {
			sourceBytes += uint64(f.Size)
		}
		paths := scanner.Paths(files)

		r, err := resolver.New(resolver.NewCorpus(paths, registry), resolver.Config{
			SearchPath: cfg.SearchPath,
			CacheSize:  cfg.CacheSize,
			Registry:   registry,
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		pipeline := analysis.New(r, analysis.Options{
			Workers:      cfg.Workers,
			MaxDepth:     cfg.MaxDepth,
			IgnoreStdlib: opts.ignoreStdlib,
			Logger:       logger,
		})
		scanned, err := pipeline.Run(cmd.Context(), paths)
		if err != nil {
			return err
		}
		res = merge(res, scanned, r.Diagnostics())
	}

	if opts.writeCache != "" {
		if err := cache.SaveFile(opts.writeCache, res.Units); err != nil {
			return err
		}
		logger.Debug("import cache written", "path", opts.writeCache, "units", len(res.Units))
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if act != actionJSON {
		if err := output.WriteDiagnostics(stderr, res.Diagnostics); err != nil {
			return err
		}
	}
	if opts.duplicate {
		if err := output.WriteDuplicates(stderr, res.Units, cfg.Verbose); err != nil {
			return err
		}
	}

	g := project(res.Graph, opts)
	if err := present(stdout, act, g, res, cfg, opts); err != nil {
		return err
	}

	if opts.stats {
		summary := output.Summarize(res.Units, g)
		summary.SourceBytes = sourceBytes
		summary.Elapsed = time.Since(start)
		if err := output.WriteSummary(stderr, summary); err != nil {
			return err
		}
	}

	if res.Failed() {
		return ErrUnitsFailed
	}
	return nil
}

// merge appends freshly analyzed units to ones loaded from caches.
func merge(cached, scanned *analysis.Result, global []types.Diagnostic) *analysis.Result {
	if len(cached.Units) == 0 {
		return scanned
	}
	units := append(append([]types.UnitResult{}, cached.Units...), scanned.Units...)
	return analysis.Assemble(units, global...)
}

// project applies the graph transformations selected by flags, in the
// order packages, tests, cycles, prefixes, filters.
func project(g *graph.Graph, opts *rootOptions) *graph.Graph {
	switch {
	case opts.packages:
		g = g.ProjectToPackages(opts.level)
	case opts.packageExternals:
		g = g.ProjectExternalOnly(opts.level)
	}
	if opts.tests {
		g = g.CollapseTests()
	}
	if opts.collapse {
		g = g.CollapseCycles()
	}
	if len(opts.rmprefix) > 0 {
		g = g.StripPrefix(opts.rmprefix)
	}
	if opts.noext {
		g = g.FilterExternal()
	}
	if opts.hideUnresolved {
		g = g.FilterUnresolved(false)
	}
	return g
}

func present(w io.Writer, act action, g *graph.Graph, res *analysis.Result, cfg *config.Config, opts *rootOptions) error {
	switch act {
	case actionDot:
		return output.WriteDot(w, g, cfg.DotAttributes)
	case actionNames:
		return output.WriteNames(w, res.Units)
	case actionUnused:
		return output.WriteUnused(w, res.Units, opts.all)
	case actionCSV:
		return output.WriteCSV(w, res.Units)
	case actionJSON:
		return output.WriteJSON(w, output.NewDocument(g, res.Units, res.Diagnostics))
	default:
		return output.WriteImports(w, g)
	}
}
