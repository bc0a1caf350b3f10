// Package analysis runs the per-unit work of a run concurrently and folds
// the results into one dependency graph.
//
// Each unit goes through extraction, resolution and usage analysis on a
// worker goroutine. Finished units are sent over a channel to a single
// aggregator goroutine, the only writer of the graph.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-find-imports/internal/log"
	"github.com/l3aro/go-find-imports/internal/scanner"
	"github.com/l3aro/go-find-imports/pkg/extractor"
	"github.com/l3aro/go-find-imports/pkg/graph"
	"github.com/l3aro/go-find-imports/pkg/resolver"
	"github.com/l3aro/go-find-imports/pkg/types"
	"github.com/l3aro/go-find-imports/pkg/usage"
)

// Options configures a Pipeline.
type Options struct {
	// Workers bounds the units processed at once. Zero selects GOMAXPROCS.
	Workers int
	// MaxDepth excludes records nested this deep or deeper from resolution
	// and usage analysis. Zero means unlimited.
	MaxDepth int
	// IgnoreStdlib drops records naming standard library modules.
	IgnoreStdlib bool
	Logger       log.Logger
	// ReadFile loads a unit as UTF-8 text. Nil selects scanner.ReadSource.
	ReadFile func(path string) ([]byte, error)
}

// Pipeline processes a corpus against one resolver.
type Pipeline struct {
	lookup  resolver.Lookup
	opts    Options
	parsers sync.Pool
}

// New creates a pipeline resolving imports through lookup.
func New(lookup resolver.Lookup, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.ReadFile == nil {
		opts.ReadFile = scanner.ReadSource
	}

	p := &Pipeline{lookup: lookup, opts: opts}
	// Tree-sitter parsers are not safe for concurrent use; each worker
	// borrows one.
	p.parsers.New = func() any {
		return extractor.NewPythonImportParser(opts.Logger)
	}
	return p
}

type unitMessage struct {
	index  int
	result types.UnitResult
}

// Run processes every path and returns the assembled result. Units keep
// the order of paths. Unit failures are recorded, not returned; the error
// is only set when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()

	units := make([]types.UnitResult, len(paths))
	g := graph.New()
	messages := make(chan unitMessage, p.opts.Workers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range messages {
			units[msg.index] = msg.result
			g.AddUnit(msg.result)
		}
	}()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.Workers)
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			res := p.processUnit(egCtx, path)
			select {
			case messages <- unitMessage{index: i, result: res}:
				return nil
			case <-egCtx.Done():
				return egCtx.Err()
			}
		})
	}
	err := eg.Wait()
	close(messages)
	<-done

	if err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	result := &Result{Units: units, Graph: g}
	result.Diagnostics = collectDiagnostics(p.lookup.Diagnostics(), units)

	p.opts.Logger.Debug("analysis complete",
		"units", len(units),
		"modules", g.Len(),
		"edges", g.EdgeCount(),
		"diagnostics", len(result.Diagnostics),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return result, nil
}

// processUnit extracts, resolves and analyzes one unit. It never fails;
// problems end up in the unit's diagnostics.
func (p *Pipeline) processUnit(ctx context.Context, path string) types.UnitResult {
	from := p.lookup.Importer(path)
	res := types.UnitResult{Path: path, Module: from.Module, IsPackage: from.IsPackage}

	content, err := p.opts.ReadFile(path)
	if err != nil {
		res.ParseError = err.Error()
		res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
			Kind:    types.DiagRead,
			Unit:    path,
			Message: err.Error(),
		})
		p.opts.Logger.Warn("cannot read unit", "path", path, "error", err)
		return res
	}

	parser := p.parsers.Get().(*extractor.PythonImportParser)
	unit, err := parser.Parse(ctx, path, content)
	p.parsers.Put(parser)
	if err != nil {
		res.ParseError = err.Error()
		diag := types.Diagnostic{Kind: types.DiagParse, Unit: path, Message: err.Error()}
		var syntaxErr *extractor.SyntaxError
		if errors.As(err, &syntaxErr) {
			diag.Line = syntaxErr.Line
			diag.Message = extractor.ErrSyntax.Error()
		}
		res.Diagnostics = append(res.Diagnostics, diag)
		p.opts.Logger.Debug("unit skipped", "path", path, "error", err)
		return res
	}
	defer unit.Close()

	res.Records = p.filterRecords(unit.Records)

	depth := usage.Options{MaxDepth: p.opts.MaxDepth}
	warned := make(map[string]struct{})
	for _, rec := range res.Records {
		if !depth.InDepth(rec.Depth) {
			continue
		}
		resolved := p.lookup.Resolve(from, rec)
		res.Imports = append(res.Imports, types.ResolvedImport{Record: rec, Resolution: resolved})
		if resolved.Resolved() {
			continue
		}

		// One diagnostic per name and line, even when a statement imports
		// several names from the same missing module.
		key := fmt.Sprintf("%d:%s", rec.Line, resolved.UnresolvedReason)
		if _, ok := warned[key]; ok {
			continue
		}
		warned[key] = struct{}{}
		res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
			Kind:    types.DiagUnresolved,
			Unit:    path,
			Line:    rec.Line,
			Message: resolved.UnresolvedReason,
		})
	}

	res.Findings = usage.Analyze(unit, depth)
	return res
}

func (p *Pipeline) filterRecords(records []types.ImportRecord) []types.ImportRecord {
	if !p.opts.IgnoreStdlib {
		return records
	}
	kept := records[:0:0]
	for _, rec := range records {
		if !rec.IsRelative() && resolver.IsStdlib(rec.ImportedName) {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func collectDiagnostics(global []types.Diagnostic, units []types.UnitResult) []types.Diagnostic {
	out := append([]types.Diagnostic{}, global...)
	for _, u := range units {
		out = append(out, u.Diagnostics...)
	}
	return out
}
