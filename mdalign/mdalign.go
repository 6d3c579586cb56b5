package mdalign

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/mdalign/cli"
	"github.com/sokinpui/mdalign/internal/align"
	"github.com/sokinpui/mdalign/internal/book"
	"github.com/sokinpui/mdalign/internal/diff"
	"github.com/sokinpui/mdalign/internal/fs"
	"github.com/sokinpui/mdalign/internal/nvim"
	"github.com/sokinpui/mdalign/internal/rewrite"
	"github.com/sokinpui/mdalign/internal/source"
	"github.com/sokinpui/mdalign/internal/state"
	"github.com/sokinpui/mdalign/internal/ui"
	"github.com/sokinpui/mdalign/model"
)

var (
	// ErrUnaligned is returned by --check when a document would be rewritten.
	ErrUnaligned = errors.New("some documents are not aligned")
	// ErrBinaryFile reports a file that contains NUL bytes.
	ErrBinaryFile = errors.New("binary file")
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate = func(current, total int)

// App orchestrates the fmt command.
type App struct {
	cfg              *cli.Config
	engine           *rewrite.Engine
	logger           *log.Logger
	pathResolver     *fs.PathResolver
	sourceProvider   *source.SourceProvider
	stdout           io.Writer
	stateRoot        string
	progressCallback ProgressUpdate
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App. The marker and indent width come from the flags,
// then from book.toml, then from the defaults.
func New(cfg *cli.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bookCfg, err := loadBookConfig(cfg.Book, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Marker != "" {
		bookCfg.Marker = cfg.Marker
	}
	if cfg.IndentWidth > 0 {
		bookCfg.IndentWidth = cfg.IndentWidth
	}

	return &App{
		cfg:            cfg,
		engine:         rewrite.New(bookCfg.Marker, align.Indent(bookCfg.IndentWidth), logger),
		logger:         logger,
		pathResolver:   fs.NewPathResolver(cfg.Extensions),
		sourceProvider: source.New(),
		stdout:         os.Stdout,
	}, nil
}

func loadBookConfig(path string, logger *log.Logger) (book.Config, error) {
	if path != "" {
		return book.LoadConfig(path)
	}
	cfg, found, err := book.LoadNearestConfig(".")
	if err != nil {
		return cfg, err
	}
	if found != "" {
		logger.Debug("using book config", "path", found)
	}
	return cfg, nil
}

// SetProgressCallback sets a function to be called for progress updates.
// It may be called from several goroutines.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// SetOutput redirects what would be printed to stdout.
func (a *App) SetOutput(w io.Writer) {
	a.stdout = w
}

// SetSource replaces where filter-mode content is read from.
func (a *App) SetSource(sp *source.SourceProvider) {
	a.sourceProvider = sp
}

// SetStateRoot keeps the run history under dir instead of the git root.
func (a *App) SetStateRoot(dir string) {
	a.stateRoot = dir
}

// Execute runs the mode selected by the flags.
func (a *App) Execute(ctx context.Context) (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Revert:
		return a.revertLastRun()
	case a.cfg.Redo:
		return a.redoLastRun()
	case len(a.cfg.Paths) == 0:
		return a.filter()
	default:
		return a.formatFiles(ctx)
	}
}

// Plan rewrites every file in memory. Files that cannot be read or parsed
// are returned in failed.
func (a *App) Plan(ctx context.Context, paths []string) (changes []model.FileChange, failed []string, err error) {
	var (
		mu   sync.Mutex
		done int
	)
	total := len(paths)
	a.reportProgress(0, total)

	results := make([]*model.FileChange, total)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			change, err := a.planFile(path)
			if err != nil {
				a.logger.Error("skipping file", "path", path, "err", err)
			}
			mu.Lock()
			results[i] = change
			done++
			a.reportProgress(done, total)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i, change := range results {
		if change == nil {
			failed = append(failed, paths[i])
			continue
		}
		changes = append(changes, *change)
	}
	return changes, failed, nil
}

func (a *App) planFile(path string) (*model.FileChange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(data, 0x00) >= 0 {
		return nil, ErrBinaryFile
	}
	original := string(data)
	edits, err := a.engine.Plan(original)
	if err != nil {
		return nil, err
	}
	return &model.FileChange{
		Path:     path,
		Original: original,
		Content:  rewrite.Apply(original, edits),
		Blocks:   len(edits),
	}, nil
}

func (a *App) reportProgress(current, total int) {
	if a.progressCallback != nil {
		a.progressCallback(current, total)
	}
}

// formatFiles rewrites the files named on the command line.
func (a *App) formatFiles(ctx context.Context) (model.Summary, error) {
	paths, err := a.pathResolver.Resolve(a.cfg.Paths)
	if err != nil {
		return model.Summary{}, err
	}
	if len(paths) == 0 {
		return model.Summary{Message: "No Markdown files found. Nothing to do."}, nil
	}

	changes, failed, err := a.Plan(ctx, paths)
	if err != nil {
		return model.Summary{}, err
	}
	var changed []model.FileChange
	var unchanged []string
	for _, c := range changes {
		if c.Changed() {
			changed = append(changed, c)
		} else {
			unchanged = append(unchanged, c.Path)
		}
	}

	summary := model.Summary{Unchanged: unchanged, Failed: failed}
	switch {
	case a.cfg.Diff:
		err = a.printDiffs(changed)
	case a.cfg.Check:
		err = a.check(changed, &summary)
	case a.cfg.Buffer:
		err = a.applyToBuffers(changed, &summary)
	default:
		err = a.writeFiles(changed, &summary)
	}
	relativizeSummaryPaths(&summary)
	return summary, err
}

func (a *App) printDiffs(changes []model.FileChange) error {
	for _, c := range changes {
		rel := fs.Relativize([]string{c.Path})[0]
		d, err := diff.Unified(rel, c.Original, c.Content)
		if err != nil {
			return err
		}
		fmt.Fprint(a.stdout, ui.ColorDiff(d))
	}
	return nil
}

func (a *App) check(changes []model.FileChange, summary *model.Summary) error {
	for _, c := range changes {
		summary.Modified = append(summary.Modified, c.Path)
	}
	if len(changes) > 0 {
		summary.Message = fmt.Sprintf("%d file(s) would be aligned.", len(changes))
		return ErrUnaligned
	}
	summary.Message = "All files are aligned."
	return nil
}

// applyToBuffers sends the changes to a running Neovim without saving.
func (a *App) applyToBuffers(changes []model.FileChange, summary *model.Summary) error {
	if len(changes) == 0 {
		summary.Message = "All files are aligned. Nothing to do."
		return nil
	}
	manager, err := nvim.New(nvim.Address())
	if err != nil {
		return err
	}
	defer manager.Close()

	total := len(changes)
	a.reportProgress(0, total)
	updated, failed := manager.ApplyChanges(changes, func(current int) {
		a.reportProgress(current, total)
	})
	summary.Modified = updated
	summary.Failed = append(summary.Failed, failed...)
	summary.Message = "Updated Neovim buffers (not saved)."
	return nil
}

// writeFiles saves the changes and records them so the run can be
// reverted.
func (a *App) writeFiles(changes []model.FileChange, summary *model.Summary) error {
	var written []model.FileChange
	for _, c := range changes {
		if err := fs.WriteFile(c.Path, c.Content); err != nil {
			a.logger.Error("write failed", "path", c.Path, "err", err)
			summary.Failed = append(summary.Failed, c.Path)
			continue
		}
		a.logger.Debug("aligned", "path", c.Path, "blocks", c.Blocks)
		written = append(written, c)
		summary.Modified = append(summary.Modified, c.Path)
	}
	if len(written) == 0 {
		return nil
	}
	manager, err := a.stateManager()
	if err != nil {
		return err
	}
	return manager.Write(written)
}

// filter rewrites content from stdin or the clipboard.
func (a *App) filter() (model.Summary, error) {
	origin := a.sourceProvider.Origin()
	content, err := a.sourceProvider.GetContent()
	if err != nil {
		return model.Summary{}, err
	}
	if content == "" {
		return model.Summary{Message: fmt.Sprintf("Nothing to align: %s is empty.", origin)}, nil
	}

	out, err := a.engine.Rewrite(content)
	if err != nil {
		return model.Summary{}, err
	}

	switch {
	case a.cfg.Diff:
		d, err := diff.Unified(origin, content, out)
		if err != nil {
			return model.Summary{}, err
		}
		fmt.Fprint(a.stdout, ui.ColorDiff(d))
		return model.Summary{}, nil
	case a.cfg.Check:
		if out != content {
			return model.Summary{Message: fmt.Sprintf("Content from %s is not aligned.", origin)}, ErrUnaligned
		}
		return model.Summary{Message: fmt.Sprintf("Content from %s is aligned.", origin)}, nil
	case a.cfg.Clipboard:
		if err := a.sourceProvider.CopyToClipboard(out); err != nil {
			return model.Summary{}, err
		}
		return model.Summary{Message: fmt.Sprintf("Aligned content from %s copied to the clipboard.", origin)}, nil
	default:
		fmt.Fprint(a.stdout, out)
		return model.Summary{}, nil
	}
}

func (a *App) stateManager() (*state.Manager, error) {
	var (
		m   *state.Manager
		err error
	)
	if a.stateRoot != "" {
		m, err = state.Open(a.stateRoot)
	} else {
		m, err = state.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	return m, nil
}

// revertLastRun restores the files of the last recorded run.
func (a *App) revertLastRun() (model.Summary, error) {
	manager, err := a.stateManager()
	if err != nil {
		return model.Summary{}, err
	}
	ops, err := manager.GetOperationsToRevert()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No run to revert."}, nil
	}
	summary := a.replay(ops, manager.Revert)
	summary.Message = "Reverted last run."
	return summary, nil
}

// redoLastRun applies the last reverted run again.
func (a *App) redoLastRun() (model.Summary, error) {
	manager, err := a.stateManager()
	if err != nil {
		return model.Summary{}, err
	}
	ops, err := manager.GetOperationsToRedo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No run to redo."}, nil
	}
	summary := a.replay(ops, manager.Redo)
	summary.Message = "Redid last reverted run."
	return summary, nil
}

func (a *App) replay(ops []state.Operation, apply func(state.Operation) error) model.Summary {
	var summary model.Summary
	total := len(ops)
	a.reportProgress(0, total)
	for i, op := range ops {
		if err := apply(op); err != nil {
			a.logger.Warn("skipping file", "path", op.Path, "err", err)
			summary.Failed = append(summary.Failed, op.Path)
		} else {
			summary.Modified = append(summary.Modified, op.Path)
		}
		a.reportProgress(i+1, total)
	}
	relativizeSummaryPaths(&summary)
	return summary
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the current working directory for cleaner display.
func relativizeSummaryPaths(summary *model.Summary) {
	summary.Modified = fs.Relativize(summary.Modified)
	summary.Unchanged = fs.Relativize(summary.Unchanged)
	summary.Failed = fs.Relativize(summary.Failed)
}
