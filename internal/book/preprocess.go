package book

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/mdalign/internal/align"
	"github.com/sokinpui/mdalign/internal/rewrite"
)

// MdbookVersion is the mdBook release line the protocol types follow.
const MdbookVersion = "0.4"

// Preprocessor aligns marked code blocks in every chapter of a book.
type Preprocessor struct {
	Logger *log.Logger
}

// NewPreprocessor returns a Preprocessor logging to logger. A nil logger
// discards output.
func NewPreprocessor(logger *log.Logger) *Preprocessor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Preprocessor{Logger: logger}
}

// Name is the name mdBook knows the preprocessor by.
func (p *Preprocessor) Name() string {
	return PreprocessorName
}

// Handle runs the preprocessor protocol: it reads [context, book] from in
// and writes the processed book to out. Nothing is written on error.
func (p *Preprocessor) Handle(ctx context.Context, in io.Reader, out io.Writer) error {
	bctx, b, err := ParseInput(in)
	if err != nil {
		return &rewrite.ParseError{Err: err}
	}
	if !compatibleVersion(bctx.MdbookVersion) {
		p.Logger.Warn("mdbook version mismatch",
			"preprocessor", p.Name(),
			"built_for", MdbookVersion,
			"called_from", bctx.MdbookVersion)
	}

	cfg, err := ConfigFromContext(bctx)
	if err != nil {
		return err
	}
	if !cfg.SupportsRenderer(bctx.Renderer) {
		p.Logger.Info("renderer not enabled, passing book through", "renderer", bctx.Renderer)
		return Write(out, b)
	}

	p.Logger.Debug("running preprocessor", "root", bctx.Root, "renderer", bctx.Renderer)
	if err := p.Run(ctx, cfg, b); err != nil {
		return err
	}
	return Write(out, b)
}

// Run rewrites the content of every chapter in place. Chapters are
// processed concurrently; the first error cancels the rest and leaves the
// book partially rewritten.
func (p *Preprocessor) Run(ctx context.Context, cfg Config, b *Book) error {
	engine := rewrite.New(cfg.Marker, align.Indent(cfg.IndentWidth), p.Logger)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, chapter := range b.Chapters() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := engine.Rewrite(chapter.Content)
			if err != nil {
				return fmt.Errorf("chapter %q: %w", chapterLabel(chapter), err)
			}
			if out != chapter.Content {
				p.Logger.Debug("chapter aligned", "chapter", chapterLabel(chapter))
			}
			chapter.Content = out
			return nil
		})
	}
	return g.Wait()
}

func chapterLabel(c *Chapter) string {
	if path := c.Path(); path != "" {
		return path
	}
	return c.Name()
}

func compatibleVersion(v string) bool {
	return v == MdbookVersion || strings.HasPrefix(v, MdbookVersion+".")
}
