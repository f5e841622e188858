package toc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/avast/retry-go/v4"
)

// Result describes the outcome of a completed pass
type Result struct {
	// NoOp is set when the document had no headings and was left untouched
	NoOp bool `json:"no_op" yaml:"no_op"`

	// Block is the rendered table of contents, nil on a no-op
	Block *Block `json:"block,omitempty" yaml:"block,omitempty"`

	// RemovedParagraphs counts the paragraphs of the replaced block
	RemovedParagraphs int `json:"removed_paragraphs" yaml:"removed_paragraphs"`

	// Warnings holds the isolated failures of the pass
	Warnings []error `json:"-" yaml:"-"`
}

// Generator runs generation passes, one at a time
type Generator struct {
	options *Options
	logger  *slog.Logger
	mu      sync.Mutex
}

// New creates a generator with the given options
func New(opts ...Option) *Generator {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if options.CommitAttempts == 0 {
		options.CommitAttempts = 1
	}
	return &Generator{options: options, logger: logger}
}

// Options returns the generator's options
func (g *Generator) Options() *Options {
	return g.options
}

// Generate runs one pass over doc: it replaces any previous table of
// contents with one built from the current headings.
//
// A document without headings is left untouched and reported as a no-op.
// Failures that only affect single entries are collected in
// Result.Warnings. Failures that abort the pass are returned as *PassError.
// A call made while another pass is running returns ErrBusy. Invalid
// options fail with ErrInvalidOptions before the document is read.
func (g *Generator) Generate(ctx context.Context, doc Document) (result *Result, err error) {
	if err := g.options.Validate(); err != nil {
		return nil, err
	}
	if !g.mu.TryLock() {
		return nil, ErrBusy
	}
	defer g.mu.Unlock()

	p := &pass{
		g:      g,
		doc:    doc,
		result: &Result{},
	}

	stage := StageIdle
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PassError{Stage: stage, Err: fmt.Errorf("host panic: %v", r)}
		}
		if err != nil {
			g.logger.Error("table of contents generation failed", "error", err)
		}
		g.enter(StageIdle)
	}()

	return p.run(ctx, &stage)
}

func (g *Generator) enter(stage Stage) {
	g.logger.Debug("toc stage", "stage", stage.String())
	if g.options.OnStage != nil {
		g.options.OnStage(stage)
	}
}

// pass holds the state of one generation pass
type pass struct {
	g      *Generator
	doc    Document
	result *Result
}

func (p *pass) run(ctx context.Context, stage *Stage) (*Result, error) {
	opts := p.g.options
	logger := p.g.logger

	enter := func(s Stage) {
		*stage = s
		p.g.enter(s)
	}

	// Scanning
	enter(StageScanning)
	paragraphs, err := p.paragraphs(ctx)
	if err != nil {
		return nil, &PassError{Stage: StageScanning, Err: err}
	}
	anchors := NewAnchorManager(p.doc, opts.AnchorPrefix, logger)
	oldBlock := paragraphs[:FindExistingBlock(paragraphs, opts.Title, anchors.Prefix())]

	// Extracting
	enter(StageExtracting)
	headings := extractHeadingsFrom(paragraphs, len(oldBlock))
	if len(headings) == 0 {
		enter(StageNoHeadings)
		logger.Info("no headings found, document left unchanged", "paragraphs", len(paragraphs))
		p.result.NoOp = true
		return p.result, nil
	}
	logger.Debug("headings extracted", "headings", len(headings), "old_block", len(oldBlock))

	// Anchoring. Bookmarks are committed before any link refers to them.
	enter(StageAnchoring)
	created, warnings := anchors.CreateAll(headings)
	p.warn(warnings...)
	if len(created) > 0 {
		if err := p.commit(ctx); err != nil {
			return nil, &PassError{Stage: StageAnchoring, Err: err}
		}
	}
	entries := BuildOutline(headings, created)

	// Rendering
	enter(StageRendering)
	renderer := NewRenderer(p.doc, opts, logger)
	if len(oldBlock) > 0 {
		p.warn(anchors.DeleteStale(StaleAnchors(oldBlock, anchors.Prefix()))...)
		if err := renderer.Clear(oldBlock); err != nil {
			return nil, &PassError{Stage: StageRendering, Err: err}
		}
	}
	block, warnings, err := renderer.Render(entries)
	p.warn(warnings...)
	if err != nil {
		return nil, &PassError{Stage: StageRendering, Err: err}
	}

	// Committing
	enter(StageCommitting)
	if err := p.commit(ctx); err != nil {
		return nil, &PassError{Stage: StageCommitting, Err: err}
	}
	p.result.Block = block
	p.result.RemovedParagraphs = len(oldBlock)

	// CleaningUp never fails the pass
	if opts.CleanupAnchors && len(anchors.Created()) > 0 {
		enter(StageCleaningUp)
		p.warn(anchors.Cleanup()...)
		if err := p.commit(ctx); err != nil {
			logger.Warn("anchor cleanup not committed", "error", err)
			p.warn(fmt.Errorf("committing anchor cleanup: %w", err))
		}
	}

	logger.Info("table of contents generated",
		"entries", len(entries),
		"replaced", len(oldBlock) > 0,
		"warnings", len(p.result.Warnings))
	return p.result, nil
}

func (p *pass) warn(errs ...error) {
	p.result.Warnings = append(p.result.Warnings, errs...)
}

// paragraphs reads the snapshot within the host timeout
func (p *pass) paragraphs(ctx context.Context) ([]Paragraph, error) {
	tctx, cancel := p.timeout(ctx)
	defer cancel()
	paragraphs, err := p.doc.Paragraphs(tctx)
	if err != nil {
		return nil, fmt.Errorf("listing paragraphs: %w", err)
	}
	return paragraphs, nil
}

// commit applies the queued batch. Each attempt is bounded by the host
// timeout; only timed out attempts are retried.
func (p *pass) commit(ctx context.Context) error {
	opts := p.g.options
	err := retry.Do(
		func() error {
			tctx, cancel := p.timeout(ctx)
			defer cancel()
			return p.doc.Commit(tctx)
		},
		retry.Context(ctx),
		retry.Attempts(opts.CommitAttempts),
		retry.Delay(opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			p.g.logger.Warn("commit timed out, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (p *pass) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.g.options.HostTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.g.options.HostTimeout)
}
