// Package docx2toc generates a linked table of contents in DOCX files
package docx2toc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tenebris-tech/doctoc/docx"
	"github.com/tenebris-tech/doctoc/toc"
)

// DefaultOutputSuffix is inserted before ".docx" in derived output names
const DefaultOutputSuffix = ".toc"

// Converter is the DOCX table of contents generator
type Converter struct {
	options   *Options
	generator *toc.Generator
}

// Options holds configuration for the converter
type Options struct {
	// TOCOptions are passed to the generator
	TOCOptions []toc.Option

	// IndentPoints is the indent per TOC level in points
	IndentPoints float64

	// OutputSuffix is used by OutputPath for derived output names
	OutputSuffix string

	Logger *slog.Logger

	// Callbacks for generation progress
	OnDocumentParsed func()
	OnStylesParsed   func(styleCount int)
	OnStage          func(stage toc.Stage)
}

// Option is a functional option for configuring the converter
type Option func(*Options)

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		IndentPoints: docx.DefaultIndentPoints,
		OutputSuffix: DefaultOutputSuffix,
	}
}

// WithTOCOptions adds generator options
func WithTOCOptions(opts ...toc.Option) Option {
	return func(o *Options) {
		o.TOCOptions = append(o.TOCOptions, opts...)
	}
}

// WithIndentPoints sets the indent per TOC level
func WithIndentPoints(points float64) Option {
	return func(o *Options) {
		o.IndentPoints = points
	}
}

// WithOutputSuffix sets the suffix for derived output names
func WithOutputSuffix(suffix string) Option {
	return func(o *Options) {
		o.OutputSuffix = suffix
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithOnDocumentParsed sets the callback for document parsing
func WithOnDocumentParsed(callback func()) Option {
	return func(o *Options) {
		o.OnDocumentParsed = callback
	}
}

// WithOnStylesParsed sets the callback for styles parsing
func WithOnStylesParsed(callback func(styleCount int)) Option {
	return func(o *Options) {
		o.OnStylesParsed = callback
	}
}

// WithOnStage sets the callback for generation stages
func WithOnStage(callback func(stage toc.Stage)) Option {
	return func(o *Options) {
		o.OnStage = callback
	}
}

// New creates a new Converter with the given options
func New(opts ...Option) *Converter {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	tocOpts := []toc.Option{toc.WithLogger(options.Logger)}
	if options.OnStage != nil {
		tocOpts = append(tocOpts, toc.WithOnStage(options.OnStage))
	}
	tocOpts = append(tocOpts, options.TOCOptions...)

	return &Converter{
		options:   options,
		generator: toc.New(tocOpts...),
	}
}

// Generator returns the underlying generator
func (c *Converter) Generator() *toc.Generator {
	return c.generator
}

// Generate adds or refreshes the table of contents in DOCX data. On a no-op
// the input is returned as is.
func (c *Converter) Generate(ctx context.Context, data []byte) ([]byte, *toc.Result, error) {
	doc, err := c.open(data)
	if err != nil {
		return nil, nil, err
	}

	result, err := c.run(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	if result.NoOp || !doc.Changed() {
		return data, result, nil
	}

	out, err := doc.Bytes()
	if err != nil {
		return nil, nil, fmt.Errorf("writing DOCX: %w", err)
	}
	return out, result, nil
}

// GenerateFile generates the table of contents for a DOCX file and returns
// the resulting package
func (c *Converter) GenerateFile(ctx context.Context, inputPath string) ([]byte, *toc.Result, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading file: %w", err)
	}
	return c.Generate(ctx, data)
}

// GenerateFileToFile generates the table of contents and writes the result
// to outputPath. Nothing is written when the document has no headings.
func (c *Converter) GenerateFileToFile(ctx context.Context, inputPath, outputPath string) (*toc.Result, error) {
	doc, err := c.openFile(inputPath)
	if err != nil {
		return nil, err
	}

	result, err := c.run(ctx, doc)
	if err != nil {
		return nil, err
	}
	if result.NoOp {
		return result, nil
	}

	if err := doc.SaveAs(outputPath); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}
	return result, nil
}

// run executes one pass. After a failure the edits still queued are
// dropped so nothing half-built reaches a later save.
func (c *Converter) run(ctx context.Context, doc *docx.Document) (*toc.Result, error) {
	result, err := c.generator.Generate(ctx, doc)
	if err != nil {
		doc.Discard()
		return nil, err
	}
	return result, nil
}

// Outline returns the entries a pass would render, without editing
func (c *Converter) Outline(ctx context.Context, data []byte) ([]toc.Entry, error) {
	doc, err := c.open(data)
	if err != nil {
		return nil, err
	}

	paragraphs, err := doc.Paragraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing paragraphs: %w", err)
	}

	opts := c.generator.Options()
	skip := toc.FindExistingBlock(paragraphs, opts.Title, opts.AnchorPrefix)
	headings := toc.ExtractHeadings(paragraphs[skip:])
	return toc.BuildOutline(headings, nil), nil
}

// OutlineFile is Outline for a file path
func (c *Converter) OutlineFile(ctx context.Context, inputPath string) ([]toc.Entry, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return c.Outline(ctx, data)
}

// OutputPath derives the output file name for an input path:
// "report.docx" becomes "report.toc.docx"
func (c *Converter) OutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	if ext == "" {
		ext = ".docx"
	}
	return base + c.options.OutputSuffix + ext
}

// OutputSuffix returns the suffix OutputPath inserts
func (c *Converter) OutputSuffix() string {
	return c.options.OutputSuffix
}

func (c *Converter) open(data []byte) (*docx.Document, error) {
	doc, err := docx.Open(data, docx.WithIndentPoints(c.options.IndentPoints))
	if err != nil {
		return nil, err
	}
	c.parsed(doc)
	return doc, nil
}

func (c *Converter) openFile(path string) (*docx.Document, error) {
	doc, err := docx.OpenFile(path, docx.WithIndentPoints(c.options.IndentPoints))
	if err != nil {
		return nil, err
	}
	c.parsed(doc)
	return doc, nil
}

func (c *Converter) parsed(doc *docx.Document) {
	if c.options.OnDocumentParsed != nil {
		c.options.OnDocumentParsed()
	}
	if c.options.OnStylesParsed != nil {
		c.options.OnStylesParsed(len(doc.Styles().Styles))
	}
}
