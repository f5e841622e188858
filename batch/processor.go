// Package batch runs table of contents generation over files and directory
// trees. It wraps docx2toc and adds recursive traversal, output placement
// and skip rules.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tenebris-tech/doctoc/docx2toc"
	"github.com/tenebris-tech/doctoc/toc"
)

// Extension is the file extension processed
const Extension = ".docx"

// Processor handles batch TOC generation
type Processor struct {
	options *Options

	mu        sync.RWMutex
	converter *docx2toc.Converter

	// Track visited directories and files to avoid loops and duplicates
	visitedDirs    map[string]bool
	processedFiles map[string]bool
}

// Options holds configuration for the processor
type Options struct {
	// Recursion enables recursive directory traversal
	Recursion bool

	// SkipExisting skips inputs whose output file already exists (default: true)
	SkipExisting bool

	// InPlace overwrites each input instead of writing a derived file
	InPlace bool

	// OutputDirectory writes all output files to this directory (flat structure)
	// If empty, output files are placed next to source files
	OutputDirectory string

	// ConverterOptions are passed to the DOCX converter
	ConverterOptions []docx2toc.Option

	// OnFileStart is called when starting a file
	OnFileStart func(path string)

	// OnFileComplete is called when a file is done. result is nil on error.
	OnFileComplete func(path, outputPath string, result *toc.Result, err error)

	// OnFileSkipped is called when a file is skipped
	OnFileSkipped func(path, outputPath, reason string)
}

// FileResult is the outcome for one processed file
type FileResult struct {
	Input   string `json:"input" yaml:"input"`
	Output  string `json:"output,omitempty" yaml:"output,omitempty"`
	Entries int    `json:"entries" yaml:"entries"`
	NoOp    bool   `json:"no_op,omitempty" yaml:"no_op,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`

	// Aborted is set when the generation pass itself failed, as opposed to
	// the file not being readable as a document
	Aborted bool `json:"aborted,omitempty" yaml:"aborted,omitempty"`
}

// Result contains the results of a batch run
type Result struct {
	Updated   int          `json:"updated" yaml:"updated"`
	Unchanged int          `json:"unchanged" yaml:"unchanged"`
	Skipped   int          `json:"skipped" yaml:"skipped"`
	Failed    int          `json:"failed" yaml:"failed"`
	Files     []FileResult `json:"files,omitempty" yaml:"files,omitempty"`
	Errors    []error      `json:"-" yaml:"-"`
}

// Option is a functional option for configuring the processor
type Option func(*Options)

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		Recursion:    false,
		SkipExisting: true,
	}
}

// WithRecursion enables or disables recursive directory traversal
func WithRecursion(recursive bool) Option {
	return func(o *Options) {
		o.Recursion = recursive
	}
}

// WithSkipExisting sets whether to skip inputs whose output already exists
func WithSkipExisting(skip bool) Option {
	return func(o *Options) {
		o.SkipExisting = skip
	}
}

// WithInPlace makes the processor overwrite its inputs
func WithInPlace(inPlace bool) Option {
	return func(o *Options) {
		o.InPlace = inPlace
	}
}

// WithOutputDirectory sets the output directory for generated files
func WithOutputDirectory(dir string) Option {
	return func(o *Options) {
		o.OutputDirectory = dir
	}
}

// WithConverterOptions sets options to pass to the DOCX converter
func WithConverterOptions(opts ...docx2toc.Option) Option {
	return func(o *Options) {
		o.ConverterOptions = append(o.ConverterOptions, opts...)
	}
}

// WithOnFileStart sets the callback for when a file starts
func WithOnFileStart(callback func(path string)) Option {
	return func(o *Options) {
		o.OnFileStart = callback
	}
}

// WithOnFileComplete sets the callback for when a file completes
func WithOnFileComplete(callback func(path, outputPath string, result *toc.Result, err error)) Option {
	return func(o *Options) {
		o.OnFileComplete = callback
	}
}

// WithOnFileSkipped sets the callback for when a file is skipped
func WithOnFileSkipped(callback func(path, outputPath, reason string)) Option {
	return func(o *Options) {
		o.OnFileSkipped = callback
	}
}

// New creates a new Processor with the given options
func New(opts ...Option) *Processor {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Processor{
		options:        options,
		converter:      docx2toc.New(options.ConverterOptions...),
		visitedDirs:    make(map[string]bool),
		processedFiles: make(map[string]bool),
	}
}

// SetConverterOptions replaces the converter options. A running Process
// picks them up at the next file; the file in progress keeps the options
// it started with.
func (p *Processor) SetConverterOptions(opts ...docx2toc.Option) {
	converter := docx2toc.New(opts...)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.options.ConverterOptions = opts
	p.converter = converter
}

func (p *Processor) currentConverter() *docx2toc.Converter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.converter
}

// Process generates tables of contents for a file or directory.
// A directory requires Recursion. Cancelling ctx stops before the next file.
func (p *Processor) Process(ctx context.Context, path string) (*Result, error) {
	// Reset tracking maps for each call
	p.visitedDirs = make(map[string]bool)
	p.processedFiles = make(map[string]bool)

	result := &Result{}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}

	if p.options.OutputDirectory != "" && !p.options.InPlace {
		if err := os.MkdirAll(p.options.OutputDirectory, 0755); err != nil {
			return nil, fmt.Errorf("cannot create output directory: %w", err)
		}
	}

	if info.IsDir() {
		if !p.options.Recursion {
			return nil, fmt.Errorf("%s is a directory; use WithRecursion(true) to process directories", path)
		}
		p.walkDir(ctx, path, result)
	} else {
		p.processFile(ctx, path, result)
	}

	return result, ctx.Err()
}

// walkDir recursively walks a directory, following symlinks
func (p *Processor) walkDir(ctx context.Context, dir string, result *Result) {
	if ctx.Err() != nil {
		return
	}

	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		p.fail(result, FileResult{Input: dir}, fmt.Errorf("cannot resolve %s: %w", dir, err))
		return
	}
	if p.visitedDirs[realDir] {
		return
	}
	p.visitedDirs[realDir] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		p.fail(result, FileResult{Input: dir}, fmt.Errorf("cannot read directory %s: %w", dir, err))
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(dir, entry.Name())

		info, err := os.Stat(path)
		if err != nil {
			// Only count as failure if it looks like a document
			if p.isCandidate(path) {
				p.fail(result, FileResult{Input: path}, fmt.Errorf("cannot access %s: %w", path, err))
			}
			continue
		}

		if info.IsDir() {
			p.walkDir(ctx, path, result)
		} else {
			p.processFile(ctx, path, result)
		}
	}
}

// processFile handles a single file if it is a candidate document
func (p *Processor) processFile(ctx context.Context, path string, result *Result) {
	if !p.isCandidate(path) {
		return
	}
	converter := p.currentConverter()

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		p.fail(result, FileResult{Input: path}, fmt.Errorf("cannot resolve %s: %w", path, err))
		return
	}
	if p.processedFiles[realPath] {
		return
	}
	p.processedFiles[realPath] = true

	outputPath, skip, reason := p.getOutputPath(converter, realPath)
	if skip {
		if p.options.OnFileSkipped != nil {
			p.options.OnFileSkipped(realPath, outputPath, reason)
		}
		result.Skipped++
		return
	}

	if p.options.OnFileStart != nil {
		p.options.OnFileStart(realPath)
	}

	tocResult, genErr := converter.GenerateFileToFile(ctx, realPath, outputPath)

	if p.options.OnFileComplete != nil {
		p.options.OnFileComplete(realPath, outputPath, tocResult, genErr)
	}

	file := FileResult{Input: realPath}
	switch {
	case genErr != nil:
		file.Aborted = toc.IsTerminal(genErr)
		p.fail(result, file, fmt.Errorf("%s: %w", realPath, genErr))
	case tocResult.NoOp:
		file.NoOp = true
		result.Unchanged++
		result.Files = append(result.Files, file)
	default:
		file.Output = outputPath
		if tocResult.Block != nil {
			file.Entries = len(tocResult.Block.Entries)
		}
		result.Updated++
		result.Files = append(result.Files, file)
	}
}

func (p *Processor) fail(result *Result, file FileResult, err error) {
	file.Error = err.Error()
	result.Failed++
	result.Errors = append(result.Errors, err)
	result.Files = append(result.Files, file)
}

// isCandidate reports whether path is a document to process. Word lock
// files and this tool's own outputs are not.
func (p *Processor) isCandidate(path string) bool {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), Extension) {
		return false
	}
	if strings.HasPrefix(name, "~$") {
		return false
	}
	if p.options.InPlace {
		return true
	}
	derived := strings.ToLower(p.currentConverter().OutputSuffix() + Extension)
	return !strings.HasSuffix(strings.ToLower(name), derived)
}

// getOutputPath determines the output path for a given input file.
// Returns the output path, whether to skip the file, and the skip reason.
func (p *Processor) getOutputPath(converter *docx2toc.Converter, inputPath string) (string, bool, string) {
	if p.options.InPlace {
		return inputPath, false, ""
	}

	outputPath := converter.OutputPath(inputPath)
	if p.options.OutputDirectory != "" {
		outputPath = filepath.Join(p.options.OutputDirectory, filepath.Base(outputPath))
	}

	if _, err := os.Stat(outputPath); err == nil {
		if p.options.SkipExisting {
			return outputPath, true, "output file exists"
		}
		outputPath = findUniquePath(outputPath, converter.OutputSuffix())
	}

	return outputPath, false, ""
}

// findUniquePath finds a free output path by numbering the name. The number
// goes before the output suffix so the result still reads as an output:
// "a.toc.docx" becomes "a-1.toc.docx".
func findUniquePath(basePath, suffix string) string {
	ext := filepath.Ext(basePath)
	name := strings.TrimSuffix(basePath, ext)
	if suffix != "" && strings.HasSuffix(name, suffix) {
		name = strings.TrimSuffix(name, suffix)
	} else {
		suffix = ""
	}

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s%s", name, i, suffix, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
