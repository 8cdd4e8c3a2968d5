// =============================================================================
// Model Merger - Merge Pipeline
// =============================================================================
//
// This module orchestrates one merge run over one uploaded workbook.
//
// MERGE PIPELINE:
//   1. Read the first sheet of the workbook into a raw table
//   2. Classify columns into identifier / quantity / price / amount roles
//   3. Validate the run options against the detected columns
//   4. Normalize: forward-fill identifiers, coerce numeric columns
//   5. Aggregate: group, reduce, filter, sort
//   6. Summarize the aggregated rows
//
// Exporting the result is a separate step (Export) so that callers can show
// the result first and write files only on request.
//
// A run is synchronous and shares nothing with other runs.
//
// =============================================================================

package merger

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/model-merger/internal/aggregator"
	"github.com/ginjaninja78/model-merger/internal/classifier"
	"github.com/ginjaninja78/model-merger/internal/config"
	"github.com/ginjaninja78/model-merger/internal/normalizer"
	"github.com/ginjaninja78/model-merger/internal/report"
	"github.com/ginjaninja78/model-merger/internal/sqlitewriter"
	"github.com/ginjaninja78/model-merger/internal/types"
	"github.com/ginjaninja78/model-merger/internal/validation"
	"github.com/ginjaninja78/model-merger/internal/xlsxparser"
	"github.com/ginjaninja78/model-merger/internal/xlsxwriter"
	"github.com/ginjaninja78/model-merger/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one merge run.
type Result struct {
	// Source names the input (file path or "stdin").
	Source string

	// Raw is the table as read from the workbook.
	Raw *types.Table

	// Roles are the resolved role columns (detection plus overrides).
	Roles types.ColumnRoles

	// Normalized is Raw after forward-fill and numeric coercion.
	// Nil if the run stopped before normalization.
	Normalized *types.Table

	// Rows is the aggregated, filtered and sorted result. It may be empty
	// on success.
	Rows []types.AggregatedRow

	// Layout is the column layout used to display and export Rows.
	Layout report.Layout

	// Summary holds the metrics over Rows.
	Summary types.Summary

	// Warnings are non-fatal problems with the run options.
	Warnings []*validation.ValidationError

	// Success indicates whether every step completed.
	Success bool

	// Error contains the error if the run failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about one run.
type ProcessingStats struct {
	// RowsRead is the number of non-empty data rows in the sheet.
	RowsRead int

	// RowsSkipped is the number of rows left without an identifier after
	// forward-fill. They do not contribute to any group.
	RowsSkipped int

	// IdentifiersFilled is the number of identifiers copied from a row above.
	IdentifiersFilled int

	// NumericFallbacks is the number of quantity, price or amount cells
	// that were blank or did not parse and were counted as 0.
	NumericFallbacks int

	// Groups is the number of aggregated rows after filtering.
	Groups int

	// ProcessingTime is the time taken by Run.
	ProcessingTime time.Duration
}

// =============================================================================
// MERGER STRUCTURE
// =============================================================================

// Merger runs the pipeline for a single input.
type Merger struct {
	source     io.Reader
	sourceName string
	cfg        *config.MainConfig
	opts       config.RunOptions
	logger     Logger
}

// New creates a Merger.
//
// PARAMETERS:
//   - source: The workbook bytes.
//   - sourceName: Used in logs and errors; also the {original} file-name placeholder.
//   - cfg: The loaded configuration. Nil means config.Default().
//   - opts: The run options; see config.NewRunOptions.
//   - logger: Nil logs nothing.
func New(source io.Reader, sourceName string, cfg *config.MainConfig, opts config.RunOptions, logger Logger) *Merger {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = NewZapLogger(nil)
	}
	return &Merger{
		source:     source,
		sourceName: sourceName,
		cfg:        cfg,
		opts:       opts,
		logger:     logger,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Detect runs only the read and classify steps.
func (m *Merger) Detect() Result {
	result := Result{Source: m.sourceName}
	if !m.readAndClassify(&result) {
		return result
	}
	result.Success = true
	return result
}

// Run executes the merge pipeline. The source is consumed; a Merger runs
// once.
func (m *Merger) Run() (result Result) {
	startTime := time.Now()
	result.Source = m.sourceName
	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	// =========================================================================
	// STEPS 1-2: READ AND CLASSIFY
	// =========================================================================

	if !m.readAndClassify(&result) {
		return result
	}

	// =========================================================================
	// STEP 3: VALIDATE RUN OPTIONS
	// =========================================================================
	// Option problems (unknown sort key, broken filter expression) are
	// reported before any data is touched.

	validationResult := validation.NewResult(validation.ValidateRun(result.Raw.Columns, result.Roles, m.opts))
	result.Warnings = validationResult.Warnings()
	for _, w := range result.Warnings {
		m.logger.Warn("%s", w.Error())
	}
	if err := validationResult.Err(); err != nil {
		result.Error = fmt.Errorf("invalid run options: %w\n%s", err,
			validation.FormatErrors(validationResult.ErrorsOnly()))
		return result
	}

	// =========================================================================
	// STEP 4: NORMALIZE
	// =========================================================================

	normalized, nstats := normalizer.NormalizeWithStats(result.Raw, result.Roles)
	result.Normalized = normalized
	result.Stats.IdentifiersFilled = nstats.FilledIdentifiers
	result.Stats.RowsSkipped = nstats.UnresolvedIdentifiers
	result.Stats.NumericFallbacks = nstats.NumericFallbacks

	m.logger.Debug("Forward-filled %d identifiers, %d rows without identifier",
		nstats.FilledIdentifiers, nstats.UnresolvedIdentifiers)
	if nstats.NumericFallbacks > 0 {
		m.logger.Debug("%d blank or non-numeric values counted as 0", nstats.NumericFallbacks)
	}

	// =========================================================================
	// STEP 5: AGGREGATE
	// =========================================================================

	rows, err := aggregator.Aggregate(normalized, result.Roles, m.opts.Aggregate)
	if err != nil {
		result.Error = fmt.Errorf("failed to aggregate: %w", err)
		return result
	}
	result.Rows = rows
	result.Stats.Groups = len(rows)
	result.Layout = report.NewLayout(result.Roles, normalized.Columns, m.cfg.Headers)

	if len(rows) == 0 {
		m.logger.Info("No groups match the filters")
	}

	// =========================================================================
	// STEP 6: SUMMARIZE
	// =========================================================================

	result.Summary = aggregator.Summarize(rows)
	m.logger.Info("Merged %d rows into %d groups", result.Stats.RowsRead, result.Summary.Groups)

	result.Success = true
	return result
}

// readAndClassify fills Raw, RowsRead and Roles, or sets Error.
func (m *Merger) readAndClassify(result *Result) bool {
	m.logger.Info("Processing file: %s", m.sourceName)

	raw, err := xlsxparser.Read(m.source, m.sourceName)
	if err != nil {
		result.Error = err
		return false
	}
	result.Raw = raw
	result.Stats.RowsRead = len(raw.Rows)
	m.logger.Debug("Read %d rows, %d columns from sheet %q", len(raw.Rows), len(raw.Columns), raw.SheetName)

	roles, err := classifier.Classify(raw.Columns, m.opts.ClassifierOptions())
	result.Roles = roles
	if err != nil {
		result.Error = fmt.Errorf("failed to classify columns %q: %w", raw.Columns, err)
		return false
	}
	m.logger.Debug("Detected roles: identifier=%q quantity=%q price=%q amount=%q",
		roles.Identifier, roles.Quantity, roles.Price, roles.Amount)
	return true
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportResult lists the files written by Export.
type ExportResult struct {
	XLSXPath   string
	SQLitePath string
}

// Export writes a successful result to the output directory as a workbook
// and, when RunOptions.SQLitePath is set, to a SQLite database.
func (m *Merger) Export(ctx context.Context, result Result) (ExportResult, error) {
	var out ExportResult
	if !result.Success {
		return out, fmt.Errorf("cannot export a failed run: %w", result.Error)
	}

	outputDir := m.opts.OutputDir
	if outputDir == "" {
		outputDir = m.cfg.OutputDir
	}
	nameFormat := m.opts.NameFormat
	if nameFormat == "" {
		nameFormat = m.cfg.OutputNameFormat
	}

	if err := utils.EnsureDirectory(outputDir); err != nil {
		return out, err
	}

	name := utils.GenerateOutputFileName(nameFormat,
		map[string]string{"original": utils.OriginalName(m.sourceName)}, ".xlsx")
	out.XLSXPath = filepath.Join(outputDir, name)
	if utils.FileExists(out.XLSXPath) {
		m.logger.Info("Overwriting existing file: %s", out.XLSXPath)
	}

	err := utils.WriteFileAtomic(out.XLSXPath, func(w io.Writer) error {
		return xlsxwriter.Write(w, result.Layout, result.Rows, xlsxwriter.Options{SheetName: m.cfg.SheetName})
	})
	if err != nil {
		return out, fmt.Errorf("failed to write %s: %w", out.XLSXPath, err)
	}
	m.logger.Info("Wrote output to: %s", out.XLSXPath)

	if m.opts.SQLitePath != "" {
		if err := sqlitewriter.Write(ctx, m.opts.SQLitePath, m.cfg.SQLiteTable, result.Layout, result.Rows); err != nil {
			return out, fmt.Errorf("failed to write %s: %w", m.opts.SQLitePath, err)
		}
		out.SQLitePath = m.opts.SQLitePath
		m.logger.Info("Wrote SQLite table %q to: %s", m.cfg.SQLiteTable, out.SQLitePath)
	}

	return out, nil
}
