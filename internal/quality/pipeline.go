// Package quality implements the data-quality pipeline: profiling, type
// inference and the ordered fix stages.
package quality

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/models"
)

// Recorder receives pipeline measurements
type Recorder interface {
	RecordPipelineRun(autoFix bool, duration time.Duration, err error)
	RecordFix(operation string, columnsTouched, rowsImpacted int)
}

// Pipeline profiles a table, infers column types and applies the fix stages
// in a fixed order. It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	logger   *logrus.Logger
	opts     Options
	stages   []Stage
	recorder Recorder
}

// NewPipeline creates a pipeline. A nil logger gets a default one.
func NewPipeline(opts Options, logger *logrus.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		logger: logger,
		opts:   opts,
		stages: Stages(opts),
	}, nil
}

// WithRecorder attaches a metrics recorder
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// Options returns the pipeline thresholds
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run cleans table and returns the cleaned copy with its report. With
// autoFix disabled the table is returned unchanged and only the profiles
// are filled in.
func (p *Pipeline) Run(ctx context.Context, table *models.Table, autoFix bool) (cleaned *models.Table, report *models.QualityReport, err error) {
	start := time.Now()
	defer func() {
		if p.recorder != nil {
			p.recorder.RecordPipelineRun(autoFix, time.Since(start), err)
		}
	}()

	if table == nil || table.ColumnCount() == 0 {
		return nil, nil, errors.NewInvalidInputError(errors.CodeInvalidTable, "Table has no columns.")
	}
	if table.RowCount() == 0 {
		return nil, nil, errors.NewInvalidInputError(errors.CodeNoRows, "CSV has no rows.")
	}

	logger := p.logger.WithFields(logrus.Fields{
		"rows":     table.RowCount(),
		"columns":  table.ColumnCount(),
		"auto_fix": autoFix,
	})

	before := ProfileTable(table, p.opts.CorrelationThreshold)

	if !autoFix {
		logger.Debug("Auto-fix disabled, table passed through")
		return table.Clone(), &models.QualityReport{
			TricksCovered:   []string{},
			Before:          before,
			After:           before,
			TypeConversions: []models.TypeConversion{},
			FixesApplied:    []models.FixRecord{},
			QualityDelta:    delta(before, before),
		}, nil
	}

	current, conversions := InferTypes(table, p.opts)
	fixes := []models.FixRecord{{
		Operation:      models.OpTypeInference,
		ColumnsTouched: len(conversions),
		Conversions:    conversions,
	}}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		stageStart := time.Now()
		var rec models.FixRecord
		current, rec = stage.Apply(current)
		fixes = append(fixes, rec)

		logger.WithFields(logrus.Fields{
			"stage":           stage.Name,
			"columns_touched": rec.ColumnsTouched,
			"rows_impacted":   rec.RowsImpacted,
			"duration":        time.Since(stageStart),
		}).Debug("Fix stage applied")
	}

	// text normalization and capping can make distinct rows equal; those rows
	// are removed too so the cleaned table stays duplicate-free
	if extra := CountDuplicateRows(current); extra > 0 {
		var rec models.FixRecord
		current, rec = RemoveDuplicates(current)
		for i := range fixes {
			if fixes[i].Operation == models.OpRemoveDuplicates {
				fixes[i].RowsImpacted += rec.RowsImpacted
				fixes[i].ColumnsTouched = rec.ColumnsTouched
			}
		}
		logger.WithField("rows", extra).Debug("Removed duplicates introduced by later stages")
	}

	pairs := FindHighCorrelations(current, p.opts.CorrelationThreshold)
	detail := pairs
	if len(detail) > constants.CorrelationDetailLimit {
		detail = detail[:constants.CorrelationDetailLimit]
	}
	fixes = append(fixes, models.FixRecord{
		Operation:  models.OpCorrelationDetector,
		PairsFound: len(pairs),
		Pairs:      detail,
	})

	after := ProfileTable(current, p.opts.CorrelationThreshold)

	if p.recorder != nil {
		for _, f := range fixes {
			p.recorder.RecordFix(f.Operation, f.ColumnsTouched, f.RowsImpacted)
		}
	}

	logger.WithFields(logrus.Fields{
		"type_conversions": len(conversions),
		"duplicates_after": after.DuplicateRows,
		"missing_after":    after.MissingCells,
		"duration":         time.Since(start),
	}).Info("Data-quality pipeline completed")

	return current, &models.QualityReport{
		TricksCovered:   append([]string(nil), models.TricksCovered...),
		Before:          before,
		After:           after,
		TypeConversions: conversions,
		FixesApplied:    fixes,
		QualityDelta:    delta(before, after),
		AutoFix:         true,
	}, nil
}

func delta(before, after *models.Profile) models.QualityDelta {
	return models.QualityDelta{
		DuplicateRowsBefore: before.DuplicateRows,
		DuplicateRowsAfter:  after.DuplicateRows,
		MissingCellsBefore:  before.MissingCells,
		MissingCellsAfter:   after.MissingCells,
	}
}
