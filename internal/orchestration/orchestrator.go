package orchestration

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/linemax/internal/config"
	"github.com/agbru/linemax/internal/dispatch"
	apperrors "github.com/agbru/linemax/internal/errors"
	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/logging"
	"github.com/agbru/linemax/internal/metrics"
	"github.com/agbru/linemax/internal/partition"
)

// TracerName is the instrumentation scope of the pipeline spans.
const TracerName = "github.com/agbru/linemax/internal/orchestration"

// Summary describes a completed run.
type Summary struct {
	RunID   string
	Backend string
	Plan    partition.Plan
	Outcome dispatch.Outcome
	Report  metrics.Report
	Lines   int
	Bytes   int
}

// Orchestrator wires one dispatcher to its presenters.
type Orchestrator struct {
	Dispatcher dispatch.Dispatcher
	Presenter  ResultPresenter
	// PlanPresenter is used when the configuration asks for the plan. Nil
	// disables plan display.
	PlanPresenter PlanPresenter
	Progress      ProgressReporter
	Logger        logging.Logger
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
	// RunID is generated when empty.
	RunID string
}

func (o *Orchestrator) tracer() trace.Tracer {
	if o.Tracer != nil {
		return o.Tracer
	}
	return otel.Tracer(TracerName)
}

func (o *Orchestrator) logger() logging.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Nop()
}

func (o *Orchestrator) progress() ProgressReporter {
	if o.Progress != nil {
		return o.Progress
	}
	return NullProgressReporter{}
}

// stage runs fn inside a child span named name and records its error.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := o.tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Run executes the pipeline for cfg: load, partition, dispatch, verify and
// present. Results and, unless cfg.Quiet, the metrics block go to out; the
// plan table and progress display go to errOut. Nothing is written to out
// unless every stage succeeded.
func (o *Orchestrator) Run(ctx context.Context, cfg config.AppConfig, out, errOut io.Writer) (Summary, error) {
	if o.Dispatcher == nil || o.Presenter == nil {
		return Summary{}, fmt.Errorf("orchestration: dispatcher and presenter are required")
	}
	sum := Summary{RunID: o.RunID, Backend: o.Dispatcher.Name()}
	if sum.RunID == "" {
		sum.RunID = uuid.NewString()
	}
	log := o.logger()

	ctx, span := o.tracer().Start(ctx, "linemax.run", trace.WithAttributes(
		attribute.String("linemax.run_id", sum.RunID),
		attribute.String("linemax.backend", sum.Backend),
		attribute.Int("linemax.workers_requested", cfg.Workers),
	))
	defer span.End()

	err := o.run(ctx, cfg, out, errOut, &sum)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if apperrors.IsContextError(err) {
			log.Warn("run canceled", logging.String("run_id", sum.RunID))
		}
		return sum, err
	}
	span.SetAttributes(attribute.Int("linemax.workers_used", sum.Outcome.WorkersStarted))
	log.Info("run complete",
		logging.String("run_id", sum.RunID),
		logging.String("backend", sum.Backend),
		logging.Int("lines", sum.Lines),
		logging.Int("workers", sum.Outcome.WorkersStarted),
		logging.Duration("runtime", sum.Report.Runtime))
	return sum, nil
}

func (o *Orchestrator) run(ctx context.Context, cfg config.AppConfig, out, errOut io.Writer, sum *Summary) error {
	log := o.logger()
	progress := o.progress()
	progress.Start(errOut)
	stopped := false
	stop := func() {
		if !stopped {
			stopped = true
			progress.Stop()
		}
	}
	defer stop()

	var store *linestore.Store
	progress.Phase(PhaseLoad, cfg.InputPath)
	err := o.stage(ctx, "load", func(context.Context) error {
		var err error
		store, err = linestore.LoadFile(cfg.InputPath, cfg.Limits())
		return err
	}, attribute.String("linemax.input", cfg.InputPath), attribute.Int("linemax.max_lines", cfg.MaxLines))
	if err != nil {
		return err
	}
	sum.Lines, sum.Bytes = store.Len(), store.Bytes()
	log.Debug("input loaded", logging.Int("lines", sum.Lines), logging.Int("bytes", sum.Bytes))

	progress.Phase(PhasePartition, "")
	err = o.stage(ctx, "partition", func(context.Context) error {
		var err error
		sum.Plan, err = partition.NewPlan(store.Len(), cfg.Workers, cfg.PartitionPolicy())
		return err
	}, attribute.String("linemax.policy", cfg.PartitionPolicy().String()))
	if err != nil {
		return err
	}

	progress.Phase(PhaseDispatch, fmt.Sprintf("%d workers", sum.Plan.Workers()))
	var spanErr error
	err = o.stage(ctx, "dispatch", func(ctx context.Context) error {
		m := metrics.Begin()
		outcome, err := o.Dispatcher.Dispatch(ctx, store, sum.Plan)
		sum.Outcome = outcome
		sum.Report, spanErr = m.End(outcome.WorkersStarted)
		return err
	}, attribute.String("linemax.backend", sum.Backend))
	if err != nil {
		return err
	}
	if spanErr != nil {
		log.Warn("resource usage unavailable", logging.Err(spanErr))
	}
	if sum.Outcome.StartErr != nil {
		log.Warn("continuing with fewer workers",
			logging.Int("requested", sum.Plan.Workers()),
			logging.Int("started", sum.Outcome.WorkersStarted),
			logging.Err(sum.Outcome.StartErr))
	}

	progress.Phase(PhaseCollect, "")
	err = o.stage(ctx, "collect", func(context.Context) error {
		return sum.Outcome.Check(sum.Lines)
	})
	if err != nil {
		return err
	}
	stop()

	if err := o.Presenter.PresentResults(sum.Outcome.Results, out); err != nil {
		return apperrors.WrapError(err, "writing results")
	}
	if !cfg.Quiet {
		if err := o.Presenter.PresentMetrics(sum.Report, out); err != nil {
			return apperrors.WrapError(err, "writing metrics")
		}
	}
	if cfg.ShowPlan && o.PlanPresenter != nil {
		o.PlanPresenter.PresentPlan(sum.Plan, sum.Outcome, errOut)
	}
	return nil
}
