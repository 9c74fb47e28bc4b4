package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Result annotates a counter increment with whether the underlying
// operation succeeded, mirroring the mount tool's own attribute-key style
// (ReadTypeKey, CacheHitKey, ...) rather than inventing a bespoke scheme.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

var defaultLatencyBuckets = metric.WithExplicitBucketBoundaries(
	0.1, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000,
)

// Metrics is the set of OpenTelemetry instruments defined for the core's
// components. No component package imports telemetry or creates its own
// instruments; the serve command builds one Metrics and records the startup
// chunk placement through it.
type Metrics struct {
	jobsSubmitted        metric.Int64Counter
	jobsCompleted        metric.Int64Counter
	jobsDisabledBeforeRun metric.Int64Counter

	trashMoved            metric.Int64Counter
	trashExpired          metric.Int64Counter
	trashSpaceReclaimed   metric.Int64Counter

	cacheAccess           metric.Int64Counter
	readaheadBytesFetched metric.Int64Counter
	readRetries           metric.Int64Counter
	readLatencyMs         metric.Float64Histogram

	chunkReaderExecutions           metric.Int64Counter
	chunkReaderAdditionalOps        metric.Int64Counter
	chunkReaderFinishedByAdditional metric.Int64Counter

	chunkPlacements metric.Int64Counter
}

// NewMetrics constructs every instrument this module reports through,
// joining any instrument-creation errors the way the mount tool's
// NewOTelMetrics does.
func NewMetrics(meter Meter) (*Metrics, error) {
	jobsSubmitted, err1 := meter.Int64Counter("jobpool/jobs_submitted",
		metric.WithDescription("Jobs submitted to the job pool."))
	jobsCompleted, err2 := meter.Int64Counter("jobpool/jobs_completed",
		metric.WithDescription("Jobs whose callback has fired, by result."))
	jobsDisabledBeforeRun, err3 := meter.Int64Counter("jobpool/jobs_disabled_before_run",
		metric.WithDescription("Jobs disabled before a worker picked them up."))

	trashMoved, err4 := meter.Int64Counter("trash/files_moved",
		metric.WithDescription("Files moved into the per-disk trash directory."))
	trashExpired, err5 := meter.Int64Counter("trash/files_expired",
		metric.WithDescription("Trashed files removed for exceeding the age limit."))
	trashSpaceReclaimed, err6 := meter.Int64Counter("trash/space_reclaimed_bytes",
		metric.WithDescription("Bytes reclaimed by removing trashed files under free-space pressure."),
		metric.WithUnit("By"))

	cacheAccess, err7 := meter.Int64Counter("read_engine/cache_access",
		metric.WithDescription("Read-cache lookups, by hit/miss result."))
	readaheadBytesFetched, err8 := meter.Int64Counter("read_engine/readahead_bytes_fetched",
		metric.WithDescription("Bytes fetched speculatively by the readahead adviser."),
		metric.WithUnit("By"))
	readRetries, err9 := meter.Int64Counter("read_engine/retries",
		metric.WithDescription("Read retries issued after a recoverable-transport failure."))
	readLatencyMs, err10 := meter.Float64Histogram("read_engine/read_latency",
		metric.WithDescription("End-to-end latency of a ReadRecord.Read call."),
		metric.WithUnit("ms"),
		defaultLatencyBuckets)

	chunkReaderExecutions, err11 := meter.Int64Counter("chunk_reader/executions",
		metric.WithDescription("Total chunk read plan executions."))
	chunkReaderAdditionalOps, err12 := meter.Int64Counter("chunk_reader/executions_needing_additional_ops",
		metric.WithDescription("Executions where at least one wave needed a fallback candidate."))
	chunkReaderFinishedByAdditional, err13 := meter.Int64Counter("chunk_reader/executions_finished_by_additional_ops",
		metric.WithDescription("Executions that only succeeded because of the additional-ops wave."))

	chunkPlacements, err14 := meter.Int64Counter("disk_mgr/chunk_placements",
		metric.WithDescription("New chunks assigned to a disk, by disk path."))

	if err := errors.Join(err1, err2, err3, err4, err5, err6, err7, err8, err9, err10, err11, err12, err13, err14); err != nil {
		return nil, err
	}

	return &Metrics{
		jobsSubmitted:                   jobsSubmitted,
		jobsCompleted:                   jobsCompleted,
		jobsDisabledBeforeRun:           jobsDisabledBeforeRun,
		trashMoved:                      trashMoved,
		trashExpired:                    trashExpired,
		trashSpaceReclaimed:             trashSpaceReclaimed,
		cacheAccess:                     cacheAccess,
		readaheadBytesFetched:           readaheadBytesFetched,
		readRetries:                     readRetries,
		readLatencyMs:                   readLatencyMs,
		chunkReaderExecutions:           chunkReaderExecutions,
		chunkReaderAdditionalOps:        chunkReaderAdditionalOps,
		chunkReaderFinishedByAdditional: chunkReaderFinishedByAdditional,
		chunkPlacements:                 chunkPlacements,
	}, nil
}

func (m *Metrics) JobSubmitted(ctx context.Context) { m.jobsSubmitted.Add(ctx, 1) }

func (m *Metrics) JobCompleted(ctx context.Context, result Result) {
	m.jobsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("result", string(result))))
}

func (m *Metrics) JobDisabledBeforeRun(ctx context.Context) { m.jobsDisabledBeforeRun.Add(ctx, 1) }

func (m *Metrics) TrashFileMoved(ctx context.Context) { m.trashMoved.Add(ctx, 1) }

func (m *Metrics) TrashFileExpired(ctx context.Context, n int64) { m.trashExpired.Add(ctx, n) }

func (m *Metrics) TrashSpaceReclaimed(ctx context.Context, bytes int64) {
	m.trashSpaceReclaimed.Add(ctx, bytes)
}

func (m *Metrics) CacheAccess(ctx context.Context, hit bool) {
	result := ResultFailure
	if hit {
		result = ResultSuccess
	}
	m.cacheAccess.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(result))))
}

func (m *Metrics) ReadaheadBytesFetched(ctx context.Context, n int64) {
	m.readaheadBytesFetched.Add(ctx, n)
}

func (m *Metrics) ReadRetried(ctx context.Context) { m.readRetries.Add(ctx, 1) }

func (m *Metrics) ReadLatency(ctx context.Context, d time.Duration) {
	m.readLatencyMs.Record(ctx, float64(d.Microseconds())/1000.0)
}

func (m *Metrics) ChunkReaderExecution(ctx context.Context, neededAdditional, finishedByAdditional bool) {
	m.chunkReaderExecutions.Add(ctx, 1)
	if neededAdditional {
		m.chunkReaderAdditionalOps.Add(ctx, 1)
	}
	if finishedByAdditional {
		m.chunkReaderFinishedByAdditional.Add(ctx, 1)
	}
}

func (m *Metrics) ChunkPlacement(ctx context.Context, diskPath string) {
	m.chunkPlacements.Add(ctx, 1, metric.WithAttributes(attribute.String("disk", diskPath)))
}
