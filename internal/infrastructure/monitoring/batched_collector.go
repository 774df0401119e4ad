package monitoring

import (
	"context"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/pkg/batch"
)

// metricOp applies one recorded measurement to the underlying collector. It
// closes over the collector so Processor.ProcessBatch can stay generic.
type metricOp struct {
	apply func()
}

func (o metricOp) Execute(ctx context.Context) error {
	o.apply()
	return nil
}

// BatchedCollector sits in front of a PrometheusCollector and coalesces
// high-frequency relay/search counters through a Batcher, so a burst of
// chat messages or signaling events does not serialize on the collector
// under lock contention; gauges that reflect point-in-time state (queue
// size, active pairings) are still applied immediately since batching them
// would only add staleness with no throughput benefit.
type BatchedCollector struct {
	collector *PrometheusCollector
	batcher   *batch.Batcher
}

// NewBatchedCollector wraps collector with a batcher flushing every
// flushInterval or once batchSize operations have queued.
func NewBatchedCollector(collector *PrometheusCollector, batchSize int, flushInterval time.Duration) *BatchedCollector {
	b := &BatchedCollector{collector: collector}
	b.batcher = batch.NewBatcher(batchSize, flushInterval, b)
	return b
}

var _ batch.Processor = (*BatchedCollector)(nil)

func (b *BatchedCollector) ProcessBatch(ctx context.Context, operations []batch.Operation) error {
	for _, op := range operations {
		_ = op.Execute(ctx)
	}
	return nil
}

// Stop flushes any pending operations and stops the batcher's background
// flush loop.
func (b *BatchedCollector) Stop() {
	b.batcher.Stop()
}

func (b *BatchedCollector) UpdateQueueSnapshot(snapshot domain.Snapshot) {
	b.collector.UpdateQueueSnapshot(snapshot)
}

func (b *BatchedCollector) SetActivePairings(n int) {
	b.collector.SetActivePairings(n)
}

func (b *BatchedCollector) SetSearchesInFlight(n int) {
	b.collector.SetSearchesInFlight(n)
}

func (b *BatchedCollector) RecordMatch(waitTime time.Duration) {
	_ = b.batcher.Add(metricOp{apply: func() { b.collector.RecordMatch(waitTime) }})
}

func (b *BatchedCollector) RecordMessageRelayed() {
	_ = b.batcher.Add(metricOp{apply: b.collector.RecordMessageRelayed})
}

func (b *BatchedCollector) RecordModeratorVeto() {
	_ = b.batcher.Add(metricOp{apply: b.collector.RecordModeratorVeto})
}

func (b *BatchedCollector) RecordSignalRelayed(eventType domain.EventType) {
	_ = b.batcher.Add(metricOp{apply: func() { b.collector.RecordSignalRelayed(eventType) }})
}
