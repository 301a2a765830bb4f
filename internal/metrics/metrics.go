// Package metrics records OpenTelemetry instruments for dataset transactions
// and index selection.
//
// Instruments are created lazily from the global meter provider the first
// time something is recorded, so a provider installed with
// otel.SetMeterProvider before first use receives every measurement.
package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/mannyrivera2010/go-quadmem"

var (
	beginTotal        metric.Int64Counter
	commitTotal       metric.Int64Counter
	abortTotal        metric.Int64Counter
	txnDuration       metric.Float64Histogram
	activeGauge       metric.Int64UpDownCounter
	formSelectedTotal metric.Int64Counter
	replayedTotal     metric.Int64Counter

	initOnce sync.Once
	initErr  error
)

// enabled gates every record function.
var enabled atomic.Bool

func init() {
	enabled.Store(true)
}

// SetEnabled turns recording on or off. Safe for concurrent use.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// Enabled reports whether recording is on.
func Enabled() bool {
	return enabled.Load()
}

func initInstruments() error {
	initOnce.Do(func() {
		meter := otel.Meter(meterName)
		var err error

		if beginTotal, err = meter.Int64Counter(
			"quadstore_txn_begin_total",
			metric.WithDescription("Total number of transactions begun"),
		); err != nil {
			initErr = err
			return
		}
		if commitTotal, err = meter.Int64Counter(
			"quadstore_txn_commit_total",
			metric.WithDescription("Total number of transactions committed"),
		); err != nil {
			initErr = err
			return
		}
		if abortTotal, err = meter.Int64Counter(
			"quadstore_txn_abort_total",
			metric.WithDescription("Total number of transactions aborted"),
		); err != nil {
			initErr = err
			return
		}
		if txnDuration, err = meter.Float64Histogram(
			"quadstore_txn_duration_seconds",
			metric.WithDescription("Duration of transactions in seconds"),
			metric.WithUnit("s"),
		); err != nil {
			initErr = err
			return
		}
		if activeGauge, err = meter.Int64UpDownCounter(
			"quadstore_txn_active",
			metric.WithDescription("Number of currently open transactions"),
		); err != nil {
			initErr = err
			return
		}
		if formSelectedTotal, err = meter.Int64Counter(
			"quadstore_index_form_selected_total",
			metric.WithDescription("Index form chosen to answer a find"),
		); err != nil {
			initErr = err
			return
		}
		if replayedTotal, err = meter.Int64Counter(
			"quadstore_journal_replayed_total",
			metric.WithDescription("Journal entries replayed in reverse on abort"),
		); err != nil {
			initErr = err
			return
		}
	})
	return initErr
}

func ready() bool {
	return enabled.Load() && initInstruments() == nil
}

// RecordBegin counts a transaction start and bumps the active gauge.
func RecordBegin(ctx context.Context, mode string) {
	if !ready() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	beginTotal.Add(ctx, 1, attrs)
	activeGauge.Add(ctx, 1, attrs)
}

// RecordCommit counts a commit and observes how long the transaction ran.
func RecordCommit(ctx context.Context, mode string, duration time.Duration) {
	if !ready() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	commitTotal.Add(ctx, 1, attrs)
	txnDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", "commit"),
	))
}

// RecordAbort counts an abort and observes how long the transaction ran.
func RecordAbort(ctx context.Context, mode string, duration time.Duration) {
	if !ready() {
		return
	}
	abortTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	txnDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", "abort"),
	))
}

// RecordEnd drops the active gauge once a transaction is finished.
func RecordEnd(ctx context.Context, mode string) {
	if !ready() {
		return
	}
	activeGauge.Add(ctx, -1, metric.WithAttributes(attribute.String("mode", mode)))
}

func RecordFormSelected(ctx context.Context, table, form string) {
	if !ready() {
		return
	}
	formSelectedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("table", table),
		attribute.String("form", form),
	))
}

func RecordJournalReplay(ctx context.Context, n int) {
	if !ready() || n == 0 {
		return
	}
	replayedTotal.Add(ctx, int64(n))
}
