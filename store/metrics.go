package store

import (
	"context"

	"github.com/ceyewan/scoregate/metrics"
)

// MetricArchived 归档写入的比赛数 (Counter)
const MetricArchived = "archive_games_total"

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

type instruments struct {
	archived metrics.Counter
}

func newInstruments(meter metrics.Meter) *instruments {
	archived, err := meter.Counter(MetricArchived, "归档写入的比赛数")
	if err != nil {
		return newInstruments(metrics.Discard())
	}
	return &instruments{archived: archived}
}

func (i *instruments) observe(ctx context.Context, outcome string, n int) {
	i.archived.Add(ctx, float64(n), metrics.L(metrics.LabelOutcome, outcome))
}
