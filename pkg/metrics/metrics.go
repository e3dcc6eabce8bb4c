package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK                  = "ok"
	OutcomeInsufficientContext = "insufficient_context"
	OutcomeNoSQL               = "no_sql"
	OutcomeRejected            = "rejected"
	OutcomeError               = "error"

	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageExecute  = "execute"
	StageTrain    = "train"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabsql_questions_total",
			Help: "Total number of questions by outcome.",
		},
		[]string{"outcome"},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabsql_stage_duration_seconds",
			Help:    "Latency of retrieval, generation, execution and training.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	trainingItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabsql_training_items_total",
			Help: "Training items stored by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(questionsTotal, stageDurationSeconds, trainingItemsTotal)
}

func ObserveQuestion(outcome string) {
	questionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records the time since start for stage.
func ObserveStage(stage string, start time.Time) {
	stageDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func ObserveTrainingItem(kind string) {
	trainingItemsTotal.WithLabelValues(kind).Inc()
}
