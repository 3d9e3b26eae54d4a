package usecase

import (
	"context"
	"encoding/json"
	"time"

	domrepo "FinSim/internal/domain/repository"
	"FinSim/internal/optimize"
	pkgkafka "FinSim/pkg/kafka"
)

// KafkaJobsHandler consumes optimization job requests from the jobs topic
// and submits them to the job manager.
type KafkaJobsHandler struct {
	topic   string
	jobs    *JobManager
	metrics domrepo.Metrics
}

func NewKafkaJobsHandler(topic string, jobs *JobManager, metrics domrepo.Metrics) *KafkaJobsHandler {
	return &KafkaJobsHandler{topic: topic, jobs: jobs, metrics: metrics}
}

func (h *KafkaJobsHandler) Topic() string { return h.topic }

// jobMessage is the wire schema of one job request.
type jobMessage struct {
	Symbol    string                        `json:"symbol"`
	From      int64                         `json:"from,omitempty"`
	To        int64                         `json:"to,omitempty"`
	LatestN   int                           `json:"latest_n,omitempty"`
	Timeframe string                        `json:"tf,omitempty"`
	Signaler  string                        `json:"signaler"`
	Space     map[string]optimize.Dimension `json:"space"`
	IntParams []string                      `json:"int_params,omitempty"`
	Metric    string                        `json:"metric,omitempty"`
	Policy    string                        `json:"policy,omitempty"`
	MaxIter   int                           `json:"max_iter,omitempty"`
	Patience  int                           `json:"patience,omitempty"`
	Seed      int64                         `json:"seed,omitempty"`
	Workers   int                           `json:"workers,omitempty"`
	Eta       float64                       `json:"eta,omitempty"`
	MinBudget float64                       `json:"min_budget,omitempty"`
}

func (h *KafkaJobsHandler) Handle(_ context.Context, b []byte) error {
	var m jobMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("jobs_unmarshal")
		return err
	}

	p := OptimizeParams{
		Symbol:    m.Symbol,
		LatestN:   m.LatestN,
		Timeframe: domrepo.NormalizeTimeframe(m.Timeframe),
		Signaler:  m.Signaler,
		Space:     optimize.Space(m.Space),
		IntParams: m.IntParams,
		Metric:    m.Metric,
		Policy:    m.Policy,
		MaxIter:   m.MaxIter,
		Patience:  m.Patience,
		Seed:      m.Seed,
		Workers:   m.Workers,
		Eta:       m.Eta,
		MinBudget: m.MinBudget,
	}
	if m.From > 0 {
		p.From = time.Unix(m.From, 0)
	}
	if m.To > 0 {
		p.To = time.Unix(m.To, 0)
	}

	h.jobs.Submit(p)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaJobsHandler)(nil)
