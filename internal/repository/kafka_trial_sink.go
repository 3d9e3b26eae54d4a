package repository

import (
	"context"

	"FinSim/internal/domain/models"
	domrepo "FinSim/internal/domain/repository"
	pkgkafka "FinSim/pkg/kafka"
	applogger "FinSim/pkg/logger"
)

// KafkaTrialSink publishes trial progress and final outcomes to the trials
// topic, keyed by job ID so one job's events stay in order on a partition.
type KafkaTrialSink struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaTrialSink(producer *pkgkafka.Producer, topic string) *KafkaTrialSink {
	return &KafkaTrialSink{producer: producer, topic: topic}
}

// SetLogger injects a structured logger.
func (s *KafkaTrialSink) SetLogger(l *applogger.Logger) { s.l = l }

func (s *KafkaTrialSink) Trial(ctx context.Context, jobID string, t models.TrialRecord) {
	err := s.producer.Publish(ctx, s.topic, []byte(jobID), map[string]interface{}{
		"type":      "trial",
		"job_id":    jobID,
		"iteration": t.Iteration,
		"params":    t.Params,
		"score":     t.Score,
		"failed":    t.Failed,
	})
	if err != nil && s.l != nil {
		s.l.Warn("trial publish error", applogger.String("job_id", jobID), applogger.Error(err))
	}
}

func (s *KafkaTrialSink) Done(ctx context.Context, jobID string, out *models.SearchOutcome, runErr error) {
	msg := map[string]interface{}{
		"type":   "done",
		"job_id": jobID,
	}
	if out != nil {
		msg["best_score"] = out.BestScore
		msg["best_params"] = out.BestParams
		msg["evaluated"] = out.Evaluated
		msg["stopped"] = out.Stopped
	}
	if runErr != nil {
		msg["error"] = runErr.Error()
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(jobID), msg); err != nil && s.l != nil {
		s.l.Warn("outcome publish error", applogger.String("job_id", jobID), applogger.Error(err))
	}
}

func (s *KafkaTrialSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

var _ domrepo.TrialSink = (*KafkaTrialSink)(nil)
