package repository

import (
	"context"
	"time"

	"FinSim/internal/domain/models"
	domrepo "FinSim/internal/domain/repository"
	xhttp "FinSim/pkg/http"
	applogger "FinSim/pkg/logger"
)

// WebhookSink POSTs trial progress and final outcomes to a configured URL.
// Delivery is best effort; a dead endpoint only produces warn logs.
type WebhookSink struct {
	client *xhttp.Client
	url    string
	l      *applogger.Logger
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSink{
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
		url:    url,
	}
}

// SetLogger injects a structured logger.
func (s *WebhookSink) SetLogger(l *applogger.Logger) { s.l = l }

func (s *WebhookSink) Trial(ctx context.Context, jobID string, t models.TrialRecord) {
	s.post(ctx, jobID, map[string]interface{}{
		"type":      "trial",
		"job_id":    jobID,
		"iteration": t.Iteration,
		"params":    t.Params,
		"score":     t.Score,
		"failed":    t.Failed,
	})
}

func (s *WebhookSink) Done(ctx context.Context, jobID string, out *models.SearchOutcome, runErr error) {
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
	s.post(ctx, jobID, msg)
}

func (s *WebhookSink) post(ctx context.Context, jobID string, body map[string]interface{}) {
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    s.url,
		Body:   body,
	}, nil)
	if err != nil && s.l != nil {
		s.l.Warn("webhook post error", applogger.String("job_id", jobID), applogger.Error(err))
	}
}

var _ domrepo.TrialSink = (*WebhookSink)(nil)
