package jobs

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/domain/job"
	"github.com/kailas-cloud/msgdex/internal/metrics"
)

// dispatch turns drained job events into logs and metrics. Called only
// after the transition has been persisted, so observers never see a
// state that was not saved.
func (s *Service) dispatch(events []job.Event) {
	for _, e := range events {
		switch ev := e.(type) {
		case job.CreatedEvent:
			metrics.JobTransitionsTotal.WithLabelValues(string(ev.JobKind), job.Pending.String()).Inc()
			s.logger.Info("Job created",
				zap.String("job_id", ev.JobID),
				zap.String("kind", string(ev.JobKind)))

		case job.StartedEvent:
			metrics.JobTransitionsTotal.WithLabelValues(string(ev.JobKind), job.Processing.String()).Inc()
			s.logger.Info("Job started",
				zap.String("job_id", ev.JobID),
				zap.String("kind", string(ev.JobKind)))

		case job.CompletedEvent:
			metrics.JobTransitionsTotal.WithLabelValues(string(ev.JobKind), job.Completed.String()).Inc()
			metrics.JobProcessingDuration.WithLabelValues(string(ev.JobKind)).Observe(ev.Duration.Seconds())
			s.logger.Info("Job completed",
				zap.String("job_id", ev.JobID),
				zap.String("kind", string(ev.JobKind)),
				zap.Duration("duration", ev.Duration))

		case job.FailedEvent:
			metrics.JobTransitionsTotal.WithLabelValues(string(ev.JobKind), job.Failed.String()).Inc()
			s.logger.Warn("Job failed",
				zap.String("job_id", ev.JobID),
				zap.String("kind", string(ev.JobKind)),
				zap.String("error_kind", ev.ErrorKind),
				zap.String("error", ev.ErrorMessage),
				zap.Int("retry_count", ev.RetryCount))

		case job.RetriedEvent:
			metrics.JobTransitionsTotal.WithLabelValues(string(ev.JobKind), job.Pending.String()).Inc()
			s.logger.Info("Job retried",
				zap.String("job_id", ev.JobID),
				zap.String("kind", string(ev.JobKind)),
				zap.Int("retry_count", ev.RetryCount),
				zap.Int("max_retries", ev.MaxRetries))

		case job.CancelledEvent:
			metrics.JobTransitionsTotal.WithLabelValues(string(ev.JobKind), job.Cancelled.String()).Inc()
			s.logger.Info("Job cancelled",
				zap.String("job_id", ev.JobID),
				zap.String("kind", string(ev.JobKind)),
				zap.String("reason", ev.Reason))

		default:
			s.logger.Debug("Job event", zap.String("event", e.Kind()))
		}
	}
}
