package search

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/domain/search/session"
	"github.com/kailas-cloud/msgdex/internal/metrics"
)

// dispatch turns drained session events into logs and metrics. Called
// only after the outcome has been recorded on the session, so observers
// never see an execution the session does not know about.
func (s *Service) dispatch(events []session.Event) {
	for _, e := range events {
		switch ev := e.(type) {
		case session.Started:
			s.logger.Debug("Search session started",
				zap.String("session_id", ev.SessionID),
				zap.String("strategy", ev.Strategy.String()))

		case session.Executed:
			metrics.SearchRequestsTotal.WithLabelValues(ev.Strategy.String(), "ok").Inc()
			s.logger.Info("Search executed",
				zap.String("session_id", ev.SessionID),
				zap.String("strategy", ev.Strategy.String()),
				zap.Int("total_results", ev.TotalResults),
				zap.Int("returned", ev.Returned))

		case session.Failed:
			metrics.SearchRequestsTotal.WithLabelValues(ev.Strategy.String(), "error").Inc()
			s.logger.Warn("Search failed",
				zap.String("session_id", ev.SessionID),
				zap.String("strategy", ev.Strategy.String()),
				zap.String("error_kind", ev.ErrorKind),
				zap.String("error", ev.ErrorMessage))

		case session.Paged:
			s.logger.Debug("Search session paged",
				zap.String("session_id", ev.SessionID),
				zap.Int("old_skip", ev.OldSkip),
				zap.Int("new_skip", ev.NewSkip),
				zap.Int("page_size", ev.PageSize))

		case session.FilterUpdated:
			s.logger.Debug("Search filter updated",
				zap.String("session_id", ev.SessionID))

		default:
			s.logger.Debug("Search event", zap.String("event", e.Kind()))
		}
	}
}
