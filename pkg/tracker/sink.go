package tracker

import "log/slog"

// ProgressSink receives (title, latest chapter) pairs from a sync run.
// The intended real implementation is an AniList client that resolves the
// title to a media id and updates the list entry; until that lands, NoopSink
// keeps the orchestrator's contract stable.
type ProgressSink interface {
	Name() string
	Push(title, chapter string) error
}

// NoopSink accepts every push and does nothing with it.
type NoopSink struct {
	logger *slog.Logger
}

// NewNoopSink creates a sink that discards progress updates.
func NewNoopSink(logger *slog.Logger) *NoopSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopSink{logger: logger}
}

func (s *NoopSink) Name() string {
	return "noop"
}

func (s *NoopSink) Push(title, chapter string) error {
	s.logger.Debug("discarding progress update", "title", title, "chapter", chapter)
	return nil
}
