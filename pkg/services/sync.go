package services

import (
	"log/slog"
	"sort"
	"time"

	"github.com/klinge/mangadex-anilist-sync/pkg/data"
	"github.com/klinge/mangadex-anilist-sync/pkg/mangadex"
	"github.com/klinge/mangadex-anilist-sync/pkg/tracker"
)

// Per-title statuses reported on the progress channel.
const (
	StatusSynced = "synced"
	StatusError  = "error"
)

// ProgressSource produces the title -> latest-read-chapter map.
// *mangadex.Client satisfies it.
type ProgressSource interface {
	ReadingProgress() (map[string]string, error)
}

// Recorder persists sync history. Optional; recording is best-effort and a
// failing recorder never fails a sync.
type Recorder interface {
	SaveRun(run *data.SyncRun) error
	SaveProgress(p *data.Progress) error
}

// SyncProgress is one per-title progress update emitted during a sync.
type SyncProgress struct {
	Title   string
	Chapter string
	Index   int
	Total   int
	Status  string
	Err     error
}

// Summary is the outcome of one sync pass. Err is set only when the progress
// fetch itself failed; per-title failures are counted in Errors.
type Summary struct {
	Total    int
	Pushed   int
	Errors   int
	Err      error
	Duration time.Duration
}

// SyncManager runs one sync pass: fetch the progress map, hand each pair to
// the sink, and record the run. Top-level failures are reported in the
// Summary rather than propagated, so the process can still exit cleanly.
type SyncManager struct {
	source   ProgressSource
	sink     tracker.ProgressSink
	recorder Recorder
	logger   *slog.Logger

	progressChan chan SyncProgress
	now          func() time.Time
}

// NewSyncManager wires a sync pass. recorder may be nil.
func NewSyncManager(source ProgressSource, sink tracker.ProgressSink, recorder Recorder, logger *slog.Logger) *SyncManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncManager{
		source:       source,
		sink:         sink,
		recorder:     recorder,
		logger:       logger,
		progressChan: make(chan SyncProgress, 100),
		now:          time.Now,
	}
}

// ProgressChannel returns the channel for receiving per-title updates. The
// channel is closed when Sync returns.
func (s *SyncManager) ProgressChannel() <-chan SyncProgress {
	return s.progressChan
}

// Sync performs one pass. It never returns an error: a failed progress fetch
// is logged and surfaced in Summary.Err.
func (s *SyncManager) Sync() Summary {
	started := s.now()
	defer close(s.progressChan)

	progress, err := s.source.ReadingProgress()
	if err != nil {
		s.logger.Error("failed to fetch reading progress", "error", err)
		return Summary{Err: err, Duration: s.now().Sub(started)}
	}

	// Map order is random; sort so output and recording are stable.
	titles := make([]string, 0, len(progress))
	for title := range progress {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	summary := Summary{Total: len(titles)}
	for i, title := range titles {
		chapter := progress[title]
		update := SyncProgress{Title: title, Chapter: chapter, Index: i + 1, Total: len(titles)}

		if chapter == mangadex.ProgressError {
			summary.Errors++
			update.Status = StatusError
			s.sendProgress(update)
			s.record(title, chapter, StatusError)
			continue
		}

		if err := s.sink.Push(title, chapter); err != nil {
			s.logger.Error("failed to push progress", "sink", s.sink.Name(), "title", title, "error", err)
			summary.Errors++
			update.Status = StatusError
			update.Err = err
			s.sendProgress(update)
			s.record(title, chapter, StatusError)
			continue
		}

		s.logger.Info("synced title", "title", title, "chapter", chapter, "sink", s.sink.Name())
		summary.Pushed++
		update.Status = StatusSynced
		s.sendProgress(update)
		s.record(title, chapter, "ok")
	}

	finished := s.now()
	summary.Duration = finished.Sub(started)

	if s.recorder != nil {
		run := &data.SyncRun{
			StartedAt:  started,
			FinishedAt: finished,
			Total:      summary.Total,
			Errors:     summary.Errors,
		}
		if err := s.recorder.SaveRun(run); err != nil {
			s.logger.Warn("failed to record sync run", "error", err)
		}
	}

	return summary
}

func (s *SyncManager) record(title, chapter, status string) {
	if s.recorder == nil {
		return
	}
	p := &data.Progress{Title: title, Chapter: chapter, Status: status, UpdatedAt: s.now()}
	if err := s.recorder.SaveProgress(p); err != nil {
		s.logger.Warn("failed to record progress", "title", title, "error", err)
	}
}

// sendProgress sends a progress update (non-blocking).
func (s *SyncManager) sendProgress(p SyncProgress) {
	select {
	case s.progressChan <- p:
	default:
		// Channel full, skip this update
	}
}
