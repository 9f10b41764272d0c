package pipeline

import (
	"sync"
	"time"
)

// ProgressStatus represents the current status of a fetch cycle
type ProgressStatus string

const (
	StatusIdle      ProgressStatus = "idle"
	StatusFetching  ProgressStatus = "fetching"
	StatusCompleted ProgressStatus = "completed"
	StatusFailed    ProgressStatus = "failed"
)

// ProgressUpdate represents a single progress update
type ProgressUpdate struct {
	Status          ProgressStatus `json:"status"`
	Message         string         `json:"message"`
	SourcesDone     int            `json:"sourcesDone"`
	SourcesTotal    int            `json:"sourcesTotal"`
	ArticlesAdded   int            `json:"articlesAdded"`
	ArticlesSkipped int            `json:"articlesSkipped"`
	Timestamp       time.Time      `json:"timestamp"`
}

// ProgressTracker tracks the progress of the running fetch cycle
type ProgressTracker struct {
	mu        sync.RWMutex
	current   ProgressUpdate
	listeners []chan ProgressUpdate
	active    bool
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		current: ProgressUpdate{
			Status:    StatusIdle,
			Timestamp: time.Now(),
		},
	}
}

// TryStart marks the tracker active and resets the counters. It returns
// false when a cycle is already running.
func (pt *ProgressTracker) TryStart(totalSources int) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.active {
		return false
	}
	pt.active = true
	pt.publish(ProgressUpdate{
		Status:       StatusFetching,
		Message:      "Fetching feeds...",
		SourcesTotal: totalSources,
	})
	return true
}

// Finish marks the tracker inactive with a final status.
func (pt *ProgressTracker) Finish(status ProgressStatus, message string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	update := pt.current
	update.Status = status
	update.Message = message
	pt.active = false
	pt.publish(update)
}

// publish stores update and fans it out; callers hold mu.
func (pt *ProgressTracker) publish(update ProgressUpdate) {
	update.Timestamp = time.Now()
	pt.current = update

	for _, listener := range pt.listeners {
		select {
		case listener <- update:
		default:
			// Skip if channel is full
		}
	}
}

// SourceDone records one finished source and its store outcome.
func (pt *ProgressTracker) SourceDone(added, skipped int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	update := pt.current
	update.SourcesDone++
	update.ArticlesAdded += added
	update.ArticlesSkipped += skipped
	pt.publish(update)
}

// GetCurrent returns the current progress
func (pt *ProgressTracker) GetCurrent() ProgressUpdate {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.current
}

// IsActive returns whether a cycle is currently running
func (pt *ProgressTracker) IsActive() bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.active
}

// Subscribe creates a new listener channel for progress updates
func (pt *ProgressTracker) Subscribe() chan ProgressUpdate {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	ch := make(chan ProgressUpdate, 10)
	pt.listeners = append(pt.listeners, ch)

	// Send current state immediately
	ch <- pt.current

	return ch
}

// Unsubscribe removes a listener channel
func (pt *ProgressTracker) Unsubscribe(ch chan ProgressUpdate) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	for i, listener := range pt.listeners {
		if listener == ch {
			pt.listeners = append(pt.listeners[:i], pt.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}
