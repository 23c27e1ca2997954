package mocks

import (
	"sync"

	"github.com/kmnkit/vietnamese-word-cards/internal/worker"
)

// RecordingDispatcher captures submitted jobs instead of running them.
type RecordingDispatcher struct {
	mu     sync.Mutex
	Jobs   []worker.Job
	Reject bool
}

func (d *RecordingDispatcher) TrySubmit(job worker.Job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Reject {
		return false
	}
	d.Jobs = append(d.Jobs, job)
	return true
}

// Names returns the names of the captured jobs in submission order.
func (d *RecordingDispatcher) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.Jobs))
	for i, j := range d.Jobs {
		names[i] = j.Name()
	}
	return names
}
