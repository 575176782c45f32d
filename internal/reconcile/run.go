package reconcile

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Result counts what one reconciliation pass changed.
type Result struct {
	Inserted       int
	Updated        int
	Deleted        int
	Moved          int
	CascadedImages int
	RenameFailures int
	SkippedDeletes int
	TotalRemote    int
}

// RunContext is threaded through every reconciler call of a run. It carries
// the run identity, the accumulated counters and the cancellation flag.
type RunContext struct {
	ID    uuid.UUID
	Scope string

	mu     sync.Mutex
	totals Result

	cancelled atomic.Bool
}

func NewRunContext(scope string) *RunContext {
	return &RunContext{ID: uuid.New(), Scope: scope}
}

// Cancel asks the run to stop at the next folder boundary.
func (rc *RunContext) Cancel() {
	rc.cancelled.Store(true)
}

func (rc *RunContext) Cancelled() bool {
	return rc.cancelled.Load()
}

func (rc *RunContext) Totals() Result {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.totals
}

func (rc *RunContext) record(r *Result) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.totals.Inserted += r.Inserted
	rc.totals.Updated += r.Updated
	rc.totals.Deleted += r.Deleted
	rc.totals.Moved += r.Moved
	rc.totals.CascadedImages += r.CascadedImages
	rc.totals.RenameFailures += r.RenameFailures
	rc.totals.SkippedDeletes += r.SkippedDeletes
	rc.totals.TotalRemote += r.TotalRemote
}

func (rc *RunContext) Logger() *log.Entry {
	return log.WithFields(log.Fields{"run_id": rc.ID, "scope": rc.Scope})
}
