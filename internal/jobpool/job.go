package jobpool

import "github.com/leil-io/saunafs-chunkserver-core/internal/sfserr"

// jobState is the per-job lifecycle state, matching JSTATE_DISABLED /
// JSTATE_ENABLED / JSTATE_INPROGRESS from bgjobs.cc.
type jobState uint8

const (
	jobDisabled jobState = iota
	jobEnabled
	jobInProgress
)

// Callback is invoked exactly once per submitted Job (§7): on completion,
// on disable-before-run (with sfserr.NOTDONE), and on pool shutdown.
type Callback func(status sfserr.Status, extra any)

// Job is one submitted unit of work: an op kind, its typed argument
// payload, and the callback contract above.
type Job struct {
	id       uint32
	op       OpKind
	args     any
	callback Callback
	extra    any
	state    jobState
}

// ID returns the job's pool-assigned identifier.
func (j *Job) ID() uint32 { return j.id }
