package bench

import "sync/atomic"

// Stopper is the soft-cancellation latch. Jobs check it between
// transactions: the in-flight transaction always finishes, no new one
// starts. It is how SIGTERM and run deadlines reach the job loops.
type Stopper struct {
	stopped atomic.Bool
}

func NewStopper() *Stopper {
	return &Stopper{}
}

func (s *Stopper) Stop() {
	s.stopped.Store(true)
}

func (s *Stopper) Stopped() bool {
	return s.stopped.Load()
}
