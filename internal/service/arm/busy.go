package arm

import "sync/atomic"

// BusyFlag is set while a pick sequence owns the arm. The detection loop reads it;
// only the sequencer sets and clears it.
type BusyFlag struct {
	v atomic.Bool
}

// TryAcquire sets the flag and reports whether this caller set it.
func (b *BusyFlag) TryAcquire() bool {
	return b.v.CompareAndSwap(false, true)
}

func (b *BusyFlag) Release() {
	b.v.Store(false)
}

func (b *BusyFlag) Busy() bool {
	return b.v.Load()
}
