// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/utils/timer"
)

var _ Scheduler = (*TimerScheduler)(nil)

// Scheduler runs a repeating task until it is cancelled.
type Scheduler interface {
	// Every calls [fn] once per [interval] until the returned cancel
	// function is called. Cancel never blocks on a running [fn].
	Every(interval time.Duration, fn func()) (cancel func())
}

// TimerScheduler schedules repeating tasks on avalanchego timers. Each task
// owns a dispatch goroutine that exits after cancellation.
type TimerScheduler struct{}

func (TimerScheduler) Every(interval time.Duration, fn func()) func() {
	var (
		lock      sync.Mutex
		cancelled bool
		t         *timer.Timer
	)
	t = timer.NewTimer(func() {
		lock.Lock()
		if cancelled {
			lock.Unlock()
			return
		}
		lock.Unlock()

		fn()

		lock.Lock()
		defer lock.Unlock()
		if !cancelled {
			t.SetTimeoutIn(interval)
		}
	})
	go t.Dispatch()
	t.SetTimeoutIn(interval)

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.Lock()
			cancelled = true
			lock.Unlock()

			t.Cancel()
			// Stop waits for the dispatch loop, which may be inside fn.
			go t.Stop()
		})
	}
}
