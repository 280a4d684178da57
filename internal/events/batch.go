package events

import (
	"context"
	"time"
)

// Batch reads events from in and hands each burst to flush. A burst ends
// once window passes without a new event. Pending events are flushed when
// in closes; they are discarded when ctx is cancelled.
func Batch(ctx context.Context, in <-chan Event, window time.Duration, flush func([]Event)) {
	var pending []Event
	timer := time.NewTimer(window)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-in:
			if !ok {
				if len(pending) > 0 {
					flush(pending)
				}
				return
			}
			pending = append(pending, event)

			// Drain anything already queued so the burst is taken in one go
		drainLoop:
			for {
				select {
				case evt, ok := <-in:
					if !ok {
						break drainLoop
					}
					pending = append(pending, evt)
				default:
					break drainLoop
				}
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(window)

		case <-timer.C:
			if len(pending) > 0 {
				flush(pending)
				pending = nil
			}
		}
	}
}
