package kanban

import (
	"context"
	"fmt"
	"sync"
)

// PendingMove tracks a move whose persistence has not settled yet
type PendingMove struct {
	ItemID string
	From   string
	To     string

	done chan struct{}
	once sync.Once
	ok   bool
	err  error
}

func newPendingMove(itemID, from, to string) *PendingMove {
	return &PendingMove{ItemID: itemID, From: from, To: to, done: make(chan struct{})}
}

func (p *PendingMove) finish(ok bool, err error) {
	p.once.Do(func() {
		p.ok = ok
		p.err = err
		close(p.done)
	})
}

// Done is closed when the move has settled
func (p *PendingMove) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the move settles or ctx is done. It reports whether the
// move was accepted, and the move error if the source returned one.
func (p *PendingMove) Wait(ctx context.Context) (bool, error) {
	select {
	case <-p.done:
		return p.ok, p.err
	case <-ctx.Done():
		return false, fmt.Errorf("waiting for move of %s: %w", p.ItemID, ctx.Err())
	}
}
