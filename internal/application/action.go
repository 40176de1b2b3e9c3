package application

import (
	"context"
	"sync"
)

// ActionFunc is one unit of serialized live-sync work.
type ActionFunc func(ctx context.Context) error

// Action is a completion handle for an enqueued ActionFunc.
type Action struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newAction() *Action {
	return &Action{done: make(chan struct{})}
}

func completedAction() *Action {
	a := newAction()
	a.finish(nil)
	return a
}

func (a *Action) finish(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

// Done is closed once the action has finished, successfully or not.
func (a *Action) Done() <-chan struct{} {
	return a.done
}

// Err returns the action's result. It is nil until Done is closed.
func (a *Action) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

func (a *Action) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
