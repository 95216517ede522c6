// Package cluster is a small message-passing runtime: a fixed set of ranks
// that share nothing and coordinate through barriers, point-to-point
// messages and broadcasts.
//
// The in-process transport runs every rank as a goroutine. A rank blocked
// in a barrier or a receive waits until its peers arrive; the only way out
// is cancellation of its context, which Run does when any rank fails.
package cluster

import (
	"context"
	"errors"
	"fmt"
)

// ErrProtocol reports a message that does not match what the receiver
// expects, or a peer that does not exist.
var ErrProtocol = errors.New("cluster: protocol error")

// Comm is the view one rank has of the cluster.
type Comm interface {
	Rank() int
	Size() int

	// Barrier returns once every rank has called it.
	Barrier(ctx context.Context) error

	// Send queues a copy of data for dest. Tags must be non-negative.
	Send(ctx context.Context, dest, tag int, data []float64) error

	// Recv blocks until a message from src with tag arrives. Messages
	// with the same source and tag arrive in send order.
	Recv(ctx context.Context, src, tag int) ([]float64, error)

	// Bcast copies *data from root into *data on every other rank.
	Bcast(ctx context.Context, root int, data *[]float64) error
}

// RecvExact receives a message that must hold exactly n values.
func RecvExact(ctx context.Context, c Comm, src, tag, n int) ([]float64, error) {
	data, err := c.Recv(ctx, src, tag)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: rank %d expected %d values from rank %d (tag %d), got %d",
			ErrProtocol, c.Rank(), n, src, tag, len(data))
	}
	return data, nil
}

// IsRoot reports whether c is rank 0.
func IsRoot(c Comm) bool { return c.Rank() == 0 }
