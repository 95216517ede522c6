package cluster

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// bcastTag is reserved for Bcast traffic.
const bcastTag = -1

type key struct {
	src, dst, tag int
}

// mailbox is an unbounded FIFO with a single consumer.
type mailbox struct {
	mu    sync.Mutex
	queue [][]float64
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) push(data []float64) {
	m.mu.Lock()
	m.queue = append(m.queue, data)
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox) pop(ctx context.Context) ([]float64, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			data := m.queue[0]
			m.queue = m.queue[1:]
			if len(m.queue) > 0 {
				select {
				case m.ready <- struct{}{}:
				default:
				}
			}
			m.mu.Unlock()
			return data, nil
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type barrier struct {
	mu      sync.Mutex
	size    int
	arrived int
	release chan struct{}
}

func (b *barrier) wait(ctx context.Context) error {
	b.mu.Lock()
	ch := b.release
	b.arrived++
	if b.arrived == b.size {
		close(ch)
		b.release = make(chan struct{})
		b.arrived = 0
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type world struct {
	size    int
	barrier *barrier

	mu    sync.Mutex
	boxes map[key]*mailbox
}

func (w *world) mailbox(k key) *mailbox {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.boxes[k]
	if !ok {
		m = newMailbox()
		w.boxes[k] = m
	}
	return m
}

type local struct {
	w    *world
	rank int
}

// NewLocal creates the communicators of an in-process cluster of n ranks.
func NewLocal(n int) []Comm {
	w := &world{
		size:    n,
		barrier: &barrier{size: n, release: make(chan struct{})},
		boxes:   make(map[key]*mailbox),
	}
	comms := make([]Comm, n)
	for i := range comms {
		comms[i] = &local{w: w, rank: i}
	}
	return comms
}

func (c *local) Rank() int { return c.rank }
func (c *local) Size() int { return c.w.size }

func (c *local) Barrier(ctx context.Context) error {
	return c.w.barrier.wait(ctx)
}

func (c *local) checkPeer(peer int) error {
	if peer < 0 || peer >= c.w.size {
		return fmt.Errorf("%w: rank %d does not exist in a cluster of %d", ErrProtocol, peer, c.w.size)
	}
	return nil
}

func (c *local) Send(ctx context.Context, dest, tag int, data []float64) error {
	if tag < 0 {
		return fmt.Errorf("%w: negative tag %d is reserved", ErrProtocol, tag)
	}
	return c.send(ctx, dest, tag, data)
}

func (c *local) send(ctx context.Context, dest, tag int, data []float64) error {
	if err := c.checkPeer(dest); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := make([]float64, len(data))
	copy(msg, data)
	c.w.mailbox(key{src: c.rank, dst: dest, tag: tag}).push(msg)
	return nil
}

func (c *local) Recv(ctx context.Context, src, tag int) ([]float64, error) {
	if err := c.checkPeer(src); err != nil {
		return nil, err
	}
	return c.w.mailbox(key{src: src, dst: c.rank, tag: tag}).pop(ctx)
}

func (c *local) Bcast(ctx context.Context, root int, data *[]float64) error {
	if err := c.checkPeer(root); err != nil {
		return err
	}
	if c.rank == root {
		for r := 0; r < c.w.size; r++ {
			if r == root {
				continue
			}
			if err := c.send(ctx, r, bcastTag, *data); err != nil {
				return err
			}
		}
		return nil
	}
	got, err := c.Recv(ctx, root, bcastTag)
	if err != nil {
		return err
	}
	*data = got
	return nil
}

// Run starts one goroutine per rank and waits for all of them. The first
// failing rank cancels the context handed to the others.
func Run(ctx context.Context, n int, fn func(ctx context.Context, c Comm) error) error {
	if n <= 0 {
		return fmt.Errorf("%w: cluster needs at least one rank, got %d", ErrProtocol, n)
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range NewLocal(n) {
		c := c
		g.Go(func() error {
			if err := fn(ctx, c); err != nil {
				return fmt.Errorf("rank %d: %w", c.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
