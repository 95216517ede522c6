package cluster_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flocksim/internal/cluster"
)

var _ = Describe("Local cluster", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("numbers ranks from zero", func() {
		comms := cluster.NewLocal(3)
		for i, c := range comms {
			Expect(c.Rank()).To(Equal(i))
			Expect(c.Size()).To(Equal(3))
		}
		Expect(cluster.IsRoot(comms[0])).To(BeTrue())
		Expect(cluster.IsRoot(comms[2])).To(BeFalse())
	})

	It("delivers messages in order per source and tag", func() {
		var first []float64
		var ordered [][]float64
		err := cluster.Run(ctx, 2, func(ctx context.Context, c cluster.Comm) error {
			if c.Rank() == 1 {
				for i := 0; i < 5; i++ {
					if err := c.Send(ctx, 0, 7, []float64{float64(i)}); err != nil {
						return err
					}
				}
				return c.Send(ctx, 0, 8, []float64{42})
			}

			// tag 8 can be read before tag 7
			var err error
			if first, err = c.Recv(ctx, 1, 8); err != nil {
				return err
			}
			for i := 0; i < 5; i++ {
				got, err := c.Recv(ctx, 1, 7)
				if err != nil {
					return err
				}
				ordered = append(ordered, got)
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(Equal([]float64{42}))
		Expect(ordered).To(Equal([][]float64{{0}, {1}, {2}, {3}, {4}}))
	})

	It("copies data on send", func() {
		comms := cluster.NewLocal(2)
		buf := []float64{1, 2, 3}
		Expect(comms[0].Send(ctx, 1, 0, buf)).To(Succeed())
		buf[0] = 99

		got, err := comms[1].Recv(ctx, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]float64{1, 2, 3}))
	})

	It("holds every rank at a barrier until all arrive", func() {
		var arrived, early atomic.Int32
		err := cluster.Run(ctx, 4, func(ctx context.Context, c cluster.Comm) error {
			for round := 1; round <= 3; round++ {
				arrived.Add(1)
				if err := c.Barrier(ctx); err != nil {
					return err
				}
				if arrived.Load() < int32(4*round) {
					early.Add(1)
				}
				if err := c.Barrier(ctx); err != nil {
					return err
				}
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(early.Load()).To(BeZero())
	})

	It("broadcasts from any root", func() {
		got := make([][]float64, 3)
		err := cluster.Run(ctx, 3, func(ctx context.Context, c cluster.Comm) error {
			var data []float64
			if c.Rank() == 2 {
				data = []float64{3.5, -1}
			}
			if err := c.Bcast(ctx, 2, &data); err != nil {
				return err
			}
			got[c.Rank()] = data
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		for _, d := range got {
			Expect(d).To(Equal([]float64{3.5, -1}))
		}
	})

	It("rejects a message of the wrong size", func() {
		comms := cluster.NewLocal(2)
		Expect(comms[1].Send(ctx, 0, 3, make([]float64, 5))).To(Succeed())

		_, err := cluster.RecvExact(ctx, comms[0], 1, 3, 6)
		Expect(err).To(MatchError(cluster.ErrProtocol))
	})

	It("rejects unknown peers and reserved tags", func() {
		comms := cluster.NewLocal(2)
		Expect(comms[0].Send(ctx, 5, 0, nil)).To(MatchError(cluster.ErrProtocol))
		Expect(comms[0].Send(ctx, 1, -1, nil)).To(MatchError(cluster.ErrProtocol))
		_, err := comms[0].Recv(ctx, -1, 0)
		Expect(err).To(MatchError(cluster.ErrProtocol))
	})

	It("releases peers when one rank fails", func() {
		boom := errors.New("boom")
		done := make(chan error, 1)
		go func() {
			done <- cluster.Run(ctx, 3, func(ctx context.Context, c cluster.Comm) error {
				if c.Rank() == 1 {
					return boom
				}
				return c.Barrier(ctx)
			})
		}()

		var err error
		Eventually(done, time.Second).Should(Receive(&err))
		Expect(errors.Is(err, boom)).To(BeTrue())
	})

	It("leaves a receive blocked without a sender", func() {
		comms := cluster.NewLocal(2)
		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := comms[0].Recv(short, 1, 0)
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})
