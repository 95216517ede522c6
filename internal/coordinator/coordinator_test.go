package coordinator_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flocksim/internal/checkpoint"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/coordinator"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/experiment"
	"github.com/san-kum/flocksim/internal/lyapunov"
	"github.com/san-kum/flocksim/internal/physics"
	"github.com/san-kum/flocksim/internal/storage"
)

func smallConfig(nodes int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Domain.Lx, cfg.Domain.Ly = 8, 8
	cfg.EquilibriumSteps = 20
	cfg.TotalSteps = 40
	cfg.RebuildPeriod = 5
	cfg.SavingPeriod = 2
	cfg.Seed = 5
	cfg.OutputDir = ""
	cfg.Lyapunov.Nodes = nodes
	cfg.Lyapunov.Directions = 3
	cfg.Lyapunov.RenormEvery = 2
	return cfg
}

func run(cfg *config.Config) *coordinator.Result {
	c, err := coordinator.New(cfg, experiment.NewRegistry(), nil)
	Expect(err).NotTo(HaveOccurred())
	res, err := c.Run(context.Background())
	Expect(err).NotTo(HaveOccurred())
	Expect(res).NotTo(BeNil())
	return res
}

var _ = Describe("Coordinator", func() {
	It("gathers one trajectory per direction in direction order", func() {
		res := run(smallConfig(2))

		Expect(res.Trajectories).To(HaveLen(3))
		for _, traj := range res.Trajectories {
			Expect(traj).To(HaveLen(4))
		}
		Expect(res.Separation).To(HaveLen(4))
		Expect(res.Exponents).To(BeEmpty())
	})

	It("does not depend on how directions are spread over nodes", func() {
		single := run(smallConfig(1))
		spread := run(smallConfig(3))
		Expect(spread.Trajectories).To(Equal(single.Trajectories))
	})

	It("supports more nodes than directions", func() {
		res := run(smallConfig(5))
		Expect(res.Trajectories).To(HaveLen(3))
	})

	Context("with reference topology", func() {
		It("does not depend on the node count either", func() {
			a := smallConfig(1)
			a.Lyapunov.Topology = string(config.TopologyReference)
			b := smallConfig(2)
			b.Lyapunov.Topology = string(config.TopologyReference)

			Expect(run(b).Trajectories).To(Equal(run(a).Trajectories))
		})
	})

	Context("with renormalization", func() {
		for _, mode := range []lyapunov.Mode{lyapunov.RenormIndependent, lyapunov.RenormGramSchmidt} {
			mode := mode
			It("estimates one finite exponent per direction with "+string(mode), func() {
				cfg := smallConfig(2)
				cfg.Lyapunov.Renorm = string(mode)
				res := run(cfg)

				Expect(res.Exponents).To(HaveLen(3))
				for _, e := range res.Exponents {
					Expect(math.IsNaN(e) || math.IsInf(e, 0)).To(BeFalse())
				}

				cfg = smallConfig(1)
				cfg.Lyapunov.Renorm = string(mode)
				Expect(run(cfg).Exponents).To(Equal(res.Exponents))
			})
		}
	})

	It("writes the reference frame, trajectory file and report", func() {
		dir := GinkgoT().TempDir()
		cfg := smallConfig(2)
		cfg.OutputDir = dir
		res := run(cfg)

		Expect(res.ReferencePath).To(Equal(filepath.Join(dir, experiment.RunName(cfg))))
		ref, err := checkpoint.Load(res.ReferencePath, cfg.FrameLayout())
		Expect(err).NotTo(HaveOccurred())
		Expect(ref).To(HaveLen(cfg.N()))

		trajs, err := checkpoint.LoadTrajectories(res.TrajectoryPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(trajs).To(HaveLen(3))
		Expect(trajs[0]).To(HaveLen(4))

		report, err := storage.LoadReport(res.ReportPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Points).To(Equal(4))
		Expect(report.Directions).To(Equal(3))
		Expect(report.Name).To(Equal(res.Name))
		Expect(report.Lx).To(Equal(cfg.Domain.Lx))
	})

	It("rejects invalid configurations", func() {
		cfg := smallConfig(0)
		_, err := coordinator.New(cfg, experiment.NewRegistry(), nil)
		Expect(errors.Is(err, dynamo.ErrConfig)).To(BeTrue())
	})

	It("releases every rank when rank 0 fails", func() {
		c, err := coordinator.New(smallConfig(3), experiment.NewRegistry(), nil)
		Expect(err).NotTo(HaveOccurred())
		c.SetInitial(make([]physics.Particle, 2))

		_, err = c.Run(context.Background())
		Expect(err).To(MatchError(ContainSubstring("rank 0")))
	})

	It("fails when the output directory cannot be created", func() {
		file := filepath.Join(GinkgoT().TempDir(), "file")
		Expect(os.WriteFile(file, nil, 0644)).To(Succeed())

		cfg := smallConfig(2)
		cfg.OutputDir = filepath.Join(file, "out")
		c, err := coordinator.New(cfg, experiment.NewRegistry(), nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Run(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("stops on a cancelled context", func() {
		c, err := coordinator.New(smallConfig(2), experiment.NewRegistry(), nil)
		Expect(err).NotTo(HaveOccurred())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = c.Run(ctx)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})
