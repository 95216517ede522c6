package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func testMeta(id string, at time.Time) *RunMetadata {
	return &RunMetadata{
		ID:        id,
		Name:      "rho=1-noise=0.2-L=32-r-v.bin",
		Command:   "run",
		Model:     "vicsek",
		Timestamp: at,
		Seed:      42,
		Dt:        0.01,
		Particles: 1024,
		Lx:        32,
		Ly:        32,
		Steps:     1000,
		Params:    map[string]float64{"noise": 0.2},
		Metrics:   map[string]float64{"polarization": 0.9},
		Elapsed:   3 * time.Second,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	g := NewWithT(t)
	st := New(t.TempDir())
	g.Expect(st.Init()).To(Succeed())

	meta := testMeta("", time.Now())
	dir, err := st.Create(meta)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(meta.ID).NotTo(BeEmpty())
	g.Expect(dir).To(Equal(st.RunDir(meta.ID)))
	g.Expect(st.Save(context.Background(), meta)).To(Succeed())

	loaded, err := st.Load(meta.ID)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(loaded.Model).To(Equal("vicsek"))
	g.Expect(loaded.Seed).To(Equal(int64(42)))
	g.Expect(loaded.Metrics).To(HaveKeyWithValue("polarization", 0.9))

	runs, err := st.List(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(HaveLen(1))
}

func TestStoreListEmpty(t *testing.T) {
	g := NewWithT(t)
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(BeEmpty())
}

func TestSaveRequiresID(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Save(context.Background(), &RunMetadata{}); err == nil {
		t.Error("expected error without run ID")
	}
}

func TestCatalog(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()
	st := New(t.TempDir())
	g.Expect(st.Open(ctx)).To(Succeed())
	defer st.Close()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second"} {
		meta := testMeta(id, base.Add(time.Duration(i)*time.Hour))
		_, err := st.Create(meta)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(st.Save(ctx, meta)).To(Succeed())
	}

	runs, err := st.List(ctx)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(HaveLen(2))
	g.Expect(runs[0].ID).To(Equal("second"))

	got, err := st.Catalog().Get(ctx, "first")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got.Timestamp.Equal(base)).To(BeTrue())
	g.Expect(got.Elapsed).To(Equal(3 * time.Second))
	g.Expect(got.Params).To(HaveKeyWithValue("noise", 0.2))

	// saving again replaces the row
	got.Steps = 5000
	g.Expect(st.Catalog().Record(ctx, got)).To(Succeed())
	again, err := st.Catalog().Get(ctx, "first")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(again.Steps).To(Equal(5000))

	g.Expect(st.Catalog().Delete(ctx, "first")).To(Succeed())
	_, err = st.Catalog().Get(ctx, "first")
	g.Expect(errors.Is(err, ErrRunNotFound)).To(BeTrue())
	g.Expect(errors.Is(st.Catalog().Delete(ctx, "first"), ErrRunNotFound)).To(BeTrue())
}

func TestCatalogReopen(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()
	dir := t.TempDir()

	st := New(dir)
	g.Expect(st.Open(ctx)).To(Succeed())
	meta := testMeta("kept", time.Now())
	_, err := st.Create(meta)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(st.Save(ctx, meta)).To(Succeed())
	g.Expect(st.Close()).To(Succeed())

	st = New(dir)
	g.Expect(st.Open(ctx)).To(Succeed())
	defer st.Close()
	runs, err := st.List(ctx)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(HaveLen(1))
	g.Expect(runs[0].ID).To(Equal("kept"))
}

func TestReport(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), ReportFile)
	r := &Report{
		Name:       "rho=1-k=40-r-v.bin",
		Model:      "zoned",
		Directions: 4,
		Points:     3,
		Separation: []float64{-4, -3, -2},
		GrowthRate: 1,
	}
	g.Expect(SaveReport(path, r)).To(Succeed())

	got, err := LoadReport(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got.Separation).To(Equal(r.Separation))
	g.Expect(got.Exponents).To(BeEmpty())
}
