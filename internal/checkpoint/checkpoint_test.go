package checkpoint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
	"github.com/san-kum/flocksim/internal/sim"
)

func population(n int, seed int64) []physics.Particle {
	rng := dynamo.NewRand(seed)
	box := dynamo.NewBox(32, 32)
	ps := make([]physics.Particle, n)
	for i := range ps {
		ps[i] = physics.NewParticle(rng.Point(box), rng.Angle())
	}
	return ps
}

func TestRoundTripPositionHeading(t *testing.T) {
	ps := population(257, 1)
	var buf bytes.Buffer
	if err := Write(&buf, ps, LayoutPositionHeading); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4+257*24 {
		t.Errorf("unexpected frame size %d", buf.Len())
	}

	got, err := Read(&buf, LayoutPositionHeading)
	if err != nil {
		t.Fatal(err)
	}
	for i := range ps {
		if math.Float64bits(got[i].Pos.X) != math.Float64bits(ps[i].Pos.X) ||
			math.Float64bits(got[i].Pos.Y) != math.Float64bits(ps[i].Pos.Y) ||
			math.Float64bits(got[i].Theta) != math.Float64bits(ps[i].Theta) {
			t.Fatalf("particle %d changed: %+v vs %+v", i, got[i], ps[i])
		}
	}
}

func TestPositionHeadingKeepsUnwrappedHeadings(t *testing.T) {
	ps := []physics.Particle{
		physics.NewParticle(dynamo.Vec2{X: 1, Y: 2}, 7.5),
		physics.NewParticle(dynamo.Vec2{X: 3, Y: 4}, -20.1),
		physics.NewParticle(dynamo.Vec2{X: 5, Y: 6}, 0.1+2*math.Pi),
	}
	var buf bytes.Buffer
	if err := Write(&buf, ps, LayoutPositionHeading); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf, LayoutPositionHeading)
	if err != nil {
		t.Fatal(err)
	}
	for i := range ps {
		if math.Float64bits(got[i].Theta) != math.Float64bits(ps[i].Theta) {
			t.Errorf("heading %d: got %v, want %v", i, got[i].Theta, ps[i].Theta)
		}
	}
}

func TestRoundTripPositionVelocity(t *testing.T) {
	ps := population(64, 2)
	var buf bytes.Buffer
	if err := Write(&buf, ps, LayoutPositionVelocity); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf, LayoutPositionVelocity)
	if err != nil {
		t.Fatal(err)
	}
	for i := range ps {
		if got[i].Pos != ps[i].Pos {
			t.Fatalf("particle %d position changed", i)
		}
		if math.Abs(got[i].Theta-ps[i].Theta) > 1e-12 {
			t.Fatalf("particle %d heading %v, want %v", i, got[i].Theta, ps[i].Theta)
		}
	}
}

func frameHeader(n int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}

func TestReadCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"negative count", frameHeader(-1)},
		{"huge count", frameHeader(MaxParticles + 1)},
		{"truncated body", append(frameHeader(2), make([]byte, 20)...)},
		{"truncated header", []byte{1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data), LayoutPositionHeading)
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}

	if _, err := Read(bytes.NewReader(nil), LayoutPositionHeading); err != io.EOF {
		t.Errorf("expected io.EOF on empty input, got %v", err)
	}
}

func TestLoadLastFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rho=1-noise=0.1-Lx=32-Ly=32-r-v.bin")

	a, err := Create(path, LayoutPositionHeading, false)
	if err != nil {
		t.Fatal(err)
	}
	for seed := int64(1); seed <= 3; seed++ {
		if err := a.Append(population(10, seed)); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path, LayoutPositionHeading)
	if err != nil {
		t.Fatal(err)
	}
	want := population(10, 3)
	for i := range want {
		if got[i].Pos != want[i].Pos {
			t.Fatalf("expected the last frame, particle %d differs", i)
		}
	}

	// appending keeps earlier frames
	a, _ = Create(path, LayoutPositionHeading, true)
	a.Append(population(10, 4))
	a.Close()

	f, _ := os.Open(path)
	defer f.Close()
	rd := NewReader(f, LayoutPositionHeading)
	for {
		if _, err := rd.Next(); err != nil {
			break
		}
	}
	if rd.Frames() != 4 {
		t.Errorf("expected 4 frames, got %d", rd.Frames())
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.bin"), LayoutPositionHeading); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}

	empty := filepath.Join(dir, "empty.bin")
	os.WriteFile(empty, nil, 0644)
	if _, err := Load(empty, LayoutPositionHeading); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.bin")
	ps := population(5, 9)
	if err := Save(path, ps, LayoutPositionVelocity); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path, LayoutPositionVelocity)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 || got[4].Pos != ps[4].Pos {
		t.Errorf("unexpected load result %+v", got)
	}
}

func TestTrajectoriesRoundTrip(t *testing.T) {
	traj := make([][]sim.Sample, 3)
	rng := dynamo.NewRand(5)
	for d := range traj {
		for s := 0; s < 4; s++ {
			traj[d] = append(traj[d], sim.Sample{
				Pos:   dynamo.Vec2{X: rng.Uniform(0, 10), Y: rng.Uniform(0, 10)},
				Theta: rng.Angle(),
			})
		}
	}

	var buf bytes.Buffer
	if err := WriteTrajectories(&buf, traj); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4*(4+3*32) {
		t.Errorf("unexpected size %d", buf.Len())
	}
	if n := int32(binary.LittleEndian.Uint32(buf.Bytes())); n != 3 {
		t.Errorf("record header should hold the direction count, got %d", n)
	}

	got, err := ReadTrajectories(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || len(got[0]) != 4 {
		t.Fatalf("unexpected shape %dx%d", len(got), len(got[0]))
	}
	for d := range traj {
		for s := range traj[d] {
			if got[d][s].Pos != traj[d][s].Pos {
				t.Errorf("direction %d sample %d position changed", d, s)
			}
			if math.Abs(got[d][s].Theta-traj[d][s].Theta) > 1e-12 {
				t.Errorf("direction %d sample %d heading changed", d, s)
			}
		}
	}

	ragged := [][]sim.Sample{traj[0], traj[1][:2]}
	if err := WriteTrajectories(&buf, ragged); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNameCodec(t *testing.T) {
	params := Params{
		{"rho", 1.5}, {"k", -40}, {"mu+", 1}, {"mu-", 0.25}, {"Dphi", 1e-05}, {"L", 32},
	}
	name := EncodeName(params)
	if name != "rho=1.5-k=-40-mu+=1-mu-=0.25-Dphi=1e-05-L=32-r-v.bin" {
		t.Errorf("unexpected name %q", name)
	}

	got, err := DecodeName(filepath.Join("runs", name))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(params) {
		t.Fatalf("expected %d params, got %v", len(params), got)
	}
	for i := range params {
		if got[i] != params[i] {
			t.Errorf("param %d: expected %+v, got %+v", i, params[i], got[i])
		}
	}
}

func TestDecodeNameErrors(t *testing.T) {
	for _, name := range []string{
		"rho=1-L=32.bin",
		"rho=-L=32-r-v.bin",
		"=1-r-v.bin",
		"rho=1x-r-v.bin",
	} {
		if _, err := DecodeName(name); !errors.Is(err, dynamo.ErrConfig) {
			t.Errorf("%q: expected ErrConfig, got %v", name, err)
		}
	}
}

func TestCheckDomain(t *testing.T) {
	box := dynamo.NewBox(32, 32)
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"square match", Params{{"L", 32}}, false},
		{"square mismatch", Params{{"L", 64}}, true},
		{"rect match", Params{{"Lx", 32}, {"Ly", 32}}, false},
		{"rect mismatch", Params{{"Lx", 32}, {"Ly", 16}}, true},
		{"missing", Params{{"rho", 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDomain(tt.params, box)
			if tt.wantErr != (err != nil) {
				t.Fatalf("unexpected result %v", err)
			}
			if err != nil && !errors.Is(err, dynamo.ErrDomainMismatch) {
				t.Errorf("expected ErrDomainMismatch, got %v", err)
			}
		})
	}
}
