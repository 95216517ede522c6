package checkpoint

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/sim"
)

// WriteTrajectories writes one record per time sample: an int32 direction
// count, then x, y, cosθ, sinθ of the tracked particle in each direction.
// Every direction must hold the same number of samples.
func WriteTrajectories(w io.Writer, traj [][]sim.Sample) error {
	if len(traj) == 0 {
		return nil
	}
	samples := len(traj[0])
	for d, t := range traj {
		if len(t) != samples {
			return fmt.Errorf("%w: direction %d has %d samples, direction 0 has %d",
				dynamo.ErrDimensionMismatch, d, len(t), samples)
		}
	}

	buf := make([]byte, 4+32*len(traj))
	for s := 0; s < samples; s++ {
		binary.LittleEndian.PutUint32(buf, uint32(int32(len(traj))))
		off := 4
		for d := range traj {
			smp := traj[d][s]
			v := smp.Velocity()
			for _, x := range [4]float64{smp.Pos.X, smp.Pos.Y, v.X, v.Y} {
				binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(x))
				off += 8
			}
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// ReadTrajectories reverses WriteTrajectories. Headings are recovered
// from the stored unit vectors.
func ReadTrajectories(r io.Reader) ([][]sim.Sample, error) {
	br := bufio.NewReader(r)
	var traj [][]sim.Sample

	for s := 0; ; s++ {
		var header [4]byte
		if _, err := io.ReadFull(br, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return traj, nil
			}
			return nil, fmt.Errorf("%w: sample %d: truncated header", ErrCorrupt, s)
		}
		n := int(int32(binary.LittleEndian.Uint32(header[:])))
		if n < 0 || n > MaxParticles || (traj != nil && n != len(traj)) {
			return nil, fmt.Errorf("%w: sample %d declares %d directions", ErrCorrupt, s, n)
		}
		if traj == nil {
			traj = make([][]sim.Sample, n)
		}

		buf := make([]byte, 32*n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: sample %d: truncated record", ErrCorrupt, s)
		}
		for d := 0; d < n; d++ {
			var x [4]float64
			for k := range x {
				x[k] = math.Float64frombits(binary.LittleEndian.Uint64(buf[32*d+8*k:]))
			}
			traj[d] = append(traj[d], sim.Sample{
				Pos:   dynamo.Vec2{X: x[0], Y: x[1]},
				Theta: math.Atan2(x[3], x[2]),
			})
		}
	}
}

// SaveTrajectories writes traj to path.
func SaveTrajectories(path string, traj [][]sim.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	w := bufio.NewWriter(f)
	if err := WriteTrajectories(w, traj); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadTrajectories(path string) ([][]sim.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	defer f.Close()
	return ReadTrajectories(f)
}
