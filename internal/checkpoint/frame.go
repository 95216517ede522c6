// Package checkpoint reads and writes particle snapshots, tracked
// trajectories and the parameter-encoded run names.
//
// All binary data is little-endian. A frame is an int32 particle count
// followed by one fixed-size record of float64s per particle.
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
	"github.com/san-kum/flocksim/internal/physics"
)

var (
	ErrCorrupt = errors.New("checkpoint: corrupt data")
	ErrOpen    = errors.New("checkpoint: cannot open file")
)

// MaxParticles bounds the count a frame may declare.
const MaxParticles = 1_000_000

// Layout selects the per-particle record.
type Layout int

const (
	// LayoutPositionVelocity stores x, y, vx, vy with v the heading unit
	// vector. The heading is recovered with atan2 on read, so it comes
	// back folded into (-π, π] and only equal to the saved θ up to rounding.
	// Use LayoutPositionHeading when headings must round-trip exactly.
	LayoutPositionVelocity Layout = iota
	// LayoutPositionHeading stores x, y, θ.
	LayoutPositionHeading
)

func (l Layout) width() int {
	if l == LayoutPositionHeading {
		return 3
	}
	return 4
}

func (l Layout) String() string {
	if l == LayoutPositionHeading {
		return "position-heading"
	}
	return "position-velocity"
}

func ParseLayout(s string) (Layout, error) {
	switch s {
	case "position-velocity", "":
		return LayoutPositionVelocity, nil
	case "position-heading":
		return LayoutPositionHeading, nil
	}
	return 0, fmt.Errorf("%w: unknown checkpoint layout %q", dynamo.ErrConfig, s)
}

// Write encodes one frame.
func Write(w io.Writer, ps []physics.Particle, layout Layout) error {
	if len(ps) > MaxParticles {
		return fmt.Errorf("%w: %d particles exceed the limit of %d", dynamo.ErrConfig, len(ps), MaxParticles)
	}
	width := layout.width()
	buf := make([]byte, 4+8*width*len(ps))
	binary.LittleEndian.PutUint32(buf, uint32(int32(len(ps))))

	off := 4
	put := func(v float64) {
		binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
		off += 8
	}
	for _, p := range ps {
		put(p.Pos.X)
		put(p.Pos.Y)
		if layout == LayoutPositionHeading {
			put(p.Theta)
		} else {
			put(p.Vel.X)
			put(p.Vel.Y)
		}
	}

	_, err := w.Write(buf)
	return err
}

// Read decodes one frame. It returns io.EOF if r is exhausted before the
// header, and ErrCorrupt for an implausible count or a truncated frame.
func Read(r io.Reader, layout Layout) ([]physics.Particle, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: truncated header: %v", ErrCorrupt, err)
	}

	n := int32(binary.LittleEndian.Uint32(header[:]))
	if n < 0 || n > MaxParticles {
		return nil, fmt.Errorf("%w: particle count %d", ErrCorrupt, n)
	}

	width := layout.width()
	buf := make([]byte, 8*width*int(n))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: truncated frame of %d particles: %v", ErrCorrupt, n, err)
	}

	off := 0
	get := func() float64 {
		v := math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
		return v
	}

	ps := make([]physics.Particle, n)
	for i := range ps {
		pos := dynamo.Vec2{X: get(), Y: get()}
		if layout == LayoutPositionHeading {
			ps[i] = physics.NewParticle(pos, get())
			continue
		}
		v := dynamo.Vec2{X: get(), Y: get()}
		ps[i] = physics.NewParticle(pos, v.Angle())
	}
	return ps, nil
}

// Reader iterates the frames of a stream.
type Reader struct {
	r      *bufio.Reader
	layout Layout
	frames int
}

func NewReader(r io.Reader, layout Layout) *Reader {
	return &Reader{r: bufio.NewReader(r), layout: layout}
}

// Next returns the next frame, or io.EOF after the last one.
func (rd *Reader) Next() ([]physics.Particle, error) {
	ps, err := Read(rd.r, rd.layout)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("frame %d: %w", rd.frames, err)
	}
	rd.frames++
	return ps, nil
}

func (rd *Reader) Frames() int { return rd.frames }

// Save writes a single-frame checkpoint.
func Save(path string, ps []physics.Particle, layout Layout) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	w := bufio.NewWriter(f)
	if err := Write(w, ps, layout); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load returns the last frame stored at path.
func Load(path string, layout Layout) ([]physics.Particle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	defer f.Close()

	rd := NewReader(f, layout)
	var last []physics.Particle
	for {
		ps, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		last = ps
	}
	if rd.Frames() == 0 {
		return nil, fmt.Errorf("%w: %s holds no frame", ErrCorrupt, path)
	}
	return last, nil
}

// Appender writes one frame per call to a growing file.
type Appender struct {
	f      *os.File
	w      *bufio.Writer
	layout Layout
	frames int
}

// Create truncates path and returns an Appender on it. With appendMode the
// existing frames are kept.
func Create(path string, layout Layout, appendMode bool) (*Appender, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	return &Appender{f: f, w: bufio.NewWriter(f), layout: layout}, nil
}

func (a *Appender) Append(ps []physics.Particle) error {
	if err := Write(a.w, ps, a.layout); err != nil {
		return err
	}
	a.frames++
	return a.w.Flush()
}

func (a *Appender) Frames() int { return a.frames }

func (a *Appender) Close() error {
	if err := a.w.Flush(); err != nil {
		a.f.Close()
		return err
	}
	return a.f.Close()
}
