package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
)

// Model is an interaction law together with its integration rule.
type Model interface {
	Name() string

	// Cutoff is the largest distance at which Interact can return ok.
	Cutoff() float64

	// Init prepares a freshly placed particle (derived speed, baseline sums).
	Init(p *Particle)

	// Reset puts the accumulators back to the model baseline.
	Reset(p *Particle)

	// Interact returns the contributions of the pair to a and to b.
	// ok is false when the pair is out of range and both deltas are zero.
	Interact(a, b *Particle, box dynamo.Box) (da, db Delta, ok bool)

	// Advance integrates one step of length dt and resets the accumulators.
	Advance(p *Particle, box dynamo.Box, rng *dynamo.Rand, dt float64)
}

// New builds the model described by cfg. dt is needed by the models whose
// noise amplitudes are derived from diffusion constants.
func New(cfg Config, dt float64) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dt <= 0 {
		return nil, fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrConfig, dt)
	}

	switch cfg.Kind {
	case KindVicsek:
		return newVicsek(cfg), nil
	case KindVicsekVelocity:
		return newVicsekVelocity(cfg), nil
	case KindContinuous:
		return newContinuous(cfg, dt), nil
	case KindZoned:
		return newZoned(cfg, dt), nil
	case KindYukawa:
		return newYukawa(cfg), nil
	case KindPhase:
		return newPhase(cfg, dt), nil
	}
	return nil, fmt.Errorf("%w: unknown model kind %q", dynamo.ErrConfig, cfg.Kind)
}

// base carries the parameters every model shares.
type base struct {
	kind   Kind
	speed  float64
	noise  float64
	radius float64
}

func (b base) Name() string    { return string(b.kind) }
func (b base) Cutoff() float64 { return b.radius }

// alignment is the sine coupling that turns a toward b.
func alignment(a, b *Particle) float64 {
	return math.Sin(b.Theta - a.Theta)
}

// move advances the position by disp and wraps it.
func move(p *Particle, box dynamo.Box, disp dynamo.Vec2) {
	p.Pos = box.Wrap(p.Pos.Add(disp))
}

func diffusionAmplitude(d, dt float64) float64 {
	return math.Sqrt(2 * d / dt)
}
