package physics

import (
	"fmt"

	"github.com/san-kum/flocksim/internal/dynamo"
)

// Kind selects an interaction model.
type Kind string

const (
	KindVicsek         Kind = "vicsek"
	KindVicsekVelocity Kind = "vicsek-velocity"
	KindContinuous     Kind = "continuous"
	KindZoned          Kind = "zoned"
	KindYukawa         Kind = "yukawa"
	KindPhase          Kind = "phase"
)

// Kinds lists every model in a stable order.
func Kinds() []Kind {
	return []Kind{KindVicsek, KindVicsekVelocity, KindContinuous, KindZoned, KindYukawa, KindPhase}
}

// Config is the tagged model description: Kind picks the model and only the
// matching parameter section is read.
type Config struct {
	Kind  Kind    `yaml:"kind" toml:"kind" json:"kind"`
	Speed float64 `yaml:"speed" toml:"speed" json:"speed"`
	Noise float64 `yaml:"noise" toml:"noise" json:"noise"`

	// Radius is the alignment radius of the models that have a single one.
	Radius float64 `yaml:"radius" toml:"radius" json:"radius"`

	VicsekVelocity VicsekVelocityParams `yaml:"vicsek_velocity" toml:"vicsek_velocity" json:"vicsek_velocity"`
	Continuous     ContinuousParams     `yaml:"continuous" toml:"continuous" json:"continuous"`
	Zoned          ZonedParams          `yaml:"zoned" toml:"zoned" json:"zoned"`
	Yukawa         YukawaParams         `yaml:"yukawa" toml:"yukawa" json:"yukawa"`
	Phase          PhaseParams          `yaml:"phase" toml:"phase" json:"phase"`
}

type VicsekVelocityParams struct {
	Beta float64 `yaml:"beta" toml:"beta" json:"beta"` // repulsion strength
	Rc   float64 `yaml:"rc" toml:"rc" json:"rc"`       // repulsion radius
}

type ContinuousParams struct {
	G     float64 `yaml:"g" toml:"g" json:"g"`
	Alpha float64 `yaml:"alpha" toml:"alpha" json:"alpha"` // chirality weight
	K     float64 `yaml:"k" toml:"k" json:"k"`             // positional diffusion
}

type ZonedParams struct {
	MuPlus  float64 `yaml:"mu_plus" toml:"mu_plus" json:"mu_plus"`
	MuMinus float64 `yaml:"mu_minus" toml:"mu_minus" json:"mu_minus"`
	Kappa   float64 `yaml:"kappa" toml:"kappa" json:"kappa"`
	XiR     float64 `yaml:"xi_r" toml:"xi_r" json:"xi_r"` // radial core
	XiA     float64 `yaml:"xi_a" toml:"xi_a" json:"xi_a"` // alignment zone
	Xi      float64 `yaml:"xi" toml:"xi" json:"xi"`       // outer cutoff
	DPhi    float64 `yaml:"d_phi" toml:"d_phi" json:"d_phi"`
}

type YukawaParams struct {
	G     float64 `yaml:"g" toml:"g" json:"g"`
	A     float64 `yaml:"a" toml:"a" json:"a"`
	Sigma float64 `yaml:"sigma" toml:"sigma" json:"sigma"` // core radius
	Rf    float64 `yaml:"rf" toml:"rf" json:"rf"`          // flocking radius
	Rc    float64 `yaml:"rc" toml:"rc" json:"rc"`          // repulsion cutoff
}

type PhaseParams struct {
	G     float64 `yaml:"g" toml:"g" json:"g"`
	GPhi  float64 `yaml:"g_phi" toml:"g_phi" json:"g_phi"`
	Alpha float64 `yaml:"alpha" toml:"alpha" json:"alpha"`
	RPhi  float64 `yaml:"r_phi" toml:"r_phi" json:"r_phi"`
	Dr    float64 `yaml:"dr" toml:"dr" json:"dr"`
	K     float64 `yaml:"k" toml:"k" json:"k"`
	DPhi  float64 `yaml:"d_phi" toml:"d_phi" json:"d_phi"`
	Omega float64 `yaml:"omega" toml:"omega" json:"omega"`
	VMin  float64 `yaml:"v_min" toml:"v_min" json:"v_min"`
	VMax  float64 `yaml:"v_max" toml:"v_max" json:"v_max"`
}

// DefaultConfig returns the reference parameters of a model kind.
func DefaultConfig(kind Kind) Config {
	return Config{
		Kind:           kind,
		Speed:          defaultSpeed(kind),
		Noise:          0.1,
		Radius:         1,
		VicsekVelocity: VicsekVelocityParams{Beta: 2.5, Rc: 0.127},
		Continuous:     ContinuousParams{G: 4, Alpha: 0.5},
		Zoned: ZonedParams{
			MuPlus: 1, MuMinus: 1, Kappa: 40,
			XiR: 0.1, XiA: 1, Xi: 1, DPhi: 1,
		},
		Yukawa: YukawaParams{G: 0.5, A: 10, Sigma: 0.9, Rf: 1, Rc: 1.1},
		Phase: PhaseParams{
			G: 1, GPhi: 1, Alpha: 0.5, RPhi: 1,
			K: 0.2, Omega: 1, VMin: 0.1, VMax: 1.1,
		},
	}
}

func defaultSpeed(kind Kind) float64 {
	if kind == KindVicsek || kind == KindVicsekVelocity {
		return 0.5
	}
	return 1
}

// Validate checks the section selected by Kind.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", dynamo.ErrConfig, c.Kind, fmt.Sprintf(format, args...))
	}

	if c.Speed < 0 {
		return bad("speed must be non-negative, got %g", c.Speed)
	}
	if c.Noise < 0 {
		return bad("noise must be non-negative, got %g", c.Noise)
	}

	switch c.Kind {
	case KindVicsek, KindContinuous:
		if c.Radius <= 0 {
			return bad("radius must be positive, got %g", c.Radius)
		}
	case KindVicsekVelocity:
		if c.Radius <= 0 {
			return bad("radius must be positive, got %g", c.Radius)
		}
		if c.VicsekVelocity.Rc <= 0 || c.VicsekVelocity.Rc > c.Radius {
			return bad("rc must be in (0, radius], got %g", c.VicsekVelocity.Rc)
		}
	case KindZoned:
		z := c.Zoned
		if z.Xi <= 0 || z.XiA <= 0 || z.XiA > z.Xi {
			return bad("zones must satisfy 0 < xi_a <= xi, got xi_a=%g xi=%g", z.XiA, z.Xi)
		}
		if z.XiR < 0 || z.XiR > z.Xi {
			return bad("xi_r must be in [0, xi], got %g", z.XiR)
		}
		if z.DPhi < 0 {
			return bad("d_phi must be non-negative, got %g", z.DPhi)
		}
	case KindYukawa:
		y := c.Yukawa
		if y.Sigma < 0 || y.Rc <= y.Sigma {
			return bad("repulsion needs 0 <= sigma < rc, got sigma=%g rc=%g", y.Sigma, y.Rc)
		}
		if y.Rf <= 0 {
			return bad("rf must be positive, got %g", y.Rf)
		}
	case KindPhase:
		p := c.Phase
		if c.Radius <= 0 || p.RPhi <= 0 {
			return bad("radius and r_phi must be positive")
		}
		if p.Dr < 0 || p.DPhi < 0 || p.K < 0 {
			return bad("diffusion constants must be non-negative")
		}
		if p.VMax < p.VMin {
			return bad("v_max %g is below v_min %g", p.VMax, p.VMin)
		}
	default:
		return fmt.Errorf("%w: unknown model kind %q", dynamo.ErrConfig, c.Kind)
	}
	return nil
}

// Params flattens the parameters of the selected model, for run metadata
// and run names.
func (c Config) Params() map[string]float64 {
	fields := c.fields()
	m := make(map[string]float64, len(fields))
	for k, v := range fields {
		m[k] = *v
	}
	return m
}

// SetParam sets one parameter by its Params key. It reports false for keys
// the selected model does not have.
func (c *Config) SetParam(key string, v float64) bool {
	f, ok := c.fields()[key]
	if ok {
		*f = v
	}
	return ok
}

func (c *Config) fields() map[string]*float64 {
	m := map[string]*float64{"speed": &c.Speed, "noise": &c.Noise}
	switch c.Kind {
	case KindVicsek:
		m["radius"] = &c.Radius
	case KindVicsekVelocity:
		m["radius"] = &c.Radius
		m["beta"] = &c.VicsekVelocity.Beta
		m["rc"] = &c.VicsekVelocity.Rc
	case KindContinuous:
		m["radius"] = &c.Radius
		m["g"] = &c.Continuous.G
		m["alpha"] = &c.Continuous.Alpha
		m["K"] = &c.Continuous.K
	case KindZoned:
		m["k"] = &c.Zoned.Kappa
		m["mu+"] = &c.Zoned.MuPlus
		m["mu-"] = &c.Zoned.MuMinus
		m["xi_r"] = &c.Zoned.XiR
		m["xi_a"] = &c.Zoned.XiA
		m["xi"] = &c.Zoned.Xi
		m["Dphi"] = &c.Zoned.DPhi
	case KindYukawa:
		m["g"] = &c.Yukawa.G
		m["A"] = &c.Yukawa.A
		m["sigma"] = &c.Yukawa.Sigma
		m["rf"] = &c.Yukawa.Rf
		m["rc"] = &c.Yukawa.Rc
	case KindPhase:
		m["radius"] = &c.Radius
		m["g"] = &c.Phase.G
		m["g_phi"] = &c.Phase.GPhi
		m["alpha"] = &c.Phase.Alpha
		m["r_phi"] = &c.Phase.RPhi
		m["Dr"] = &c.Phase.Dr
		m["K"] = &c.Phase.K
		m["Dphi"] = &c.Phase.DPhi
		m["omega"] = &c.Phase.Omega
		m["vmin"] = &c.Phase.VMin
		m["vmax"] = &c.Phase.VMax
	}
	return m
}
