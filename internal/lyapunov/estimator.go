package lyapunov

import (
	"fmt"
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
)

type Mode string

const (
	RenormNone        Mode = "none"
	RenormIndependent Mode = "independent"
	RenormGramSchmidt Mode = "gram-schmidt"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case RenormNone, RenormIndependent, RenormGramSchmidt:
		return m, nil
	case "":
		return RenormNone, nil
	}
	return "", fmt.Errorf("%w: unknown renormalization %q", dynamo.ErrConfig, s)
}

// Estimator accumulates log growth of the deviations and turns it into
// exponent estimates.
type Estimator struct {
	mode    Mode
	initial []float64
	logs    []float64
	elapsed float64
}

// NewEstimator starts from the initial norm of every direction.
func NewEstimator(mode Mode, initial []float64) (*Estimator, error) {
	for i, n := range initial {
		if n <= 0 {
			return nil, fmt.Errorf("%w: direction %d has zero initial norm", dynamo.ErrConfig, i)
		}
	}
	return &Estimator{
		mode:    mode,
		initial: append([]float64(nil), initial...),
		logs:    make([]float64, len(initial)),
	}, nil
}

func (e *Estimator) Mode() Mode { return e.mode }

// Renormalize records the growth of devs over interval. Depending on the
// mode devs are rescaled in place (and orthogonalized) afterwards; the
// caller reapplies them to the reference.
func (e *Estimator) Renormalize(devs []Vector, interval float64) error {
	if len(devs) != len(e.initial) {
		return fmt.Errorf("%w: estimator tracks %d directions, got %d",
			dynamo.ErrDimensionMismatch, len(e.initial), len(devs))
	}
	e.elapsed += interval

	switch e.mode {
	case RenormNone:
		for i, v := range devs {
			e.logs[i] = math.Log(v.Norm() / e.initial[i])
		}
	case RenormIndependent:
		for i, v := range devs {
			n := v.Norm()
			e.logs[i] += math.Log(n / e.initial[i])
			v.Scale(e.initial[i] / n)
		}
	case RenormGramSchmidt:
		gramSchmidt(devs, e.initial, e.logs)
	default:
		return fmt.Errorf("%w: unknown renormalization %q", dynamo.ErrConfig, e.mode)
	}
	return nil
}

// gramSchmidt orthogonalizes devs in order, adds log(r_ii / n0_i) to logs
// and rescales each vector back to its initial norm.
func gramSchmidt(devs []Vector, initial, logs []float64) {
	for i, v := range devs {
		for j := 0; j < i; j++ {
			u := devs[j]
			// devs[j] already has norm initial[j]
			v.AddScaled(u, -v.Dot(u)/(initial[j]*initial[j]))
		}
		r := v.Norm()
		logs[i] += math.Log(r / initial[i])
		v.Scale(initial[i] / r)
	}
}

// Exponents returns the accumulated log growth per unit time.
func (e *Estimator) Exponents() []float64 {
	out := make([]float64, len(e.logs))
	if e.elapsed == 0 {
		return out
	}
	for i, l := range e.logs {
		out[i] = l / e.elapsed
	}
	return out
}

func (e *Estimator) Elapsed() float64 { return e.elapsed }
