package checkpoint

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/san-kum/flocksim/internal/dynamo"
)

// NameSuffix ends every run file name.
const NameSuffix = "-r-v.bin"

// Param is one key=value token of a run name.
type Param struct {
	Key   string
	Value float64
}

// Params keeps the token order of a run name.
type Params []Param

func (ps Params) Get(key string) (float64, bool) {
	for _, p := range ps {
		if p.Key == key {
			return p.Value, true
		}
	}
	return 0, false
}

// EncodeName joins params as key=value tokens separated by "-" and adds
// NameSuffix, e.g. rho=1-k=40-mu+=1-mu-=1-Dphi=0.1-L=32-r-v.bin.
func EncodeName(params Params) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(p.Value, 'g', -1, 64))
	}
	b.WriteString(NameSuffix)
	return b.String()
}

var number = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)

// DecodeName parses the parameters out of a run file name. Directories
// are ignored. Keys may contain "+" and "-" and values may be negative.
func DecodeName(name string) (Params, error) {
	base := filepath.Base(name)
	rest, ok := strings.CutSuffix(base, NameSuffix)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not end in %s", dynamo.ErrConfig, base, NameSuffix)
	}

	var params Params
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("%w: malformed token %q in %q", dynamo.ErrConfig, rest, base)
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		num := number.FindString(rest)
		if num == "" {
			return nil, fmt.Errorf("%w: key %q has no numeric value in %q", dynamo.ErrConfig, key, base)
		}
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", dynamo.ErrConfig, key, err)
		}
		params = append(params, Param{Key: key, Value: v})

		rest = rest[len(num):]
		if rest == "" {
			break
		}
		if rest[0] != '-' {
			return nil, fmt.Errorf("%w: unexpected %q after %s=%s", dynamo.ErrConfig, rest, key, num)
		}
		rest = rest[1:]
	}
	return params, nil
}

// CheckDomain rejects params whose encoded domain size differs from box.
// Square runs encode L, rectangular ones Lx and Ly.
func CheckDomain(params Params, box dynamo.Box) error {
	checked := false
	check := func(key string, want float64) error {
		got, ok := params.Get(key)
		if !ok {
			return nil
		}
		checked = true
		if math.Abs(got-want) > 1e-9*math.Max(1, want) {
			return fmt.Errorf("%w: file encodes %s=%g, domain is %g", dynamo.ErrDomainMismatch, key, got, want)
		}
		return nil
	}

	if box.Lx == box.Ly {
		if err := check("L", box.Lx); err != nil {
			return err
		}
	}
	if err := check("Lx", box.Lx); err != nil {
		return err
	}
	if err := check("Ly", box.Ly); err != nil {
		return err
	}
	if !checked {
		if _, ok := params.Get("L"); ok {
			return fmt.Errorf("%w: file encodes a square domain, domain is %gx%g", dynamo.ErrDomainMismatch, box.Lx, box.Ly)
		}
		return fmt.Errorf("%w: no domain size encoded", dynamo.ErrDomainMismatch)
	}
	return nil
}
