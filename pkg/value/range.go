package value

import (
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/odvcencio/dashcore/pkg/revive"
	"github.com/odvcencio/dashcore/pkg/target"
)

// Range attribute names used in change events. The right bound shares AttrR
// with Color's red channel.
const (
	AttrL        = "l"
	AttrLInclude = "lInclude"
	AttrRInclude = "rInclude"
)

// Bounds is the canonical form of a Range.
type Bounds struct {
	L, R               float64
	LInclude, RInclude bool
}

// Unbounded is the default range: everything, both ends inclusive.
var Unbounded = Bounds{L: math.Inf(-1), R: math.Inf(1), LInclude: true, RInclude: true}

// Range is an interval with independently inclusive ends. Infinite bounds are
// allowed and are written as null in JSON.
type Range struct {
	target.Target

	b Bounds
}

// NewRange builds a Range from any shape RangeArgs accepts.
func NewRange(src ...any) *Range {
	return &Range{b: RangeArgs(src...)}
}

// RangeArgs normalises src to Bounds.
//
// Accepted shapes: nothing (Unbounded); a Range pointer or Bounds; a single
// number n (the closed range [n, n]); two bounds given variadically or as a
// slice, optionally followed by the two inclusivity flags; a Vec2 (x, y);
// a map with l, r, lInclude and rInclude keys. A nil bound is infinite and
// missing flags are true. Anything else yields Unbounded.
func RangeArgs(src ...any) Bounds {
	if len(src) == 0 {
		return Unbounded
	}
	if len(src) == 1 {
		switch x := src[0].(type) {
		case *Range:
			return x.b
		case Bounds:
			return x
		case *Vec2:
			return Bounds{L: x.c[0], R: x.c[1], LInclude: true, RInclude: true}
		case map[string]any:
			return Bounds{
				L:        bound(x[AttrL], math.Inf(-1)),
				R:        bound(x[AttrR], math.Inf(1)),
				LInclude: flag(x[AttrLInclude]),
				RInclude: flag(x[AttrRInclude]),
			}
		}
		if f, ok := toFloat(src[0]); ok {
			return Bounds{L: f, R: f, LInclude: true, RInclude: true}
		}
	}
	flat := flatten(src)
	if len(flat) != 2 && len(flat) != 4 {
		return Unbounded
	}
	if !isBound(flat[0]) || !isBound(flat[1]) {
		return Unbounded
	}
	b := Bounds{L: bound(flat[0], math.Inf(-1)), R: bound(flat[1], math.Inf(1)), LInclude: true, RInclude: true}
	if len(flat) == 4 {
		li, ok1 := flat[2].(bool)
		ri, ok2 := flat[3].(bool)
		if !ok1 || !ok2 {
			return Unbounded
		}
		b.LInclude, b.RInclude = li, ri
	}
	return b
}

func isBound(v any) bool {
	if v == nil {
		return true
	}
	_, ok := toFloat(v)
	return ok
}

func bound(v any, inf float64) float64 {
	if f, ok := toFloat(v); ok && !math.IsNaN(f) {
		return f
	}
	return inf
}

func flag(v any) bool {
	b, ok := v.(bool)
	return !ok || b
}

func (r *Range) L() float64      { return r.b.L }
func (r *Range) R() float64      { return r.b.R }
func (r *Range) LInclude() bool  { return r.b.LInclude }
func (r *Range) RInclude() bool  { return r.b.RInclude }
func (r *Range) Bounds() Bounds  { return r.b }
func (r *Range) Bounded() bool   { return !math.IsInf(r.b.L, 0) && !math.IsInf(r.b.R, 0) }
func (r *Range) Width() float64  { return r.b.R - r.b.L }
func (r *Range) Center() float64 { return r.Lerp(0.5) }

func (r *Range) SetL(v float64) error {
	old := r.b.L
	if old == v {
		return nil
	}
	r.b.L = v
	return r.Change(AttrL, old, v)
}

func (r *Range) SetR(v float64) error {
	old := r.b.R
	if old == v {
		return nil
	}
	r.b.R = v
	return r.Change(AttrR, old, v)
}

func (r *Range) SetLInclude(v bool) error {
	old := r.b.LInclude
	if old == v {
		return nil
	}
	r.b.LInclude = v
	return r.Change(AttrLInclude, old, v)
}

func (r *Range) SetRInclude(v bool) error {
	old := r.b.RInclude
	if old == v {
		return nil
	}
	r.b.RInclude = v
	return r.Change(AttrRInclude, old, v)
}

// Set assigns from any shape RangeArgs accepts.
func (r *Range) Set(src ...any) error {
	b := RangeArgs(src...)
	if err := r.SetL(b.L); err != nil {
		return err
	}
	if err := r.SetR(b.R); err != nil {
		return err
	}
	if err := r.SetLInclude(b.LInclude); err != nil {
		return err
	}
	return r.SetRInclude(b.RInclude)
}

// Test reports whether v lies in the range, honouring each end's
// inclusivity. NaN is never inside.
func (r *Range) Test(v float64) bool {
	lOK := v > r.b.L || (r.b.LInclude && v == r.b.L)
	rOK := v < r.b.R || (r.b.RInclude && v == r.b.R)
	return lOK && rOK
}

// Clamp limits v to [L, R]. An exclusive end still clamps to the bound
// itself since there is no nearest value inside.
func (r *Range) Clamp(v float64) float64 {
	return math.Max(r.b.L, math.Min(r.b.R, v))
}

// Lerp maps t in [0,1] onto the range. It returns NaN when either bound is
// infinite.
func (r *Range) Lerp(t float64) float64 {
	if !r.Bounded() {
		return math.NaN()
	}
	return r.b.L + (r.b.R-r.b.L)*t
}

// Equals coerces src and compares bounds and flags.
func (r *Range) Equals(src ...any) bool {
	return r.b == RangeArgs(src...)
}

// Clone returns a copy without handlers.
func (r *Range) Clone() *Range { return &Range{b: r.b} }

func (r *Range) ReviveName() string { return NameRange }

func (r *Range) String() string {
	open, end := "(", ")"
	if r.b.LInclude {
		open = "["
	}
	if r.b.RInclude {
		end = "]"
	}
	return open + strconv.FormatFloat(r.b.L, 'g', -1, 64) + ", " + strconv.FormatFloat(r.b.R, 'g', -1, 64) + end
}

func jsonBound(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return v
}

// MarshalJSON writes the revivable form with (l, r, lInclude, rInclude)
// arguments.
func (r *Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(revive.RevivableOf(r, jsonBound(r.b.L), jsonBound(r.b.R), r.b.LInclude, r.b.RInclude))
}

// UnmarshalJSON accepts the revivable form or any coercible JSON shape.
func (r *Range) UnmarshalJSON(data []byte) error {
	args, err := decodeJSON(data, NameRange)
	if err != nil {
		return err
	}
	return r.Set(args...)
}
