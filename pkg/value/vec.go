package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/odvcencio/dashcore/pkg/target"
)

var axes = [4]string{"x", "y", "z", "w"}

// vec is the storage shared by Vec1..Vec4 and Color. The dimension belongs
// to the embedding type, which passes it to every helper, so a zero-value
// VecN is a usable zero vector.
type vec struct {
	target.Target

	c   [4]float64
	err error
}

func (v *vec) setAxis(i int, x float64) error {
	old := v.c[i]
	if old == x {
		return nil
	}
	v.c[i] = x
	return v.Change(axes[i], old, x)
}

func (v *vec) assign(n int, c [4]float64) error {
	for i := 0; i < n; i++ {
		if err := v.setAxis(i, c[i]); err != nil {
			return err
		}
	}
	return nil
}

// keep records the first dispatch error of a chained in-place operation.
func (v *vec) keep(err error) {
	if err != nil && v.err == nil {
		v.err = err
	}
}

// Err returns and clears the first change handler error raised by an
// in-place operation since the last call.
func (v *vec) Err() error {
	err := v.err
	v.err = nil
	return err
}

func (v *vec) combine(n int, other [4]float64, op func(a, b float64) float64) [4]float64 {
	var out [4]float64
	for i := 0; i < n; i++ {
		out[i] = op(v.c[i], other[i])
	}
	return out
}

func (v *vec) lerp(n int, other [4]float64, t float64) [4]float64 {
	return v.combine(n, other, func(a, b float64) float64 { return a + (b-a)*t })
}

func (v *vec) equals(n int, other [4]float64) bool {
	for i := 0; i < n; i++ {
		if v.c[i] != other[i] {
			return false
		}
	}
	return true
}

func (v *vec) jsonArgs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = v.c[i]
	}
	return out
}

func (v *vec) format(name string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strconv.FormatFloat(v.c[i], 'g', -1, 64)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func opAdd(a, b float64) float64 { return a + b }
func opSub(a, b float64) float64 { return a - b }
func opMul(a, b float64) float64 { return a * b }
func opDiv(a, b float64) float64 { return a / b }

// vecArgs normalises src to n components.
//
// Accepted shapes: nothing (zero vector); a single number (broadcast to
// every component); several numbers or a numeric slice (positional, missing
// components are zero); a Vec or Color pointer (leading components, missing
// ones zero); a map with x/y/z/w keys. Anything else yields the zero vector.
func vecArgs(n int, src []any) [4]float64 {
	var out [4]float64
	if len(src) == 1 {
		switch x := src[0].(type) {
		case componentSource:
			m, c := x.components()
			copy(out[:min(m, n)], c[:min(m, n)])
			return out
		case map[string]any:
			for i := 0; i < n; i++ {
				out[i] = field(x, axes[i], 0)
			}
			return out
		}
		if f, ok := toFloat(src[0]); ok {
			for i := 0; i < n; i++ {
				out[i] = f
			}
			return out
		}
	}
	flat := flatten(src)
	nums, ok := numbers(flat)
	if !ok {
		return out
	}
	if len(nums) == 1 && len(src) == 1 {
		// A one-element slice broadcasts like a bare number.
		for i := 0; i < n; i++ {
			out[i] = nums[0]
		}
		return out
	}
	copy(out[:n], nums[:min(len(nums), n)])
	return out
}

func pow(a, b float64) float64 { return math.Pow(a, b) }
