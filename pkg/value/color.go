package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/odvcencio/dashcore/pkg/revive"
)

var defaultColor = [4]float64{0, 0, 0, 1}

// Channel attribute names used in change events.
const (
	AttrR = "r"
	AttrG = "g"
	AttrB = "b"
	AttrA = "a"
)

// Color is an RGBA color. r, g and b are clamped to [0,255] and a to [0,1].
// The hex strings and the HSV triple are computed on first read and cached
// until a channel changes. The zero value is usable as transparent black.
type Color struct {
	vec

	hsv     *[3]float64
	hex     string
	hexA    string
	hexDone [2]bool
}

// NewColor builds a Color from any shape ColorArgs accepts.
func NewColor(src ...any) *Color {
	return fromColor(ColorArgs(src...))
}

func fromColor(c [4]float64) *Color {
	return &Color{vec: vec{c: clampColor(c)}}
}

func clampColor(c [4]float64) [4]float64 {
	return [4]float64{
		clamp(c[0], 0, 255),
		clamp(c[1], 0, 255),
		clamp(c[2], 0, 255),
		clamp(c[3], 0, 1),
	}
}

// ColorArgs normalises src to clamped (r, g, b, a).
//
// Accepted shapes: nothing (opaque black); a Color or Vec3/Vec4 pointer;
// one number (gray); two numbers (gray, alpha); three (r, g, b); four
// (r, g, b, a), given variadically or as a slice; a map with r/g/b/a keys;
// a CSS string: #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(...) or rgba(...).
// Anything else yields opaque black.
func ColorArgs(src ...any) [4]float64 {
	return clampColor(colorArgs(src))
}

func colorArgs(src []any) [4]float64 {
	if len(src) == 0 {
		return defaultColor
	}
	if len(src) == 1 {
		switch x := src[0].(type) {
		case string:
			if c, ok := parseColor(x); ok {
				return c
			}
			return defaultColor
		case componentSource:
			n, c := x.components()
			switch n {
			case 3:
				return [4]float64{c[0], c[1], c[2], 1}
			case 4:
				return c
			}
			return defaultColor
		case map[string]any:
			return [4]float64{field(x, "r", 0), field(x, "g", 0), field(x, "b", 0), field(x, "a", 1)}
		}
	}
	nums, ok := numbers(flatten(src))
	if !ok {
		return defaultColor
	}
	switch len(nums) {
	case 1:
		return [4]float64{nums[0], nums[0], nums[0], 1}
	case 2:
		return [4]float64{nums[0], nums[0], nums[0], nums[1]}
	case 3:
		return [4]float64{nums[0], nums[1], nums[2], 1}
	case 4:
		return [4]float64{nums[0], nums[1], nums[2], nums[3]}
	}
	return defaultColor
}

func parseColor(s string) ([4]float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	case strings.HasPrefix(s, "rgba(") || strings.HasPrefix(s, "rgb("):
		return parseFunc(s)
	}
	return [4]float64{}, false
}

func parseHex(s string) ([4]float64, bool) {
	alpha := 1.0
	switch len(s) {
	case 5:
		a, err := strconv.ParseUint(s[4:5], 16, 8)
		if err != nil {
			return [4]float64{}, false
		}
		alpha = float64(a*17) / 255
		s = s[:4]
	case 9:
		a, err := strconv.ParseUint(s[7:9], 16, 8)
		if err != nil {
			return [4]float64{}, false
		}
		alpha = float64(a) / 255
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return [4]float64{}, false
	}
	r, g, b := c.RGB255()
	return [4]float64{float64(r), float64(g), float64(b), alpha}, true
}

func parseFunc(s string) ([4]float64, bool) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return [4]float64{}, false
	}
	fields := strings.FieldsFunc(s[open+1:end], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(fields) != 3 && len(fields) != 4 {
		return [4]float64{}, false
	}
	out := [4]float64{0, 0, 0, 1}
	for i, f := range fields {
		scale := 255.0
		if i == 3 {
			scale = 1
		}
		if pct, ok := strings.CutSuffix(f, "%"); ok {
			v, err := strconv.ParseFloat(pct, 64)
			if err != nil {
				return [4]float64{}, false
			}
			out[i] = v / 100 * scale
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return [4]float64{}, false
		}
		out[i] = v
	}
	return out, true
}

func (c *Color) invalidate() {
	c.hsv = nil
	c.hexDone = [2]bool{}
}

func (c *Color) setChannel(i int, v float64) error {
	if i == 3 {
		v = clamp(v, 0, 1)
	} else {
		v = clamp(v, 0, 255)
	}
	if c.c[i] == v {
		return nil
	}
	c.invalidate()
	return c.setAxis(i, v)
}

func (c *Color) setAxis(i int, v float64) error {
	old := c.c[i]
	c.c[i] = v
	return c.Change(colorAttrs[i], old, v)
}

var colorAttrs = [4]string{AttrR, AttrG, AttrB, AttrA}

func (c *Color) assign(v [4]float64) error {
	v = clampColor(v)
	for i := range v {
		if err := c.setChannel(i, v[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Color) R() float64 { return c.c[0] }
func (c *Color) G() float64 { return c.c[1] }
func (c *Color) B() float64 { return c.c[2] }
func (c *Color) A() float64 { return c.c[3] }

func (c *Color) SetR(v float64) error { return c.setChannel(0, v) }
func (c *Color) SetG(v float64) error { return c.setChannel(1, v) }
func (c *Color) SetB(v float64) error { return c.setChannel(2, v) }
func (c *Color) SetA(v float64) error { return c.setChannel(3, v) }

// RGBA returns the channels.
func (c *Color) RGBA() [4]float64 { return c.c }

// Set assigns every channel from src, posting one change per differing channel.
func (c *Color) Set(src ...any) error { return c.assign(colorArgs(src)) }

func (c *Color) colorful() colorful.Color {
	return colorful.Color{R: c.c[0] / 255, G: c.c[1] / 255, B: c.c[2] / 255}
}

// HSV returns hue in degrees [0,360) and saturation and value in [0,1].
func (c *Color) HSV() [3]float64 {
	if c.hsv == nil {
		h, s, v := c.colorful().Hsv()
		c.hsv = &[3]float64{h, s, v}
	}
	return *c.hsv
}

func (c *Color) H() float64 { return c.HSV()[0] }
func (c *Color) S() float64 { return c.HSV()[1] }
func (c *Color) V() float64 { return c.HSV()[2] }

// SetHSV assigns r, g and b from a hue in degrees and saturation and value
// in [0,1]. Alpha is kept.
func (c *Color) SetHSV(h, s, v float64) error {
	hc := colorful.Hsv(math.Mod(math.Mod(h, 360)+360, 360), clamp(s, 0, 1), clamp(v, 0, 1))
	return c.assign([4]float64{hc.R * 255, hc.G * 255, hc.B * 255, c.c[3]})
}

// ToHex formats the color as #rrggbb, or #rrggbbaa when alpha is true.
func (c *Color) ToHex(alpha bool) string {
	idx := 0
	if alpha {
		idx = 1
	}
	if c.hexDone[idx] {
		if alpha {
			return c.hexA
		}
		return c.hex
	}
	s := fmt.Sprintf("#%02x%02x%02x", byteOf(c.c[0]), byteOf(c.c[1]), byteOf(c.c[2]))
	if alpha {
		s += fmt.Sprintf("%02x", byteOf(c.c[3]*255))
		c.hexA = s
	} else {
		c.hex = s
	}
	c.hexDone[idx] = true
	return s
}

func byteOf(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 255)))
}

func (c *Color) combineColor(src []any, op func(a, b float64) float64) [4]float64 {
	return clampColor(c.combine(4, colorArgs(src), op))
}

func (c *Color) Add(src ...any) *Color { return fromColor(c.combineColor(src, opAdd)) }
func (c *Color) Sub(src ...any) *Color { return fromColor(c.combineColor(src, opSub)) }
func (c *Color) Mul(src ...any) *Color { return fromColor(c.combineColor(src, opMul)) }
func (c *Color) Div(src ...any) *Color { return fromColor(c.combineColor(src, opDiv)) }
func (c *Color) Pow(src ...any) *Color { return fromColor(c.combineColor(src, pow)) }

// IAdd and the other in-place operators mutate c and return it. Handler
// errors are kept for Err.
func (c *Color) IAdd(src ...any) *Color { c.keep(c.assign(c.combineColor(src, opAdd))); return c }
func (c *Color) ISub(src ...any) *Color { c.keep(c.assign(c.combineColor(src, opSub))); return c }
func (c *Color) IMul(src ...any) *Color { c.keep(c.assign(c.combineColor(src, opMul))); return c }
func (c *Color) IDiv(src ...any) *Color { c.keep(c.assign(c.combineColor(src, opDiv))); return c }
func (c *Color) IPow(src ...any) *Color { c.keep(c.assign(c.combineColor(src, pow))); return c }

// Lerp interpolates every channel, alpha included, towards to by t.
func (c *Color) Lerp(to any, t float64) *Color {
	return fromColor(c.lerp(4, colorArgs([]any{to}), t))
}

// Equals coerces src and compares every channel exactly.
func (c *Color) Equals(src ...any) bool {
	return c.equals(4, ColorArgs(src...))
}

// Clone returns a copy without handlers.
func (c *Color) Clone() *Color { return fromColor(c.c) }

func (c *Color) ReviveName() string { return NameColor }

func (c *Color) components() (int, [4]float64) { return 4, c.c }

func (c *Color) String() string { return c.ToHex(true) }

// MarshalJSON writes the revivable form with (r, g, b, a) arguments.
func (c *Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(revive.RevivableOf(c, c.c[0], c.c[1], c.c[2], c.c[3]))
}

// UnmarshalJSON accepts the revivable form or any coercible JSON shape,
// including hex strings.
func (c *Color) UnmarshalJSON(data []byte) error {
	args, err := decodeJSON(data, NameColor)
	if err != nil {
		return err
	}
	return c.Set(args...)
}
