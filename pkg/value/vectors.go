package value

import (
	"github.com/goccy/go-json"

	"github.com/odvcencio/dashcore/pkg/revive"
)

// Vec1 is a one-component vector. Setters post change events named
// after the axis ("x").
type Vec1 struct{ vec }

// NewVec1 builds a Vec1 from any shape Vec1Args accepts.
func NewVec1(src ...any) *Vec1 {
	return fromVec1(vecArgs(1, src))
}

func fromVec1(c [4]float64) *Vec1 {
	return &Vec1{vec{c: c}}
}

// Vec1Args normalises src to (x). See vecArgs for the accepted shapes.
func Vec1Args(src ...any) [1]float64 {
	c := vecArgs(1, src)
	return [1]float64{c[0]}
}

// X returns the x component.
func (v *Vec1) X() float64 { return v.c[0] }

// SetX assigns the x component.
func (v *Vec1) SetX(x float64) error { return v.setAxis(0, x) }

// Array returns the components.
func (v *Vec1) Array() [1]float64 {
	return [1]float64{v.c[0]}
}

// Set assigns every component from src, posting one change per differing axis.
func (v *Vec1) Set(src ...any) error { return v.assign(1, vecArgs(1, src)) }

func (v *Vec1) Add(src ...any) *Vec1 { return fromVec1(v.combine(1, vecArgs(1, src), opAdd)) }
func (v *Vec1) Sub(src ...any) *Vec1 { return fromVec1(v.combine(1, vecArgs(1, src), opSub)) }
func (v *Vec1) Mul(src ...any) *Vec1 { return fromVec1(v.combine(1, vecArgs(1, src), opMul)) }
func (v *Vec1) Div(src ...any) *Vec1 { return fromVec1(v.combine(1, vecArgs(1, src), opDiv)) }
func (v *Vec1) Pow(src ...any) *Vec1 { return fromVec1(v.combine(1, vecArgs(1, src), pow)) }

// IAdd and the other in-place operators mutate v and return it. Handler
// errors are kept for Err.
func (v *Vec1) IAdd(src ...any) *Vec1 { v.keep(v.assign(1, v.combine(1, vecArgs(1, src), opAdd))); return v }
func (v *Vec1) ISub(src ...any) *Vec1 { v.keep(v.assign(1, v.combine(1, vecArgs(1, src), opSub))); return v }
func (v *Vec1) IMul(src ...any) *Vec1 { v.keep(v.assign(1, v.combine(1, vecArgs(1, src), opMul))); return v }
func (v *Vec1) IDiv(src ...any) *Vec1 { v.keep(v.assign(1, v.combine(1, vecArgs(1, src), opDiv))); return v }
func (v *Vec1) IPow(src ...any) *Vec1 { v.keep(v.assign(1, v.combine(1, vecArgs(1, src), pow))); return v }

// Lerp interpolates towards to by t.
func (v *Vec1) Lerp(to any, t float64) *Vec1 { return fromVec1(v.lerp(1, vecArgs(1, []any{to}), t)) }

// Equals coerces src and compares every component exactly.
func (v *Vec1) Equals(src ...any) bool { return v.equals(1, vecArgs(1, src)) }

// Clone returns a copy without handlers.
func (v *Vec1) Clone() *Vec1 { return fromVec1(v.c) }

func (v *Vec1) ReviveName() string { return NameVec1 }

func (v *Vec1) components() (int, [4]float64) { return 1, v.c }

func (v *Vec1) String() string { return v.format(NameVec1, 1) }

// MarshalJSON writes the revivable form.
func (v *Vec1) MarshalJSON() ([]byte, error) {
	return json.Marshal(revive.RevivableOf(v, v.jsonArgs(1)...))
}

// UnmarshalJSON accepts the revivable form or any coercible JSON shape.
func (v *Vec1) UnmarshalJSON(data []byte) error {
	args, err := decodeJSON(data, NameVec1)
	if err != nil {
		return err
	}
	return v.Set(args...)
}

// Vec2 is a two-component vector. Setters post change events named
// after the axis ("x", "y").
type Vec2 struct{ vec }

// NewVec2 builds a Vec2 from any shape Vec2Args accepts.
func NewVec2(src ...any) *Vec2 {
	return fromVec2(vecArgs(2, src))
}

func fromVec2(c [4]float64) *Vec2 {
	return &Vec2{vec{c: c}}
}

// Vec2Args normalises src to (x, y). See vecArgs for the accepted shapes.
func Vec2Args(src ...any) [2]float64 {
	c := vecArgs(2, src)
	return [2]float64{c[0], c[1]}
}

// X returns the x component.
func (v *Vec2) X() float64 { return v.c[0] }

// SetX assigns the x component.
func (v *Vec2) SetX(x float64) error { return v.setAxis(0, x) }

// Y returns the y component.
func (v *Vec2) Y() float64 { return v.c[1] }

// SetY assigns the y component.
func (v *Vec2) SetY(x float64) error { return v.setAxis(1, x) }

// Array returns the components.
func (v *Vec2) Array() [2]float64 {
	return [2]float64{v.c[0], v.c[1]}
}

// Set assigns every component from src, posting one change per differing axis.
func (v *Vec2) Set(src ...any) error { return v.assign(2, vecArgs(2, src)) }

func (v *Vec2) Add(src ...any) *Vec2 { return fromVec2(v.combine(2, vecArgs(2, src), opAdd)) }
func (v *Vec2) Sub(src ...any) *Vec2 { return fromVec2(v.combine(2, vecArgs(2, src), opSub)) }
func (v *Vec2) Mul(src ...any) *Vec2 { return fromVec2(v.combine(2, vecArgs(2, src), opMul)) }
func (v *Vec2) Div(src ...any) *Vec2 { return fromVec2(v.combine(2, vecArgs(2, src), opDiv)) }
func (v *Vec2) Pow(src ...any) *Vec2 { return fromVec2(v.combine(2, vecArgs(2, src), pow)) }

// IAdd and the other in-place operators mutate v and return it. Handler
// errors are kept for Err.
func (v *Vec2) IAdd(src ...any) *Vec2 { v.keep(v.assign(2, v.combine(2, vecArgs(2, src), opAdd))); return v }
func (v *Vec2) ISub(src ...any) *Vec2 { v.keep(v.assign(2, v.combine(2, vecArgs(2, src), opSub))); return v }
func (v *Vec2) IMul(src ...any) *Vec2 { v.keep(v.assign(2, v.combine(2, vecArgs(2, src), opMul))); return v }
func (v *Vec2) IDiv(src ...any) *Vec2 { v.keep(v.assign(2, v.combine(2, vecArgs(2, src), opDiv))); return v }
func (v *Vec2) IPow(src ...any) *Vec2 { v.keep(v.assign(2, v.combine(2, vecArgs(2, src), pow))); return v }

// Lerp interpolates towards to by t.
func (v *Vec2) Lerp(to any, t float64) *Vec2 { return fromVec2(v.lerp(2, vecArgs(2, []any{to}), t)) }

// Equals coerces src and compares every component exactly.
func (v *Vec2) Equals(src ...any) bool { return v.equals(2, vecArgs(2, src)) }

// Clone returns a copy without handlers.
func (v *Vec2) Clone() *Vec2 { return fromVec2(v.c) }

func (v *Vec2) ReviveName() string { return NameVec2 }

func (v *Vec2) components() (int, [4]float64) { return 2, v.c }

func (v *Vec2) String() string { return v.format(NameVec2, 2) }

// MarshalJSON writes the revivable form.
func (v *Vec2) MarshalJSON() ([]byte, error) {
	return json.Marshal(revive.RevivableOf(v, v.jsonArgs(2)...))
}

// UnmarshalJSON accepts the revivable form or any coercible JSON shape.
func (v *Vec2) UnmarshalJSON(data []byte) error {
	args, err := decodeJSON(data, NameVec2)
	if err != nil {
		return err
	}
	return v.Set(args...)
}

// Vec3 is a three-component vector. Setters post change events named
// after the axis ("x", "y", "z").
type Vec3 struct{ vec }

// NewVec3 builds a Vec3 from any shape Vec3Args accepts.
func NewVec3(src ...any) *Vec3 {
	return fromVec3(vecArgs(3, src))
}

func fromVec3(c [4]float64) *Vec3 {
	return &Vec3{vec{c: c}}
}

// Vec3Args normalises src to (x, y, z). See vecArgs for the accepted shapes.
func Vec3Args(src ...any) [3]float64 {
	c := vecArgs(3, src)
	return [3]float64{c[0], c[1], c[2]}
}

// X returns the x component.
func (v *Vec3) X() float64 { return v.c[0] }

// SetX assigns the x component.
func (v *Vec3) SetX(x float64) error { return v.setAxis(0, x) }

// Y returns the y component.
func (v *Vec3) Y() float64 { return v.c[1] }

// SetY assigns the y component.
func (v *Vec3) SetY(x float64) error { return v.setAxis(1, x) }

// Z returns the z component.
func (v *Vec3) Z() float64 { return v.c[2] }

// SetZ assigns the z component.
func (v *Vec3) SetZ(x float64) error { return v.setAxis(2, x) }

// Array returns the components.
func (v *Vec3) Array() [3]float64 {
	return [3]float64{v.c[0], v.c[1], v.c[2]}
}

// Set assigns every component from src, posting one change per differing axis.
func (v *Vec3) Set(src ...any) error { return v.assign(3, vecArgs(3, src)) }

func (v *Vec3) Add(src ...any) *Vec3 { return fromVec3(v.combine(3, vecArgs(3, src), opAdd)) }
func (v *Vec3) Sub(src ...any) *Vec3 { return fromVec3(v.combine(3, vecArgs(3, src), opSub)) }
func (v *Vec3) Mul(src ...any) *Vec3 { return fromVec3(v.combine(3, vecArgs(3, src), opMul)) }
func (v *Vec3) Div(src ...any) *Vec3 { return fromVec3(v.combine(3, vecArgs(3, src), opDiv)) }
func (v *Vec3) Pow(src ...any) *Vec3 { return fromVec3(v.combine(3, vecArgs(3, src), pow)) }

// IAdd and the other in-place operators mutate v and return it. Handler
// errors are kept for Err.
func (v *Vec3) IAdd(src ...any) *Vec3 { v.keep(v.assign(3, v.combine(3, vecArgs(3, src), opAdd))); return v }
func (v *Vec3) ISub(src ...any) *Vec3 { v.keep(v.assign(3, v.combine(3, vecArgs(3, src), opSub))); return v }
func (v *Vec3) IMul(src ...any) *Vec3 { v.keep(v.assign(3, v.combine(3, vecArgs(3, src), opMul))); return v }
func (v *Vec3) IDiv(src ...any) *Vec3 { v.keep(v.assign(3, v.combine(3, vecArgs(3, src), opDiv))); return v }
func (v *Vec3) IPow(src ...any) *Vec3 { v.keep(v.assign(3, v.combine(3, vecArgs(3, src), pow))); return v }

// Lerp interpolates towards to by t.
func (v *Vec3) Lerp(to any, t float64) *Vec3 { return fromVec3(v.lerp(3, vecArgs(3, []any{to}), t)) }

// Equals coerces src and compares every component exactly.
func (v *Vec3) Equals(src ...any) bool { return v.equals(3, vecArgs(3, src)) }

// Clone returns a copy without handlers.
func (v *Vec3) Clone() *Vec3 { return fromVec3(v.c) }

func (v *Vec3) ReviveName() string { return NameVec3 }

func (v *Vec3) components() (int, [4]float64) { return 3, v.c }

func (v *Vec3) String() string { return v.format(NameVec3, 3) }

// MarshalJSON writes the revivable form.
func (v *Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal(revive.RevivableOf(v, v.jsonArgs(3)...))
}

// UnmarshalJSON accepts the revivable form or any coercible JSON shape.
func (v *Vec3) UnmarshalJSON(data []byte) error {
	args, err := decodeJSON(data, NameVec3)
	if err != nil {
		return err
	}
	return v.Set(args...)
}

// Vec4 is a four-component vector. Setters post change events named
// after the axis ("x", "y", "z", "w").
type Vec4 struct{ vec }

// NewVec4 builds a Vec4 from any shape Vec4Args accepts.
func NewVec4(src ...any) *Vec4 {
	return fromVec4(vecArgs(4, src))
}

func fromVec4(c [4]float64) *Vec4 {
	return &Vec4{vec{c: c}}
}

// Vec4Args normalises src to (x, y, z, w). See vecArgs for the accepted shapes.
func Vec4Args(src ...any) [4]float64 {
	c := vecArgs(4, src)
	return [4]float64{c[0], c[1], c[2], c[3]}
}

// X returns the x component.
func (v *Vec4) X() float64 { return v.c[0] }

// SetX assigns the x component.
func (v *Vec4) SetX(x float64) error { return v.setAxis(0, x) }

// Y returns the y component.
func (v *Vec4) Y() float64 { return v.c[1] }

// SetY assigns the y component.
func (v *Vec4) SetY(x float64) error { return v.setAxis(1, x) }

// Z returns the z component.
func (v *Vec4) Z() float64 { return v.c[2] }

// SetZ assigns the z component.
func (v *Vec4) SetZ(x float64) error { return v.setAxis(2, x) }

// W returns the w component.
func (v *Vec4) W() float64 { return v.c[3] }

// SetW assigns the w component.
func (v *Vec4) SetW(x float64) error { return v.setAxis(3, x) }

// Array returns the components.
func (v *Vec4) Array() [4]float64 {
	return [4]float64{v.c[0], v.c[1], v.c[2], v.c[3]}
}

// Set assigns every component from src, posting one change per differing axis.
func (v *Vec4) Set(src ...any) error { return v.assign(4, vecArgs(4, src)) }

func (v *Vec4) Add(src ...any) *Vec4 { return fromVec4(v.combine(4, vecArgs(4, src), opAdd)) }
func (v *Vec4) Sub(src ...any) *Vec4 { return fromVec4(v.combine(4, vecArgs(4, src), opSub)) }
func (v *Vec4) Mul(src ...any) *Vec4 { return fromVec4(v.combine(4, vecArgs(4, src), opMul)) }
func (v *Vec4) Div(src ...any) *Vec4 { return fromVec4(v.combine(4, vecArgs(4, src), opDiv)) }
func (v *Vec4) Pow(src ...any) *Vec4 { return fromVec4(v.combine(4, vecArgs(4, src), pow)) }

// IAdd and the other in-place operators mutate v and return it. Handler
// errors are kept for Err.
func (v *Vec4) IAdd(src ...any) *Vec4 { v.keep(v.assign(4, v.combine(4, vecArgs(4, src), opAdd))); return v }
func (v *Vec4) ISub(src ...any) *Vec4 { v.keep(v.assign(4, v.combine(4, vecArgs(4, src), opSub))); return v }
func (v *Vec4) IMul(src ...any) *Vec4 { v.keep(v.assign(4, v.combine(4, vecArgs(4, src), opMul))); return v }
func (v *Vec4) IDiv(src ...any) *Vec4 { v.keep(v.assign(4, v.combine(4, vecArgs(4, src), opDiv))); return v }
func (v *Vec4) IPow(src ...any) *Vec4 { v.keep(v.assign(4, v.combine(4, vecArgs(4, src), pow))); return v }

// Lerp interpolates towards to by t.
func (v *Vec4) Lerp(to any, t float64) *Vec4 { return fromVec4(v.lerp(4, vecArgs(4, []any{to}), t)) }

// Equals coerces src and compares every component exactly.
func (v *Vec4) Equals(src ...any) bool { return v.equals(4, vecArgs(4, src)) }

// Clone returns a copy without handlers.
func (v *Vec4) Clone() *Vec4 { return fromVec4(v.c) }

func (v *Vec4) ReviveName() string { return NameVec4 }

func (v *Vec4) components() (int, [4]float64) { return 4, v.c }

func (v *Vec4) String() string { return v.format(NameVec4, 4) }

// MarshalJSON writes the revivable form.
func (v *Vec4) MarshalJSON() ([]byte, error) {
	return json.Marshal(revive.RevivableOf(v, v.jsonArgs(4)...))
}

// UnmarshalJSON accepts the revivable form or any coercible JSON shape.
func (v *Vec4) UnmarshalJSON(data []byte) error {
	args, err := decodeJSON(data, NameVec4)
	if err != nil {
		return err
	}
	return v.Set(args...)
}
