package value

import (
	"fmt"

	"github.com/odvcencio/dashcore/pkg/revive"
)

// Wire names of the value types.
const (
	NameColor = "Color"
	NameVec1  = "Vec1"
	NameVec2  = "Vec2"
	NameVec3  = "Vec3"
	NameVec4  = "Vec4"
	NameRange = "Range"
)

var arity = map[string]int{
	NameColor: 4,
	NameVec1:  1,
	NameVec2:  2,
	NameVec3:  3,
	NameVec4:  4,
	NameRange: 4,
}

func construct(name string, args []any) (any, error) {
	if want := arity[name]; len(args) != want {
		return nil, fmt.Errorf("%s: want %d arguments, got %d", name, want, len(args))
	}
	switch name {
	case NameColor:
		return NewColor(args...), nil
	case NameVec1:
		return NewVec1(args...), nil
	case NameVec2:
		return NewVec2(args...), nil
	case NameVec3:
		return NewVec3(args...), nil
	case NameVec4:
		return NewVec4(args...), nil
	case NameRange:
		return NewRange(args...), nil
	}
	return nil, fmt.Errorf("unknown value type %q", name)
}

// Rules returns the revival rules for every value type.
func Rules() []revive.Rule {
	names := []string{NameColor, NameVec1, NameVec2, NameVec3, NameVec4, NameRange}
	rules := make([]revive.Rule, len(names))
	for i, name := range names {
		rules[i] = revive.Rule{
			Name: name,
			New:  func(args []any) (any, error) { return construct(name, args) },
		}
	}
	return rules
}

func init() {
	for _, r := range Rules() {
		revive.Register(r)
	}
}
