package revive

// Wire keys of a revivable payload.
const (
	KeyCustom = "%cstm"
	KeyType   = "%o"
	KeyArgs   = "%a"
)

// Payload is the tagged plain-data form of a typed value:
//
//	{"%cstm":true,"%o":"<Name>","%a":[<args...>]}
//
// The field order below is the encoded key order.
type Payload struct {
	Custom bool   `json:"%cstm"`
	Name   string `json:"%o"`
	Args   []any  `json:"%a"`
}

// Revivable builds the payload for a value that is rebuilt by calling the
// constructor registered under name with args.
func Revivable(name string, args ...any) Payload {
	if args == nil {
		args = []any{}
	}
	return Payload{Custom: true, Name: name, Args: args}
}

// Named is implemented by types that know the name they register under.
type Named interface {
	ReviveName() string
}

// RevivableOf is Revivable using v's registered name.
func RevivableOf(v Named, args ...any) Payload {
	return Revivable(v.ReviveName(), args...)
}

// AsPayload reports whether v has the revivable shape: a map whose custom
// marker is exactly true, whose type name is a string and whose argument
// list is an array.
func AsPayload(v any) (Payload, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Payload{}, false
	}
	if custom, ok := m[KeyCustom].(bool); !ok || !custom {
		return Payload{}, false
	}
	name, ok := m[KeyType].(string)
	if !ok {
		return Payload{}, false
	}
	args, ok := m[KeyArgs].([]any)
	if !ok {
		return Payload{}, false
	}
	return Payload{Custom: true, Name: name, Args: args}, true
}
