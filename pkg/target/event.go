package target

import "strings"

// EventName identifies a topic posted on a Target.
type EventName string

const (
	// EventChange carries (attribute, from, to) for every field transition.
	EventChange EventName = "change"
	// EventAdd is posted without arguments when an item enters a parent collection.
	EventAdd EventName = "add"
	// EventRem is posted without arguments when an item leaves a parent collection.
	EventRem EventName = "rem"
)

const changePrefix = string(EventChange) + "-"

// ChangeOf returns the attribute-specific change topic, e.g. "change-x".
func ChangeOf(attr string) EventName {
	return EventName(changePrefix + attr)
}

// Attribute reports the attribute a "change-<attr>" topic refers to.
func (n EventName) Attribute() (string, bool) {
	s := string(n)
	if !strings.HasPrefix(s, changePrefix) {
		return "", false
	}
	return s[len(changePrefix):], true
}

// Event is what handlers receive.
type Event struct {
	Name EventName
	Args []any
}

// Arg returns the i-th argument or nil when out of range.
func (e Event) Arg(i int) any {
	if i < 0 || i >= len(e.Args) {
		return nil
	}
	return e.Args[i]
}

// Change decodes the payload of a change notification.
// For "change" events the attribute comes from the first argument; for
// "change-<attr>" events it comes from the topic itself.
func (e Event) Change() (attr string, from, to any, ok bool) {
	if e.Name == EventChange {
		if len(e.Args) != 3 {
			return "", nil, nil, false
		}
		attr, ok = e.Args[0].(string)
		return attr, e.Args[1], e.Args[2], ok
	}
	attr, ok = e.Name.Attribute()
	if !ok || len(e.Args) != 2 {
		return "", nil, nil, false
	}
	return attr, e.Args[0], e.Args[1], true
}
