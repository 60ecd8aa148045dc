// Package revive turns tagged JSON payloads back into live typed values.
//
// A type takes part by registering a Rule under its wire name (usually from
// an init func) and by marshalling itself as a Payload. Payloads whose name
// has no rule are left as plain data so that older registries can read newer
// documents.
package revive

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/odvcencio/dashcore/pkg/collection"
	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
)

// Rule rebuilds a value from the positional arguments of its payload.
type Rule struct {
	Name string
	New  func(args []any) (any, error)
}

// Outcome labels what happened to a tagged payload during revival.
type Outcome string

const (
	OutcomeRevived      Outcome = "revived"
	OutcomeUnregistered Outcome = "unregistered"
	OutcomeFailed       Outcome = "failed"
)

// Observer receives one call per tagged payload encountered.
type Observer interface {
	ObserveRevive(name string, outcome Outcome)
}

// Reviver owns a rule registry.
type Reviver struct {
	Rules *collection.Dict[Rule]

	log      zerolog.Logger
	observer Observer
}

// Option configures a Reviver.
type Option func(*Reviver)

// WithLogger sets the logger used for constructor failures.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reviver) { r.log = l }
}

// WithObserver sets the revival observer.
func WithObserver(o Observer) Option {
	return func(r *Reviver) { r.observer = o }
}

func newRules() *collection.Dict[Rule] {
	return collection.NewDict(func(r Rule) string { return r.Name }, collection.Hooks[Rule]{
		Convert: func(v any) (Rule, bool) {
			switch x := v.(type) {
			case Rule:
				return x, x.Name != "" && x.New != nil
			case *Rule:
				if x == nil {
					return Rule{}, false
				}
				return *x, x.Name != "" && x.New != nil
			}
			return Rule{}, false
		},
	})
}

// New creates a reviver holding rules.
func New(rules []Rule, opts ...Option) *Reviver {
	r := &Reviver{Rules: newRules(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// Clone copies r. When keep is non-nil only the rules it accepts are copied.
func (r *Reviver) Clone(keep func(Rule) bool, opts ...Option) *Reviver {
	var rules []Rule
	for _, rule := range r.Rules.Values() {
		if keep == nil || keep(rule) {
			rules = append(rules, rule)
		}
	}
	c := &Reviver{Rules: newRules(), log: r.log, observer: r.observer}
	for _, opt := range opts {
		opt(c)
	}
	for _, rule := range rules {
		c.Register(rule)
	}
	return c
}

// SetObserver replaces the revival observer.
func (r *Reviver) SetObserver(o Observer) {
	r.observer = o
}

// Register adds rule. Registering a name twice keeps the first rule and
// reports false.
func (r *Reviver) Register(rule Rule) bool {
	_, ok, _ := r.Rules.Add(rule)
	return ok
}

// Registered reports whether name has a rule.
func (r *Reviver) Registered(name string) bool {
	return r.Rules.HasKey(name)
}

// Revive walks v bottom-up and replaces every registered payload with the
// value its rule builds. Everything else is returned unchanged.
func (r *Reviver) Revive(v any) any {
	switch x := v.(type) {
	case []any:
		for i, item := range x {
			x[i] = r.Revive(item)
		}
		return x
	case map[string]any:
		for k, item := range x {
			x[k] = r.Revive(item)
		}
		return r.reviveOne(x)
	default:
		return v
	}
}

func (r *Reviver) reviveOne(m map[string]any) any {
	p, ok := AsPayload(m)
	if !ok {
		return m
	}
	rule, ok := r.Rules.Get(p.Name)
	if !ok {
		r.observe(p.Name, OutcomeUnregistered)
		return m
	}
	out, err := rule.New(p.Args)
	if err != nil {
		r.log.Debug().Str("type", p.Name).Err(err).Msg("revival failed, keeping payload")
		r.observe(p.Name, OutcomeFailed)
		return m
	}
	r.observe(p.Name, OutcomeRevived)
	return out
}

func (r *Reviver) observe(name string, outcome Outcome) {
	if r.observer != nil {
		r.observer.ObserveRevive(name, outcome)
	}
}

// Parse decodes JSON and revives it.
func (r *Reviver) Parse(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeReviveDecode, "decode revivable document")
	}
	return r.Revive(v), nil
}

// Marshal encodes v. Types that implement json.Marshaler with a Payload are
// written in tagged form.
func (r *Reviver) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeReviveEncode, "encode revivable document")
	}
	return data, nil
}

// Default is the process-wide reviver built-in value types register into.
var Default = New(nil)

// Register adds rule to Default.
func Register(rule Rule) bool {
	return Default.Register(rule)
}

// Parse revives data with Default.
func Parse(data []byte) (any, error) {
	return Default.Parse(data)
}

// Marshal encodes v with Default.
func Marshal(v any) ([]byte, error) {
	return Default.Marshal(v)
}
