// Package functions maps rule function names to value generators and checks
// rule parameters against each generator's declared contract.
package functions

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/TFMV/masquerade/pkg/core"
)

// Kind is the type of a declared parameter.
type Kind int

const (
	String Kind = iota
	Int
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText renders kinds by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "string":
		*k = String
	case "int":
		*k = Int
	default:
		return fmt.Errorf("unknown parameter kind %q", b)
	}
	return nil
}

// Param declares one named parameter.
type Param struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Required bool   `json:"required"`
}

// Descriptor is the signature of a registered function.
type Descriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	// ReadsSources marks functions whose parameters name files or buckets.
	ReadsSources bool `json:"reads_sources,omitempty"`
}

// Args holds parameters that have been checked against a Descriptor and
// coerced to their declared kinds.
type Args map[string]any

// String returns a string parameter, or "" when it was not supplied.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns an int parameter, or 0 when it was not supplied.
func (a Args) Int(name string) int {
	n, _ := a[name].(int)
	return n
}

// Has reports whether the parameter was supplied.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Func generates one value.
type Func func(ctx context.Context, args Args) (any, error)

type registered struct {
	desc Descriptor
	fn   Func
}

// Registry dispatches invocations by function name.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]registered
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]registered)}
}

// Register adds fn under desc.Name. Names must be unique.
func (r *Registry) Register(desc Descriptor, fn Func) error {
	if desc.Name == "" {
		return fmt.Errorf("function name is required")
	}
	if fn == nil {
		return fmt.Errorf("function %q has no implementation", desc.Name)
	}
	names := lo.Map(desc.Params, func(p Param, _ int) string { return p.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return fmt.Errorf("function %q declares parameter %q twice", desc.Name, dups[0])
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[desc.Name]; exists {
		return fmt.Errorf("function %q is already registered", desc.Name)
	}
	r.funcs[desc.Name] = registered{desc: desc, fn: fn}
	return nil
}

func (r *Registry) lookup(name string) (registered, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	if !ok {
		return registered{}, fmt.Errorf("%w: %q", core.ErrUnknownFunction, name)
	}
	return f, nil
}

// Describe returns the descriptor registered under name.
func (r *Registry) Describe(name string) (Descriptor, error) {
	f, err := r.lookup(name)
	if err != nil {
		return Descriptor{}, err
	}
	return f.desc, nil
}

// Functions lists every descriptor ordered by name.
func (r *Registry) Functions() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.funcs)
	sort.Strings(names)
	return lo.Map(names, func(n string, _ int) Descriptor { return r.funcs[n].desc })
}

// Validate checks params against the contract of name without invoking it.
func (r *Registry) Validate(name string, params map[string]any) error {
	f, err := r.lookup(name)
	if err != nil {
		return err
	}
	_, err = bind(f.desc, params)
	return err
}

// Invoke validates params and calls the function registered under name.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) (any, error) {
	f, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	args, err := bind(f.desc, params)
	if err != nil {
		return nil, err
	}
	return f.fn(ctx, args)
}

// bind matches params to the declared parameters of desc. Names are
// case-sensitive; an undeclared name, a missing required parameter or a value
// that does not convert to the declared kind is a ParameterMismatch.
func bind(desc Descriptor, params map[string]any) (Args, error) {
	declared := lo.SliceToMap(desc.Params, func(p Param) (string, Param) { return p.Name, p })
	for name := range params {
		if _, ok := declared[name]; !ok {
			return nil, fmt.Errorf("%w: %s does not accept parameter %q", core.ErrParameterMismatch, desc.Name, name)
		}
	}

	args := make(Args, len(params))
	for _, p := range desc.Params {
		v, ok := params[p.Name]
		if !ok {
			if p.Required {
				return nil, fmt.Errorf("%w: %s requires parameter %q", core.ErrParameterMismatch, desc.Name, p.Name)
			}
			continue
		}
		cv, err := coerce(p.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s parameter %q: %v", core.ErrParameterMismatch, desc.Name, p.Name, err)
		}
		args[p.Name] = cv
	}
	return args, nil
}

func coerce(kind Kind, v any) (any, error) {
	switch kind {
	case String:
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return cast.ToStringE(v)
		default:
			return nil, fmt.Errorf("expected string, got %T", v)
		}
	case Int:
		switch v := v.(type) {
		case nil, bool:
			return nil, fmt.Errorf("expected int, got %T", v)
		case float32:
			return integral(float64(v))
		case float64:
			return integral(v)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("expected int, got %q", v)
			}
			return n, nil
		default:
			n, err := cast.ToIntE(v)
			if err != nil {
				return nil, fmt.Errorf("expected int: %v", err)
			}
			return n, nil
		}
	default:
		return nil, fmt.Errorf("unsupported parameter kind %v", kind)
	}
}

func integral(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("expected int, got %v", f)
	}
	return int(f), nil
}
