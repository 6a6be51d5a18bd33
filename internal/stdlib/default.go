package stdlib

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NewDefault returns the registry wired at core construction time (§9:
// "Stdlib name set: supplied as a closed list"). It covers a representative
// slice of the tier-1 module set (math, text, env, time) plus opaque
// synchronous stubs for db/http — both treated as side-effecting subprocess
// wrappers whose idempotency and cancellation semantics sit outside this
// spec (§9 open question). The stubs reach no backend: every db/http call
// returns a "no ... backend configured" error until a caller registers its
// own implementation.
func NewDefault() *Registry {
	r := NewRegistry()
	registerMath(r)
	registerText(r)
	registerEnv(r)
	registerTime(r)
	registerDB(r)
	registerHTTP(r)
	return r
}

func argFloat(args []Value, i int, method string) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%s() requires argument %d", method, i)
	}
	switch v := args[i].(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("%s() requires a number argument", method)
	}
}

func registerMath(r *Registry) {
	unary := func(name string, op func(float64) float64) {
		r.RegisterModule("math", name, func(args []Value, _ map[string]Value) (Value, error) {
			n, err := argFloat(args, 0, "math."+name)
			if err != nil {
				return nil, err
			}
			return op(n), nil
		})
	}
	unary("sqrt", math.Sqrt)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("log", math.Log)
	unary("log10", math.Log10)
	unary("exp", math.Exp)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("round", math.Round)

	r.RegisterModule("math", "pow", func(args []Value, _ map[string]Value) (Value, error) {
		base, err := argFloat(args, 0, "math.pow")
		if err != nil {
			return nil, err
		}
		exp, err := argFloat(args, 1, "math.pow")
		if err != nil {
			return nil, err
		}
		return math.Pow(base, exp), nil
	})
	r.RegisterModule("math", "pi", func([]Value, map[string]Value) (Value, error) { return math.Pi, nil })
	r.RegisterModule("math", "e", func([]Value, map[string]Value) (Value, error) { return math.E, nil })
}

func argString(args []Value, i int, method string) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%s() requires argument %d", method, i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%s() requires a string argument", method)
	}
	return s, nil
}

func registerText(r *Registry) {
	r.RegisterModule("text", "upper", func(args []Value, _ map[string]Value) (Value, error) {
		s, err := argString(args, 0, "text.upper")
		if err != nil {
			return nil, err
		}
		return strings.ToUpper(s), nil
	})
	r.RegisterModule("text", "lower", func(args []Value, _ map[string]Value) (Value, error) {
		s, err := argString(args, 0, "text.lower")
		if err != nil {
			return nil, err
		}
		return strings.ToLower(s), nil
	})
	r.RegisterModule("text", "trim", func(args []Value, _ map[string]Value) (Value, error) {
		s, err := argString(args, 0, "text.trim")
		if err != nil {
			return nil, err
		}
		return strings.TrimSpace(s), nil
	})
	r.RegisterModule("text", "split", func(args []Value, _ map[string]Value) (Value, error) {
		s, err := argString(args, 0, "text.split")
		if err != nil {
			return nil, err
		}
		sep, err := argString(args, 1, "text.split")
		if err != nil {
			return nil, err
		}
		parts := strings.Split(s, sep)
		out := make([]Value, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	})
	r.RegisterModule("text", "join", func(args []Value, _ map[string]Value) (Value, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("text.join() requires (list, sep)")
		}
		list, ok := args[0].([]Value)
		if !ok {
			return nil, fmt.Errorf("text.join() requires a list argument")
		}
		sep, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("text.join() requires a string separator")
		}
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = fmt.Sprint(v)
		}
		return strings.Join(parts, sep), nil
	})
}

func registerEnv(r *Registry) {
	r.RegisterModule("env", "get", func(args []Value, kwargs map[string]Value) (Value, error) {
		name, err := argString(args, 0, "env.get")
		if err != nil {
			return nil, err
		}
		if def, ok := kwargs["default"]; ok {
			return def, nil
		}
		return nil, fmt.Errorf("env.get(%q): not set", name)
	})
}

func registerTime(r *Registry) {
	r.RegisterModule("time", "parse_int", func(args []Value, _ map[string]Value) (Value, error) {
		s, err := argString(args, 0, "time.parse_int")
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("time.parse_int(%q): %w", s, err)
		}
		return n, nil
	})
}

// registerDB/registerHTTP wire the two named bridge modules without a real
// backing implementation: any call surfaces a RuntimeError{message}, which
// is exactly the contract a caller-supplied override replaces by calling
// RegisterModule("db", ...) / RegisterModule("http", ...) again before
// constructing the VM.
func registerDB(r *Registry) {
	r.RegisterModule("db", "query", func([]Value, map[string]Value) (Value, error) {
		return nil, fmt.Errorf("db.query(): no database backend configured")
	})
}

func registerHTTP(r *Registry) {
	r.RegisterModule("http", "get", func([]Value, map[string]Value) (Value, error) {
		return nil, fmt.Errorf("http.get(): no transport backend configured")
	})
}
