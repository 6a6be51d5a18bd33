package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/stdlib"
)

func TestDefaultRegistryKnowsMathModule(t *testing.T) {
	r := stdlib.NewDefault()
	require.True(t, r.IsStdlibModule("math"))
	require.False(t, r.IsStdlibModule("nonexistent"))

	result, err := r.CallModuleMethod("math", "sqrt", []stdlib.Value{float64(16)}, nil)
	require.NoError(t, err)
	require.Equal(t, float64(4), result)
}

func TestCallModuleMethodUnknownMethodErrors(t *testing.T) {
	r := stdlib.NewDefault()
	_, err := r.CallModuleMethod("math", "nope", nil, nil)
	require.Error(t, err)
}

func TestTextModuleRoundTrip(t *testing.T) {
	r := stdlib.NewDefault()
	upper, err := r.CallModuleMethod("text", "upper", []stdlib.Value{"covenant"}, nil)
	require.NoError(t, err)
	require.Equal(t, "COVENANT", upper)
}

func TestRegisterModuleOverridesDefault(t *testing.T) {
	r := stdlib.NewRegistry()
	r.RegisterModule("db", "query", func(args []stdlib.Value, kwargs map[string]stdlib.Value) (stdlib.Value, error) {
		return "ok", nil
	})
	result, err := r.CallModuleMethod("db", "query", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", result)
}
