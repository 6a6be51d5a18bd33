package diagnostic_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/diagnostic"
)

func TestMarshalSchemaValidatesAgainstItsOwnSchema(t *testing.T) {
	bag := &diagnostic.Bag{}
	bag.Add(diagnostic.New(diagnostic.SeverityWarning, "V001", "add", ast.Position{File: "t.cov", Line: 1, Column: 1}, "example"))

	out, err := bag.MarshalSchema()
	require.NoError(t, err)
	require.Contains(t, string(out), "V001")
}

func TestHasErrorsOnlyTrueForErrorSeverity(t *testing.T) {
	bag := &diagnostic.Bag{}
	bag.Add(diagnostic.New(diagnostic.SeverityWarning, "W001", "f", ast.Position{}, "warn"))
	require.False(t, bag.HasErrors())

	bag.Add(diagnostic.New(diagnostic.SeverityError, "E001", "f", ast.Position{}, "boom"))
	require.True(t, bag.HasErrors())
}
