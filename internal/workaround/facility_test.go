package workaround

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New("source text|target text")
	b := New("source text|target text")
	assert.Equal(t, a.Name(), b.Name())

	c := New("source text|different target")
	assert.NotEqual(t, a.Name(), c.Name())
}

func TestUsedFlagAndCall(t *testing.T) {
	f := New("seed")
	assert.False(t, f.Used())

	stmt := f.Call("orders", "idx_status", "CREATE INDEX idx_status ON orders (status)", "create")
	assert.True(t, f.Used())
	require.Contains(t, stmt, f.Name())
	assert.Contains(t, stmt, "'orders'")
	assert.Contains(t, stmt, "'create'")
}

func TestCreateAndDropProcedureNameConsistency(t *testing.T) {
	f := New("seed")
	create := f.CreateProcedure()
	drop := f.DropProcedure()
	assert.Contains(t, create, f.Name())
	assert.Contains(t, drop, f.Name())
	assert.Contains(t, create, "INFORMATION_SCHEMA.STATISTICS")
}
