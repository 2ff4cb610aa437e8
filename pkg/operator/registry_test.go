package operator

import (
	"sync"
	"testing"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryHasNoCustomOperators(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.CustomCount(), "initially there should be no custom operators")
	assert.Empty(t, r.Custom())
}

func TestNewReturnsDistinctIDs(t *testing.T) {
	r := NewRegistry()
	id1 := r.New("A")
	id2 := r.New("B")

	assert.NotEqual(t, id1, id2)
	assert.False(t, id1.IsBuiltin())
	assert.False(t, id1.IsReserved())
	assert.True(t, r.IsRegistered(id1))
	assert.True(t, r.IsRegistered(id2))
}

func TestNewWithID(t *testing.T) {
	t.Run("duplicate of auto id", func(t *testing.T) {
		r := NewRegistry()
		idx := r.New("")
		_, err := r.NewWithID(idx, "")
		assert.ErrorIs(t, err, core.ErrValue)
	})

	t.Run("explicit offset", func(t *testing.T) {
		r := NewRegistry()
		idx := r.New("")
		n, err := r.NewWithID(idx+100, "")
		require.NoError(t, err)
		assert.Equal(t, idx+100, n)

		_, err = r.NewWithID(idx+100, "")
		assert.ErrorIs(t, err, core.ErrValue, "the same explicit id is never accepted twice")
	})

	t.Run("counter skips past explicit ids", func(t *testing.T) {
		r := NewRegistry()
		idx := r.New("")
		_, err := r.NewWithID(idx+1, "")
		require.NoError(t, err)
		next := r.New("")
		assert.Equal(t, idx+2, next)
	})

	t.Run("below the counter does not rewind", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.NewWithID(2000, "")
		require.NoError(t, err)
		low, err := r.NewWithID(1500, "")
		require.NoError(t, err)
		assert.Equal(t, Type(1500), low)
		assert.Equal(t, Type(2001), r.New(""))
	})

	t.Run("reserved range", func(t *testing.T) {
		r := NewRegistry()
		for _, id := range []Type{AND, 500, maxBuiltin, -1} {
			_, err := r.NewWithID(id, "")
			assert.ErrorIs(t, err, core.ErrValue, "id %d", id)
		}
		assert.Equal(t, 0, r.CustomCount(), "failed allocations must not register anything")
	})
}

func TestNames(t *testing.T) {
	r := NewRegistry()
	xor := r.New("XOR")
	anon := r.New("")

	assert.Equal(t, "XOR", r.Name(xor))
	assert.Equal(t, "AND", r.Name(AND))
	assert.Contains(t, r.Name(anon), "CUSTOM_")
	assert.Equal(t, "AND", AND.String())
	assert.Contains(t, xor.String(), "OP(")

	custom := r.Custom()
	assert.Equal(t, "XOR", custom[xor])

	// copy, not the live map
	custom[xor] = "MODIFIED"
	assert.Equal(t, "XOR", r.Name(xor))
}

func TestIsRegistered(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsRegistered(AND))
	assert.True(t, r.IsRegistered(STORE))
	assert.False(t, r.IsRegistered(Type(5000)))
	assert.False(t, r.IsRegistered(Type(700)))
}

func TestCategories(t *testing.T) {
	tests := []struct {
		op   Type
		want Category
	}{
		{SYMBOL, CategorySymbol},
		{INT_CONSTANT, CategoryConstant},
		{AND, CategoryBoolean},
		{IFF, CategoryBoolean},
		{LE, CategoryRelation},
		{PLUS, CategoryArithmetic},
		{SELECT, CategoryArray},
		{Type(4242), CategoryCustom},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.Category())
		})
	}
}

func TestIsLeaf(t *testing.T) {
	for _, op := range []Type{SYMBOL, BOOL_CONSTANT, INT_CONSTANT, REAL_CONSTANT} {
		assert.True(t, op.IsLeaf(), op.String())
	}
	for _, op := range []Type{AND, EQUALS, ITE, PLUS, STORE, Type(4242)} {
		assert.False(t, op.IsLeaf(), op.String())
	}
}

func TestBuiltinsOrdered(t *testing.T) {
	all := Builtins()
	require.NotEmpty(t, all)
	assert.Equal(t, SYMBOL, all[0])
	assert.Equal(t, STORE, all[len(all)-1])
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1], all[i])
	}
}

func TestNewConcurrent(t *testing.T) {
	r := NewRegistry()
	const numGoroutines = 100
	var wg sync.WaitGroup
	ids := make([]Type, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ids[idx] = r.New("")
		}(i)
	}
	wg.Wait()

	seen := make(map[Type]bool, numGoroutines)
	for _, id := range ids {
		require.False(t, seen[id], "id %d handed out twice", id)
		seen[id] = true
	}
	assert.Equal(t, numGoroutines, r.CustomCount())
}
