package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectorValidation(t *testing.T) {
	_, err := NewSelector(nil, 10, 1)
	assert.Error(t, err)

	bad, err := New("bad", "SELECT 1", 0, "pgbench")
	require.NoError(t, err)
	_, err = NewSelector([]*Script{bad}, 10, 1)
	assert.Error(t, err)
}

func TestSelectorSingleScript(t *testing.T) {
	s := Default("pgbench")
	sel, err := NewSelector([]*Script{s}, 10, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, sel.TotalWeight())
	for i := 0; i < 10; i++ {
		assert.Same(t, s, sel.Pick())
	}
}

func TestSelectorWeightedPick(t *testing.T) {
	heavy, err := New("heavy", "SELECT 1", 9, "pgbench")
	require.NoError(t, err)
	light, err := New("light", "SELECT 2", 1, "pgbench")
	require.NoError(t, err)

	sel, err := NewSelector([]*Script{heavy, light}, 10, 42)
	require.NoError(t, err)
	assert.Equal(t, 10.0, sel.TotalWeight())

	counts := map[string]int{}
	const draws = 10000
	for i := 0; i < draws; i++ {
		counts[sel.Pick().Name]++
	}
	assert.Equal(t, draws, counts["heavy"]+counts["light"])
	assert.InDelta(t, 0.9, float64(counts["heavy"])/draws, 0.03)
}

func TestGenParamsRanges(t *testing.T) {
	const scale = 5
	sel, err := NewSelector([]*Script{Default("pgbench")}, scale, 7)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		p := sel.GenParams(i)

		require.GreaterOrEqual(t, p.Bid, 1)
		require.LessOrEqual(t, p.Bid, scale)

		// Teller and account ids stay inside the picked branch.
		require.GreaterOrEqual(t, p.Tid, (p.Bid-1)*TellersPerBranch+1)
		require.LessOrEqual(t, p.Tid, p.Bid*TellersPerBranch)
		require.GreaterOrEqual(t, p.Aid, (p.Bid-1)*AccountsPerBranch+1)
		require.LessOrEqual(t, p.Aid, p.Bid*AccountsPerBranch)

		require.GreaterOrEqual(t, p.Delta, 1)
		require.LessOrEqual(t, p.Delta, 1000)
		require.Equal(t, i, p.Iteration)
	}
}

func TestGenParamsDeterministicPerSeed(t *testing.T) {
	a, err := NewSelector([]*Script{Default("pgbench")}, 100, 13)
	require.NoError(t, err)
	b, err := NewSelector([]*Script{Default("pgbench")}, 100, 13)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.GenParams(i), b.GenParams(i))
	}
}
