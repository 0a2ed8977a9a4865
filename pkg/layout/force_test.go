package layout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSettlesAtEquilibrium(t *testing.T) {
	// One edge of weight 1: repulsion 1/d² balances attraction d² at d = 1.
	s := newSimulation(testGraph(t, "CCC-GGGG"), DefaultSeed)
	res, err := s.run(context.Background(), DefaultMaxIterations, DefaultThreshold)
	require.NoError(t, err)

	assert.True(t, res.converged)
	assert.Less(t, res.iterations, DefaultMaxIterations)
	assert.InDelta(t, 1.0, res.positions[1].norm(), 1e-2)
	assert.Zero(t, res.positions[0])
}

func TestRunUnsettledIsNotConverged(t *testing.T) {
	s := newSimulation(testGraph(t, "CCC-GGGG"), DefaultSeed)
	s.pos[1] = vec{10, 0}

	// Five capped steps cannot pull the node back from x = 10.
	res, err := s.run(context.Background(), 5, 0.05)
	require.NoError(t, err)
	assert.False(t, res.converged)
	assert.Equal(t, 5, res.iterations)
	assert.Greater(t, res.positions[1].x, 8.0)
}

func TestNewSimulationIgnoresHistory(t *testing.T) {
	g := testGraph(t, "CCC-GGGG", "CCCCAGGG", "CC--GGGG")
	a := newSimulation(g, 7)
	b := newSimulation(g, 7)
	assert.Equal(t, a.pos, b.pos)

	c := newSimulation(g, 8)
	assert.NotEqual(t, a.pos, c.pos)
}
