package engine

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/RoomPlan/internal/model"
)

func smallGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 12,
		Generations:    20,
		MutationRate:   0.3,
		TournamentSize: 3,
		EliteCount:     1,
	}
}

func assertPermutation(t *testing.T, c chromosome, n int) {
	t.Helper()
	rooms := make([]int, len(c.genes))
	for i, g := range c.genes {
		rooms[i] = g.room
	}
	sort.Ints(rooms)
	for i := 0; i < n; i++ {
		if !assert.Equal(t, i, rooms[i]) {
			return
		}
	}
}

func TestGeneticPacker_Optimize(t *testing.T) {
	f, err := Build(squareInstance([2]float64{5, 5}, [2]float64{5, 4}, [2]float64{4, 5}, [2]float64{3, 3}), model.ObjectiveEnvelope)
	require.NoError(t, err)

	l, ok := newGeneticPacker(f, smallGeneticConfig(), 3).optimize()
	require.True(t, ok)
	assertValidLayout(t, l, 4)

	vals, err := f.assign(l)
	require.NoError(t, err)
	assert.Empty(t, f.Model().Violations(vals, 1e-6))
}

func TestGeneticPacker_Deterministic(t *testing.T) {
	inst := squareInstance([2]float64{3, 3}, [2]float64{4, 2}, [2]float64{2, 5}, [2]float64{3, 3})
	f, err := Build(inst, model.ObjectiveUnusedArea)
	require.NoError(t, err)

	a, okA := newGeneticPacker(f, smallGeneticConfig(), 11).optimize()
	b, okB := newGeneticPacker(f, smallGeneticConfig(), 11).optimize()
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, a, b)
}

func TestGeneticPacker_Infeasible(t *testing.T) {
	f, err := Build(squareInstance([2]float64{6, 6}, [2]float64{6, 6}, [2]float64{6, 6}), model.ObjectivePerimeter)
	require.NoError(t, err)

	_, ok := newGeneticPacker(f, smallGeneticConfig(), 1).optimize()
	assert.False(t, ok)
}

func TestGeneticPacker_OperatorsKeepPermutation(t *testing.T) {
	f, err := Build(squareInstance([2]float64{1, 1}, [2]float64{1, 1}, [2]float64{1, 1}, [2]float64{1, 1}, [2]float64{1, 1}), model.ObjectivePerimeter)
	require.NoError(t, err)

	cfg := smallGeneticConfig()
	cfg.MutationRate = 1
	g := newGeneticPacker(f, cfg, 5)
	pop := g.initPopulation()
	require.Len(t, pop, cfg.PopulationSize)

	for i := 0; i < 50; i++ {
		child := g.orderCrossover(pop[i%len(pop)], pop[(i+1)%len(pop)])
		assertPermutation(t, child, 5)
		g.mutate(&child)
		assertPermutation(t, child, 5)
	}
}

func TestGeneticPacker_SeedChromosomeIsGreedy(t *testing.T) {
	f, err := Build(squareInstance([2]float64{1, 1}, [2]float64{3, 3}, [2]float64{2, 2}), model.ObjectivePerimeter)
	require.NoError(t, err)

	g := newGeneticPacker(f, smallGeneticConfig(), 1)
	seed := g.initPopulation()[0]
	require.Len(t, seed.genes, 3)
	assert.Equal(t, 1, seed.genes[0].room)
	assert.Equal(t, 2, seed.genes[1].room)
	assert.Equal(t, 0, seed.genes[2].room)
}

func TestGeneticPacker_CopyIsIndependent(t *testing.T) {
	f, err := Build(squareInstance([2]float64{1, 1}, [2]float64{1, 1}), model.ObjectivePerimeter)
	require.NoError(t, err)
	g := newGeneticPacker(f, smallGeneticConfig(), 1)

	orig := chromosome{genes: []gene{{room: 0}, {room: 1}}, fitness: 2}
	cp := g.copyChromosome(orig)
	cp.genes[0].wide = true
	assert.False(t, orig.genes[0].wide)
	assert.Equal(t, 2.0, cp.fitness)
}
