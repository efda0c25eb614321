package engine

import (
	"math/rand"
	"sort"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// GeneticConfig holds parameters for the genetic search over packing orders.
type GeneticConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	TournamentSize int
	EliteCount     int
}

// DefaultGeneticConfig returns sensible default parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 50,
		Generations:    100,
		MutationRate:   0.15,
		TournamentSize: 3,
		EliteCount:     2,
	}
}

// gene is one packing decision: which room goes next and whether it is
// packed with its widest shape instead of its most compact one.
type gene struct {
	room int
	wide bool
}

// chromosome is an ordering of rooms with shape flags.
type chromosome struct {
	genes   []gene
	fitness float64
}

// geneticPacker searches room orders for one that packs every room. It is
// the warm-start fallback when the greedy strategies leave rooms out.
type geneticPacker struct {
	f      *Formulation
	config GeneticConfig
	shapes [][]shape
	rng    *rand.Rand
}

func newGeneticPacker(f *Formulation, config GeneticConfig, seed int64) *geneticPacker {
	shapes := make([][]shape, len(f.rooms))
	for i := range f.rooms {
		shapes[i] = f.shapes(&f.rooms[i])
	}
	if config.PopulationSize < 1 {
		config.PopulationSize = 1
	}
	return &geneticPacker{
		f:      f,
		config: config,
		shapes: shapes,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// optimize evolves the population and returns the best layout if it places
// every room.
func (g *geneticPacker) optimize() (model.Layout, bool) {
	if len(g.f.rooms) == 0 {
		return model.Layout{}, false
	}
	for _, s := range g.shapes {
		if len(s) == 0 {
			return model.Layout{}, false
		}
	}

	population := g.initPopulation()
	for i := range population {
		population[i].fitness = g.evaluate(population[i])
	}

	for gen := 0; gen < g.config.Generations; gen++ {
		sort.SliceStable(population, func(i, j int) bool {
			return population[i].fitness > population[j].fitness
		})
		if g.complete(population[0]) {
			break
		}

		next := make([]chromosome, 0, g.config.PopulationSize)
		elite := g.config.EliteCount
		if elite > len(population) {
			elite = len(population)
		}
		for i := 0; i < elite; i++ {
			next = append(next, g.copyChromosome(population[i]))
		}
		for len(next) < g.config.PopulationSize {
			p1 := g.tournamentSelect(population)
			p2 := g.tournamentSelect(population)
			child := g.orderCrossover(p1, p2)
			g.mutate(&child)
			child.fitness = g.evaluate(child)
			next = append(next, child)
		}
		population = next
	}

	sort.SliceStable(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})
	l, placed := g.decode(population[0])
	return l, placed == len(g.f.rooms)
}

func (g *geneticPacker) initPopulation() []chromosome {
	n := len(g.f.rooms)
	population := make([]chromosome, g.config.PopulationSize)
	for i := range population {
		genes := make([]gene, n)
		perm := g.rng.Perm(n)
		for j := 0; j < n; j++ {
			genes[j] = gene{room: perm[j], wide: g.rng.Float64() < 0.5}
		}
		population[i] = chromosome{genes: genes}
	}
	// Seed with the greedy largest-first order.
	population[0] = g.greedyChromosome()
	return population
}

func (g *geneticPacker) greedyChromosome() chromosome {
	order := g.f.greedyOrder(g.shapes)
	genes := make([]gene, len(order))
	for i, room := range order {
		genes[i] = gene{room: room}
	}
	return chromosome{genes: genes}
}

// decode packs the rooms in chromosome order. The flagged shape is tried
// first, then the remaining shapes.
func (g *geneticPacker) decode(c chromosome) (model.Layout, int) {
	wide := make(map[int]bool, len(c.genes))
	order := make([]int, len(c.genes))
	for i, gn := range c.genes {
		order[i] = gn.room
		wide[gn.room] = gn.wide
	}
	return g.f.packOrder(order, func(mp *maxRectsPacker, room int) []shape {
		if wide[room] {
			return orderShapes(mp, g.shapes[room], shapeWide)
		}
		return g.shapes[room]
	})
}

// evaluate rewards placed area, and among complete layouts prefers the
// better heuristic score.
func (g *geneticPacker) evaluate(c chromosome) float64 {
	l, placed := g.decode(c)
	b := g.f.inst.Boundary
	fitness := float64(placed) + l.UsedArea()/b.Area()
	if placed == len(g.f.rooms) {
		// Scores are normalized by the boundary so they stay below one.
		fitness += 1 - g.f.heuristicScore(l)/(b.Area()+2*(b.Width+b.Height)*float64(placed)+1)
	}
	return fitness
}

func (g *geneticPacker) complete(c chromosome) bool {
	_, placed := g.decode(c)
	return placed == len(g.f.rooms)
}

func (g *geneticPacker) tournamentSelect(population []chromosome) chromosome {
	best := population[g.rng.Intn(len(population))]
	for i := 1; i < g.config.TournamentSize; i++ {
		candidate := population[g.rng.Intn(len(population))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return g.copyChromosome(best)
}

// orderCrossover is OX1: a slice of parent1 is kept in place and the rest is
// filled with parent2's rooms in parent2's order.
func (g *geneticPacker) orderCrossover(parent1, parent2 chromosome) chromosome {
	n := len(parent1.genes)
	if n <= 2 {
		return g.copyChromosome(parent1)
	}
	point1 := g.rng.Intn(n)
	point2 := g.rng.Intn(n)
	if point1 > point2 {
		point1, point2 = point2, point1
	}

	child := chromosome{genes: make([]gene, n)}
	inSegment := make(map[int]bool)
	for i := point1; i <= point2; i++ {
		child.genes[i] = parent1.genes[i]
		inSegment[parent1.genes[i].room] = true
	}
	idx := (point2 + 1) % n
	for _, pg := range parent2.genes {
		if !inSegment[pg.room] {
			child.genes[idx] = pg
			idx = (idx + 1) % n
		}
	}
	return child
}

// mutate swaps two rooms, flips a shape flag, or reverses a segment.
func (g *geneticPacker) mutate(c *chromosome) {
	n := len(c.genes)
	if n < 2 {
		return
	}
	if g.rng.Float64() < g.config.MutationRate {
		i, j := g.rng.Intn(n), g.rng.Intn(n)
		c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
	}
	if g.rng.Float64() < g.config.MutationRate {
		i := g.rng.Intn(n)
		c.genes[i].wide = !c.genes[i].wide
	}
	if g.rng.Float64() < g.config.MutationRate*0.5 {
		i, j := g.rng.Intn(n), g.rng.Intn(n)
		if i > j {
			i, j = j, i
		}
		for i < j {
			c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
			i++
			j--
		}
	}
}

func (g *geneticPacker) copyChromosome(c chromosome) chromosome {
	genes := make([]gene, len(c.genes))
	copy(genes, c.genes)
	return chromosome{genes: genes, fitness: c.fitness}
}
