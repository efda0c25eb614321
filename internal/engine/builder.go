package engine

import (
	"fmt"
	"math"
	"sync"

	"github.com/piwi3910/RoomPlan/internal/mip"
	"github.com/piwi3910/RoomPlan/internal/model"
)

// Separation is the relative position enforced between the rooms of a pair
// (i, j), i listed before j in the instance.
type Separation int

const (
	LeftOf  Separation = iota // i lies left of j
	RightOf                   // i lies right of j
	Below                     // i lies below j
	Above                     // i lies above j
)

var separations = [4]Separation{LeftOf, RightOf, Below, Above}

func (s Separation) String() string {
	switch s {
	case LeftOf:
		return "left-of"
	case RightOf:
		return "right-of"
	case Below:
		return "below"
	case Above:
		return "above"
	}
	return fmt.Sprintf("separation(%d)", int(s))
}

// horizontal reports whether the separating gap runs along x.
func (s Separation) horizontal() bool {
	return s == LeftOf || s == RightOf
}

type buildConfig struct {
	gridStep      float64
	maxCandidates int
	minContact    float64
}

func defaultBuildConfig() buildConfig {
	return buildConfig{gridStep: 1.0, maxCandidates: 12, minContact: 1.0}
}

func (c buildConfig) validate() error {
	if !(c.gridStep > 0) || math.IsInf(c.gridStep, 0) {
		return &model.InvalidInstanceError{Field: "grid_step", Reason: fmt.Sprintf("must be positive, got %g", c.gridStep)}
	}
	if c.maxCandidates < 2 {
		return &model.InvalidInstanceError{Field: "max_width_candidates", Reason: fmt.Sprintf("must be at least 2, got %d", c.maxCandidates)}
	}
	if !(c.minContact >= 0) || math.IsInf(c.minContact, 0) {
		return &model.InvalidInstanceError{Field: "min_contact", Reason: fmt.Sprintf("must be zero or positive, got %g", c.minContact)}
	}
	return nil
}

// BuildOption tunes the formulation.
type BuildOption func(*buildConfig)

// WithGridStep sets the spacing between width candidates.
func WithGridStep(step float64) BuildOption {
	return func(c *buildConfig) { c.gridStep = step }
}

// WithMaxWidthCandidates caps the width candidates per room.
func WithMaxWidthCandidates(n int) BuildOption {
	return func(c *buildConfig) { c.maxCandidates = n }
}

// WithMinContact sets the shared edge length two rooms need to count as
// adjacent.
func WithMinContact(length float64) BuildOption {
	return func(c *buildConfig) { c.minContact = length }
}

// BuildOptionsFromConfig maps solver settings onto build options.
func BuildOptionsFromConfig(cfg model.SolverConfig) []BuildOption {
	var opts []BuildOption
	if cfg.GridStep > 0 {
		opts = append(opts, WithGridStep(cfg.GridStep))
	}
	if cfg.MaxWidthCandidates > 0 {
		opts = append(opts, WithMaxWidthCandidates(cfg.MaxWidthCandidates))
	}
	if cfg.MinContact >= 0 {
		opts = append(opts, WithMinContact(cfg.MinContact))
	}
	return opts
}

// gridCell is one width candidate of a room: z selects the candidate and u
// carries z*h, so the candidate's area contribution is width*u.
type gridCell struct {
	width float64
	hMin  float64 // smallest height compatible with this width
	z, u  mip.Var
}

type roomVars struct {
	spec       model.RoomSpec
	x, y, w, h mip.Var
	maxW, maxH float64
	grid       []gridCell // nil when the room's area is not tracked
}

type pairVars struct {
	i, j     int
	sep      [4]mip.Var
	touch    [4]mip.Var
	hasTouch bool // touch is set only for positive weights under the adjacency objective
	weight   float64
	// Projection overlap needed for the touch indicators, per axis.
	contactX, contactY float64
}

// Formulation is a built model together with the mapping back to rooms. It
// is consumed by exactly one solve.
type Formulation struct {
	inst       model.Instance
	kind       model.ObjectiveKind
	model      *mip.Model
	rooms      []roomVars
	pairs      []pairVars
	bigM       float64
	minContact float64

	envW, envH  mip.Var
	hasEnvelope bool

	mu       sync.Mutex
	released bool
}

// Instance returns the instance the formulation was built from.
func (f *Formulation) Instance() model.Instance { return f.inst }

// Objective returns the objective kind.
func (f *Formulation) Objective() model.ObjectiveKind { return f.kind }

// Model exposes the underlying program for inspection. Callers must not
// modify it. It returns nil once a solve has consumed the formulation.
func (f *Formulation) Model() *mip.Model { return f.model }

// Stats returns the model dimensions.
func (f *Formulation) Stats() mip.Stats { return f.model.Stats() }

// BigM returns the constant used to switch separation rows off.
func (f *Formulation) BigM() float64 { return f.bigM }

// Candidates returns the width grid of room id, nil when its area is not
// tracked.
func (f *Formulation) Candidates(id string) []float64 {
	for _, rv := range f.rooms {
		if rv.spec.ID != id {
			continue
		}
		var out []float64
		for _, c := range rv.grid {
			out = append(out, c.width)
		}
		return out
	}
	return nil
}

// Released reports whether the formulation has been handed to a solve.
func (f *Formulation) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// acquire claims the formulation for one solve.
func (f *Formulation) acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return model.ErrFormulationReleased
	}
	f.released = true
	return nil
}

// release drops the program once a solve is over.
func (f *Formulation) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = nil
	f.rooms = nil
	f.pairs = nil
}

// Build turns an instance into a mixed-integer program for objective kind.
// It performs no I/O.
func Build(inst model.Instance, kind model.ObjectiveKind, opts ...BuildOption) (*Formulation, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, &model.InvalidInstanceError{Field: "objective", Reason: fmt.Sprintf("unknown objective %q", kind)}
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}

	b := inst.Boundary
	name := inst.Name
	if name == "" {
		name = "floorplan"
	}
	f := &Formulation{
		inst:       inst.Clone(),
		kind:       kind,
		model:      mip.NewModel(name),
		bigM:       b.Width + b.Height + inst.Spacing + cfg.minContact,
		minContact: cfg.minContact,
	}

	for _, r := range f.inst.Rooms {
		if err := f.addRoom(r, cfg); err != nil {
			return nil, err
		}
	}
	f.addAreaCut()
	f.addPairs()
	for _, rel := range f.inst.Relations {
		f.addRelation(rel)
	}
	f.setObjective()
	return f, nil
}

func (f *Formulation) tracksArea(r model.RoomSpec) bool {
	return r.TargetArea > 0 || f.kind == model.ObjectiveUnusedArea
}

func (f *Formulation) addRoom(r model.RoomSpec, cfg buildConfig) error {
	b := f.inst.Boundary
	m := f.model
	minW, maxW := r.WidthRange(b)
	minH, maxH := r.HeightRange(b)

	rv := roomVars{spec: r, maxW: maxW, maxH: maxH}
	rv.x = m.AddContinuous("x["+r.ID+"]", 0, math.Max(0, b.Width-minW))
	rv.y = m.AddContinuous("y["+r.ID+"]", 0, math.Max(0, b.Height-minH))
	rv.w = m.AddContinuous("w["+r.ID+"]", math.Min(minW, maxW), maxW)
	rv.h = m.AddContinuous("h["+r.ID+"]", math.Min(minH, maxH), maxH)

	m.AddLE("contain-x["+r.ID+"]", mip.Sum(mip.T(rv.x, 1), mip.T(rv.w, 1)), b.Width)
	m.AddLE("contain-y["+r.ID+"]", mip.Sum(mip.T(rv.y, 1), mip.T(rv.h, 1)), b.Height)

	if r.MinAspect > 0 {
		m.AddGE("aspect-min["+r.ID+"]", mip.Sum(mip.T(rv.w, 1), mip.T(rv.h, -r.MinAspect)), 0)
	}
	if r.MaxAspect > 0 {
		m.AddLE("aspect-max["+r.ID+"]", mip.Sum(mip.T(rv.w, 1), mip.T(rv.h, -r.MaxAspect)), 0)
	}

	if f.tracksArea(r) {
		cells, err := feasibleWidths(r, b, cfg.gridStep, cfg.maxCandidates)
		if err != nil {
			return err
		}
		f.addGrid(&rv, cells)
	}
	f.rooms = append(f.rooms, rv)
	return nil
}

// addGrid links w to the candidate selected by z and linearizes z*h into u.
func (f *Formulation) addGrid(rv *roomVars, cells []gridCell) {
	m := f.model
	id := rv.spec.ID
	pick := mip.Expr{}
	width := mip.Sum(mip.T(rv.w, 1))
	for k := range cells {
		c := &cells[k]
		c.z = m.AddBinary(fmt.Sprintf("z[%s,%d]", id, k))
		c.u = m.AddContinuous(fmt.Sprintf("u[%s,%d]", id, k), 0, rv.maxH)
		pick = pick.Plus(c.z, 1)
		width = width.Plus(c.z, -c.width)

		m.AddLE(fmt.Sprintf("mc-sel[%s,%d]", id, k), mip.Sum(mip.T(c.u, 1), mip.T(c.z, -rv.maxH)), 0)
		m.AddLE(fmt.Sprintf("mc-height[%s,%d]", id, k), mip.Sum(mip.T(c.u, 1), mip.T(rv.h, -1)), 0)
		m.AddGE(fmt.Sprintf("mc-link[%s,%d]", id, k), mip.Sum(mip.T(c.u, 1), mip.T(rv.h, -1), mip.T(c.z, -rv.maxH)), -rv.maxH)
		if c.hMin > 0 {
			m.AddGE(fmt.Sprintf("mc-floor[%s,%d]", id, k), mip.Sum(mip.T(c.u, 1), mip.T(c.z, -c.hMin)), 0)
		}
	}
	m.AddEQ("grid-one["+id+"]", pick, 1)
	m.AddEQ("grid-width["+id+"]", width, 0)
	if rv.spec.TargetArea > 0 {
		m.AddGE("target-area["+id+"]", areaExpr(cells), rv.spec.TargetArea)
	}
	rv.grid = cells
}

func areaExpr(cells []gridCell) mip.Expr {
	e := mip.Expr{}
	for _, c := range cells {
		e = e.Plus(c.u, c.width)
	}
	return e
}

// addAreaCut bounds the tracked areas by what the boundary leaves after the
// minimum areas of untracked rooms.
func (f *Formulation) addAreaCut() {
	total := mip.Expr{}
	tracked := 0
	budget := f.inst.Boundary.Area()
	for i := range f.rooms {
		rv := &f.rooms[i]
		if rv.grid == nil {
			budget -= rv.spec.MinWidth * rv.spec.MinHeight
			continue
		}
		total = total.PlusExpr(areaExpr(rv.grid), 1)
		tracked++
	}
	if tracked > 0 {
		f.model.AddLE("area-budget", total, budget)
	}
}

// addPairs emits the four-way disjunction for every unordered pair, plus
// touch indicators for pairs with a positive adjacency weight when the
// objective rewards adjacency.
func (f *Formulation) addPairs() {
	m := f.model
	p := f.inst.Spacing
	bigM := f.bigM
	for i := 0; i < len(f.rooms); i++ {
		for j := i + 1; j < len(f.rooms); j++ {
			a, b := &f.rooms[i], &f.rooms[j]
			pv := pairVars{i: i, j: j}
			tag := a.spec.ID + "," + b.spec.ID
			one := mip.Expr{}
			for _, s := range separations {
				pv.sep[s] = m.AddBinary(fmt.Sprintf("s-%s[%s]", s, tag))
				one = one.Plus(pv.sep[s], 1)
				lead, lag := a, b
				if s == RightOf || s == Above {
					lead, lag = b, a
				}
				// lead + size + p <= lag + M(1 - s)
				var row mip.Expr
				if s.horizontal() {
					row = mip.Sum(mip.T(lead.x, 1), mip.T(lead.w, 1), mip.T(lag.x, -1), mip.T(pv.sep[s], bigM))
				} else {
					row = mip.Sum(mip.T(lead.y, 1), mip.T(lead.h, 1), mip.T(lag.y, -1), mip.T(pv.sep[s], bigM))
				}
				m.AddLE(fmt.Sprintf("sep-%s[%s]", s, tag), row, bigM-p)
			}
			m.AddEQ("sep-one["+tag+"]", one, 1)

			pv.weight = f.inst.AdjacencyWeight(a.spec.ID, b.spec.ID)
			if f.kind == model.ObjectiveAdjacency && pv.weight > 0 {
				f.addTouch(&pv, a, b, tag)
			}
			f.pairs = append(f.pairs, pv)
		}
	}
}

// addTouch adds t <= s per direction; t = 1 forces the gap to be at most
// the spacing and the projections on the other axis to overlap by the
// contact length.
func (f *Formulation) addTouch(pv *pairVars, a, b *roomVars, tag string) {
	m := f.model
	p := f.inst.Spacing
	bigM := f.bigM
	pv.hasTouch = true
	pv.contactY = math.Min(f.minContact, math.Min(a.maxH, b.maxH))
	pv.contactX = math.Min(f.minContact, math.Min(a.maxW, b.maxW))

	for _, s := range separations {
		t := m.AddBinary(fmt.Sprintf("t-%s[%s]", s, tag))
		pv.touch[s] = t
		m.AddLE(fmt.Sprintf("touch-sel-%s[%s]", s, tag), mip.Sum(mip.T(t, 1), mip.T(pv.sep[s], -1)), 0)

		lead, lag := a, b
		if s == RightOf || s == Above {
			lead, lag = b, a
		}
		if s.horizontal() {
			m.AddLE(fmt.Sprintf("touch-gap-%s[%s]", s, tag),
				mip.Sum(mip.T(lag.x, 1), mip.T(lead.x, -1), mip.T(lead.w, -1), mip.T(t, bigM)), bigM+p)
			f.addOverlap(t, a.y, a.h, b.y, b.h, pv.contactY, fmt.Sprintf("%s[%s]", s, tag))
		} else {
			m.AddLE(fmt.Sprintf("touch-gap-%s[%s]", s, tag),
				mip.Sum(mip.T(lag.y, 1), mip.T(lead.y, -1), mip.T(lead.h, -1), mip.T(t, bigM)), bigM+p)
			f.addOverlap(t, a.x, a.w, b.x, b.w, pv.contactX, fmt.Sprintf("%s[%s]", s, tag))
		}
	}
}

// addOverlap requires [pa, pa+la] and [pb, pb+lb] to share at least delta
// when t = 1.
func (f *Formulation) addOverlap(t, pa, la, pb, lb mip.Var, delta float64, tag string) {
	m := f.model
	bigM := f.bigM
	m.AddLE("touch-span-a-"+tag, mip.Sum(mip.T(pb, 1), mip.T(pa, -1), mip.T(la, -1), mip.T(t, bigM)), bigM-delta)
	m.AddLE("touch-span-b-"+tag, mip.Sum(mip.T(pa, 1), mip.T(pb, -1), mip.T(lb, -1), mip.T(t, bigM)), bigM-delta)
	m.AddGE("touch-len-a-"+tag, mip.Sum(mip.T(la, 1), mip.T(t, -delta)), 0)
	m.AddGE("touch-len-b-"+tag, mip.Sum(mip.T(lb, 1), mip.T(t, -delta)), 0)
}

func (f *Formulation) setObjective() {
	m := f.model
	b := f.inst.Boundary
	switch f.kind {
	case model.ObjectiveUnusedArea:
		e := mip.Expr{Constant: b.Area()}
		for i := range f.rooms {
			e = e.PlusExpr(areaExpr(f.rooms[i].grid), -1)
		}
		m.SetObjective(mip.Minimize, e)

	case model.ObjectivePerimeter:
		e := mip.Expr{}
		for _, rv := range f.rooms {
			e = e.Plus(rv.w, 2).Plus(rv.h, 2)
		}
		m.SetObjective(mip.Minimize, e)

	case model.ObjectiveAdjacency:
		e := mip.Expr{}
		for _, pv := range f.pairs {
			if pv.weight <= 0 {
				continue
			}
			for _, s := range separations {
				e = e.Plus(pv.touch[s], pv.weight)
			}
		}
		m.SetObjective(mip.Maximize, e)

	case model.ObjectiveEnvelope:
		f.envW = m.AddContinuous("envelope-w", 0, b.Width)
		f.envH = m.AddContinuous("envelope-h", 0, b.Height)
		f.hasEnvelope = true
		for _, rv := range f.rooms {
			m.AddGE("envelope-x["+rv.spec.ID+"]", mip.Sum(mip.T(f.envW, 1), mip.T(rv.x, -1), mip.T(rv.w, -1)), 0)
			m.AddGE("envelope-y["+rv.spec.ID+"]", mip.Sum(mip.T(f.envH, 1), mip.T(rv.y, -1), mip.T(rv.h, -1)), 0)
		}
		m.SetObjective(mip.Minimize, mip.Sum(mip.T(f.envW, 2), mip.T(f.envH, 2)))
	}
}
