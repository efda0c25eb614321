package model

import (
	"time"

	"github.com/google/uuid"
)

// InstanceTemplate is a reusable floor plan brief: boundary, rooms and
// relations, without any solve results.
type InstanceTemplate struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
	Objective   ObjectiveKind `json:"objective,omitempty"`
	Boundary    Boundary      `json:"boundary"`
	Spacing     float64       `json:"spacing,omitempty"`
	Rooms       []RoomSpec    `json:"rooms"`
	Relations   []Relation    `json:"relations,omitempty"`
	Rules       []string      `json:"rules,omitempty"`
}

// NewInstanceTemplate captures an instance as a template.
func NewInstanceTemplate(name, description string, in Instance, objective ObjectiveKind) InstanceTemplate {
	now := time.Now().UTC().Format(time.RFC3339)
	cp := in.Clone()
	return InstanceTemplate{
		ID:          uuid.New().String()[:8],
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Objective:   objective,
		Boundary:    cp.Boundary,
		Spacing:     cp.Spacing,
		Rooms:       cp.Rooms,
		Relations:   cp.Relations,
		Rules:       cp.Rules,
	}
}

// ToInstance creates a fresh instance from this template.
func (t InstanceTemplate) ToInstance(name string) Instance {
	if name == "" {
		name = t.Name
	}
	src := Instance{
		Boundary:  t.Boundary,
		Spacing:   t.Spacing,
		Rooms:     t.Rooms,
		Relations: t.Relations,
		Rules:     t.Rules,
	}
	in := src.Clone()
	in.ID = uuid.New().String()[:8]
	in.Name = name
	return in
}

// TemplateStore holds a collection of instance templates.
type TemplateStore struct {
	Templates []InstanceTemplate `json:"templates"`
}

// NewTemplateStore creates an empty template store.
func NewTemplateStore() TemplateStore {
	return TemplateStore{
		Templates: []InstanceTemplate{},
	}
}

// Add adds a template to the store.
func (ts *TemplateStore) Add(t InstanceTemplate) {
	ts.Templates = append(ts.Templates, t)
}

// Remove removes a template by ID. Returns true if found and removed.
func (ts *TemplateStore) Remove(id string) bool {
	for i, t := range ts.Templates {
		if t.ID == id {
			ts.Templates = append(ts.Templates[:i], ts.Templates[i+1:]...)
			return true
		}
	}
	return false
}

// FindByID returns a pointer to the template with the given ID, or nil.
func (ts *TemplateStore) FindByID(id string) *InstanceTemplate {
	for i := range ts.Templates {
		if ts.Templates[i].ID == id {
			return &ts.Templates[i]
		}
	}
	return nil
}

// FindByName returns a pointer to the first template with the given name, or nil.
func (ts *TemplateStore) FindByName(name string) *InstanceTemplate {
	for i := range ts.Templates {
		if ts.Templates[i].Name == name {
			return &ts.Templates[i]
		}
	}
	return nil
}

// Names returns the template names in store order.
func (ts *TemplateStore) Names() []string {
	names := make([]string, len(ts.Templates))
	for i, t := range ts.Templates {
		names[i] = t.Name
	}
	return names
}

// BuiltinTemplates returns the templates shipped with the application.
func BuiltinTemplates() []InstanceTemplate {
	studio := Instance{
		Boundary: Boundary{Width: 8, Height: 6},
		Rooms: []RoomSpec{
			{ID: "living", Label: "Living", MinWidth: 3, MinHeight: 3, TargetArea: 16, MinAspect: 0.5, MaxAspect: 2,
				Adjacency: map[string]float64{"kitchen": 2}},
			{ID: "kitchen", Label: "Kitchen", MinWidth: 2, MinHeight: 2, MaxWidth: 4, MaxHeight: 4},
			{ID: "bath", Label: "Bath", MinWidth: 1.5, MinHeight: 2, MaxWidth: 3, MaxHeight: 3},
		},
	}
	twoBed := Instance{
		Boundary: Boundary{Width: 12, Height: 9},
		Spacing:  0.1,
		Rooms: []RoomSpec{
			{ID: "living", Label: "Living", MinWidth: 4, MinHeight: 3, TargetArea: 20,
				Adjacency: map[string]float64{"kitchen": 3, "hall": 1}},
			{ID: "kitchen", Label: "Kitchen", MinWidth: 2.5, MinHeight: 2.5, MaxWidth: 5, MaxHeight: 5},
			{ID: "bed1", Label: "Bedroom 1", MinWidth: 3, MinHeight: 3, TargetArea: 12, MaxAspect: 2, MinAspect: 0.5},
			{ID: "bed2", Label: "Bedroom 2", MinWidth: 2.5, MinHeight: 2.5, TargetArea: 9, MaxAspect: 2, MinAspect: 0.5},
			{ID: "bath", Label: "Bath", MinWidth: 1.8, MinHeight: 2, MaxWidth: 3, MaxHeight: 3,
				Adjacency: map[string]float64{"hall": 2}},
			{ID: "hall", Label: "Hall", MinWidth: 1, MinHeight: 1, MaxWidth: 2},
		},
	}
	office := Instance{
		Boundary: Boundary{Width: 10, Height: 10},
		Rooms: []RoomSpec{
			{ID: "open", Label: "Open plan", MinWidth: 5, MinHeight: 4},
			{ID: "meeting", Label: "Meeting", MinWidth: 3, MinHeight: 3, MaxWidth: 4, MaxHeight: 4},
			{ID: "focus", Label: "Focus", MinWidth: 2, MinHeight: 2, MaxWidth: 3, MaxHeight: 3},
		},
		Relations: []Relation{
			{Kind: RelationAlignHorizontal, Room: "meeting", Anchor: AnchorBottom, Other: "focus", OtherAnchor: AnchorBottom},
		},
	}
	return []InstanceTemplate{
		NewInstanceTemplate("studio", "Single living space with kitchen and bath", studio, ObjectiveAdjacency),
		NewInstanceTemplate("two-bedroom", "Apartment with two bedrooms and a hall", twoBed, ObjectiveUnusedArea),
		NewInstanceTemplate("office-pod", "Office floor with open plan and meeting rooms", office, ObjectivePerimeter),
	}
}
