package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/RoomPlan/internal/model"
)

const studioTOML = `
name = "studio"
spacing = 0.5
rules = [
  "room bath has width of 2",
  "room bath is adjacent to room living with weight 2",
  "room bath is left of room living",
]

[boundary]
width = 8
height = 6

[[rooms]]
id = "living"
min_width = 3
min_height = 3
target_area = 16

[[rooms]]
id = "bath"
label = "Bathroom"
min_width = 1.5
min_height = 2
max_height = 3
`

func TestLoadInstanceTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.toml")
	if err := os.WriteFile(path, []byte(studioTOML), 0644); err != nil {
		t.Fatal(err)
	}

	inst, err := LoadInstance(path)
	if err != nil {
		t.Fatalf("LoadInstance failed: %v", err)
	}
	if inst.Boundary != (model.Boundary{Width: 8, Height: 6}) {
		t.Errorf("boundary = %+v", inst.Boundary)
	}
	if inst.Spacing != 0.5 {
		t.Errorf("spacing = %g", inst.Spacing)
	}
	if len(inst.Rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(inst.Rooms))
	}
	bath := inst.Rooms[1]
	if bath.MinWidth != 2 || bath.MaxWidth != 2 {
		t.Errorf("bath width bounds = %g..%g", bath.MinWidth, bath.MaxWidth)
	}
	if bath.Adjacency["living"] != 2 {
		t.Errorf("bath adjacency = %v", bath.Adjacency)
	}
	if len(inst.Relations) != 1 || inst.Relations[0].Kind != model.RelationLeftOf {
		t.Errorf("relations = %+v", inst.Relations)
	}
	if inst.Rules != nil {
		t.Errorf("rules should be compiled away, got %v", inst.Rules)
	}
	if err := inst.Validate(); err != nil {
		t.Errorf("loaded instance invalid: %v", err)
	}
}

func TestLoadInstanceDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corner-office.json")
	content := `{"boundary": {"width": 4, "height": 4}, "rooms": [{"id": "a", "min_width": 1, "min_height": 1}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	inst, err := LoadInstance(path)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Name != "corner-office" {
		t.Errorf("expected name from file, got %q", inst.Name)
	}
}

func TestSaveAndLoadInstance(t *testing.T) {
	for _, name := range []string{"plan.toml", "plan.json"} {
		t.Run(name, func(t *testing.T) {
			inst := model.NewInstance("plan", 10, 8)
			inst.Rooms = []model.RoomSpec{model.NewRoom("a", 2, 2), model.NewRoom("b", 3, 1)}
			inst.Rooms[0].Adjacency = map[string]float64{"b": 1.5}
			inst.Relations = []model.Relation{
				{Kind: model.RelationSymmetric, Room: "a", Other: "b", Axis: "x", Value: 5},
				{Kind: model.RelationContainsPoint, Room: "b", X: 1, Y: 2},
			}

			path := filepath.Join(t.TempDir(), "nested", name)
			if err := SaveInstance(path, inst); err != nil {
				t.Fatalf("SaveInstance failed: %v", err)
			}
			loaded, err := LoadInstance(path)
			if err != nil {
				t.Fatalf("LoadInstance failed: %v", err)
			}
			if loaded.ID != inst.ID || loaded.Name != "plan" {
				t.Errorf("identity lost: %q %q", loaded.ID, loaded.Name)
			}
			if len(loaded.Rooms) != 2 || loaded.Rooms[0].Adjacency["b"] != 1.5 {
				t.Errorf("rooms = %+v", loaded.Rooms)
			}
			if len(loaded.Relations) != 2 {
				t.Fatalf("relations = %+v", loaded.Relations)
			}
			if loaded.Relations[0] != inst.Relations[0] || loaded.Relations[1] != inst.Relations[1] {
				t.Errorf("relations changed: %+v", loaded.Relations)
			}
		})
	}
}

func TestLoadInstanceErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	if _, err := LoadInstance(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	_, err := LoadInstance(write("typo.toml", "[boundary]\nwidht = 3\n"))
	if !model.IsInvalidInstance(err) {
		t.Errorf("expected invalid instance for unknown key, got %v", err)
	}

	_, err = LoadInstance(write("typo.json", `{"boundry": {}}`))
	if !model.IsInvalidInstance(err) {
		t.Errorf("expected invalid instance for unknown field, got %v", err)
	}

	_, err = LoadInstance(write("rules.toml", "rules = [\"room a is next to room b\"]\n"))
	if !model.IsInvalidInstance(err) {
		t.Errorf("expected invalid instance for bad rule, got %v", err)
	}
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{
		"a.json": FormatJSON,
		"a.JSON": FormatJSON,
		"a.toml": FormatTOML,
		"a":      FormatTOML,
		"a.plan": FormatTOML,
	}
	for path, want := range tests {
		if got := FormatOf(path); got != want {
			t.Errorf("FormatOf(%q) = %s, want %s", path, got, want)
		}
	}
}
