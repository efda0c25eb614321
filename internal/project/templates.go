package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// DefaultTemplatePath returns the default file path for the templates store.
// This is located at ~/.roomplan/templates.json.
func DefaultTemplatePath() string {
	return filepath.Join(DefaultConfigDir(), "templates.json")
}

// SaveTemplates writes the template store to a JSON file.
func SaveTemplates(path string, store model.TemplateStore) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadTemplates reads a template store from a JSON file.
// If the file does not exist, returns an empty store.
func LoadTemplates(path string) (model.TemplateStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewTemplateStore(), nil
		}
		return model.TemplateStore{}, err
	}
	var store model.TemplateStore
	if err := json.Unmarshal(data, &store); err != nil {
		return model.TemplateStore{}, fmt.Errorf("failed to parse templates %s: %w", path, err)
	}
	if store.Templates == nil {
		store.Templates = []model.InstanceTemplate{}
	}
	return store, nil
}

// Catalog returns the built-in templates followed by the user's. A user
// template named like a built-in one replaces it.
func Catalog(user model.TemplateStore) []model.InstanceTemplate {
	out := make([]model.InstanceTemplate, 0, len(user.Templates)+3)
	for _, b := range model.BuiltinTemplates() {
		if user.FindByName(b.Name) == nil {
			out = append(out, b)
		}
	}
	return append(out, user.Templates...)
}

// FindTemplate looks a template up by name or ID in the catalog.
func FindTemplate(user model.TemplateStore, key string) (model.InstanceTemplate, bool) {
	for _, t := range Catalog(user) {
		if t.Name == key || t.ID == key {
			return t, true
		}
	}
	return model.InstanceTemplate{}, false
}
