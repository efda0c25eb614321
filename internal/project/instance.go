package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/piwi3910/RoomPlan/internal/dsl"
	"github.com/piwi3910/RoomPlan/internal/model"
)

// Format is an instance file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf picks the encoding from the file extension; anything other than
// .json is read as TOML.
func FormatOf(path string) Format {
	if isJSON(path) {
		return FormatJSON
	}
	return FormatTOML
}

// DecodeInstance parses an instance without compiling its rules.
func DecodeInstance(data []byte, format Format) (model.Instance, error) {
	var inst model.Instance
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&inst)
	case FormatTOML:
		var md toml.MetaData
		md, err = toml.Decode(string(data), &inst)
		if err == nil {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				err = fmt.Errorf("unknown key %s", undecoded[0])
			}
		}
	default:
		return model.Instance{}, fmt.Errorf("unsupported instance format %q", format)
	}
	if err != nil {
		return model.Instance{}, &model.InvalidInstanceError{Field: "file", Reason: err.Error()}
	}
	return inst, nil
}

// EncodeInstance renders inst in the given format.
func EncodeInstance(inst model.Instance, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(inst, "", "  ")
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(inst); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported instance format %q", format)
}

// LoadInstance reads an instance file and compiles its rules into relations
// and room bounds. The name defaults to the file's base name.
func LoadInstance(path string) (model.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Instance{}, fmt.Errorf("failed to read instance: %w", err)
	}
	inst, err := DecodeInstance(data, FormatOf(path))
	if err != nil {
		return model.Instance{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if inst.Name == "" {
		inst.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	compiled, err := dsl.Compile(inst)
	if err != nil {
		return model.Instance{}, fmt.Errorf("failed to compile rules in %s: %w", path, err)
	}
	return compiled, nil
}

// SaveInstance writes inst to path in the format its extension selects.
func SaveInstance(path string, inst model.Instance) error {
	data, err := EncodeInstance(inst, FormatOf(path))
	if err != nil {
		return fmt.Errorf("failed to encode instance: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create instance directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
