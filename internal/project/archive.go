package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// ArchiveVersion is written into every solve record.
const ArchiveVersion = "1.0.0"

// SolveRecord archives one solve: the instance exactly as solved and its
// outcome.
type SolveRecord struct {
	Version   string             `json:"version"`
	ID        string             `json:"id"`
	CreatedAt string             `json:"created_at"`
	Instance  model.Instance     `json:"instance"`
	Result    model.LayoutResult `json:"result"`
}

// NewSolveRecord stamps a record with a fresh ID and the current UTC time.
func NewSolveRecord(inst model.Instance, result model.LayoutResult) SolveRecord {
	return SolveRecord{
		Version:   ArchiveVersion,
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Instance:  inst.Clone(),
		Result:    result,
	}
}

// SaveSolveRecord writes the record as JSON, creating parent directories.
func SaveSolveRecord(path string, rec SolveRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal solve record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write solve record: %w", err)
	}
	return nil
}

// LoadSolveRecord reads a record written by SaveSolveRecord.
func LoadSolveRecord(path string) (SolveRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SolveRecord{}, fmt.Errorf("failed to read solve record: %w", err)
	}
	var rec SolveRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return SolveRecord{}, fmt.Errorf("failed to parse solve record: %w", err)
	}
	if rec.Version == "" {
		return SolveRecord{}, fmt.Errorf("invalid solve record: missing version field")
	}
	if rec.Result.IsSolved() && len(rec.Result.Layout.Rooms) != len(rec.Instance.Rooms) {
		return SolveRecord{}, fmt.Errorf("invalid solve record: layout has %d rooms, instance has %d",
			len(rec.Result.Layout.Rooms), len(rec.Instance.Rooms))
	}
	return rec, nil
}
