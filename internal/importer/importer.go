// Package importer reads room lists from CSV and Excel files and room
// footprints from DXF drawings. Room lists support automatic delimiter
// detection, flexible column mapping, and case-insensitive header
// recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// ImportResult holds the results of an import operation. Row problems are
// collected rather than aborting the import.
type ImportResult struct {
	Rooms    []model.RoomSpec
	Boundary *model.Boundary // Set only by DXF imports that pick an outline
	Errors   []string
	Warnings []string
}

// Column roles, in positional order for files without a header.
const (
	colID = iota
	colMinWidth
	colMinHeight
	colMaxWidth
	colMaxHeight
	colTargetArea
	colMinAspect
	colMaxAspect
	colLabel
	colColor
	numColumns
)

// ColumnMapping maps column roles to their indices in the data; -1 means
// absent.
type ColumnMapping [numColumns]int

// headerAliases lists accepted header names per role (all lowercase).
var headerAliases = [numColumns][]string{
	colID:         {"id", "room", "room id", "name", "key"},
	colMinWidth:   {"min_width", "min width", "width", "w", "min w"},
	colMinHeight:  {"min_height", "min height", "height", "h", "depth", "min h"},
	colMaxWidth:   {"max_width", "max width", "max w"},
	colMaxHeight:  {"max_height", "max height", "max h", "max depth"},
	colTargetArea: {"target_area", "target area", "area", "min area", "size"},
	colMinAspect:  {"min_aspect", "min aspect", "min ratio"},
	colMaxAspect:  {"max_aspect", "max aspect", "max ratio"},
	colLabel:      {"label", "description", "desc", "title"},
	colColor:      {"color", "colour", "fill"},
}

var columnNames = [numColumns]string{
	"id", "min width", "min height", "max width", "max height",
	"target area", "min aspect", "max aspect", "label", "color",
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}
		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}
		// Prefer delimiters with higher consistency and more columns
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}
	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping and false if no header was found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	var mapping ColumnMapping
	for i := range mapping {
		mapping[i] = -1
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			if mapping[role] != -1 {
				continue
			}
			for _, alias := range aliases {
				if normalized == alias {
					mapping[role] = i
					isHeader = true
					break
				}
			}
		}
	}

	if !isHeader {
		for i := range mapping {
			mapping[i] = i
		}
		return mapping, false
	}
	return mapping, true
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseRow extracts a room from a row. Required: min width and min height.
// Returns the room, any error message, and any warnings.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, roomCount int) (model.RoomSpec, string, []string) {
	id := getCell(row, mapping[colID])
	if id == "" {
		id = fmt.Sprintf("room-%d", roomCount+1)
	}
	room := model.NewRoom(id, 0, 0)
	if label := getCell(row, mapping[colLabel]); label != "" {
		room.Label = label
	}

	fields := []struct {
		col      int
		dst      *float64
		required bool
	}{
		{colMinWidth, &room.MinWidth, true},
		{colMinHeight, &room.MinHeight, true},
		{colMaxWidth, &room.MaxWidth, false},
		{colMaxHeight, &room.MaxHeight, false},
		{colTargetArea, &room.TargetArea, false},
		{colMinAspect, &room.MinAspect, false},
		{colMaxAspect, &room.MaxAspect, false},
	}
	for _, f := range fields {
		s := getCell(row, mapping[f.col])
		if s == "" {
			if f.required {
				return model.RoomSpec{}, fmt.Sprintf("%s: Missing %s value", rowLabel, columnNames[f.col]), nil
			}
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.RoomSpec{}, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, columnNames[f.col], s), nil
		}
		if v < 0 || (f.required && v == 0) {
			return model.RoomSpec{}, fmt.Sprintf("%s: %s must be positive", rowLabel, columnNames[f.col]), nil
		}
		*f.dst = v
	}

	var warnings []string
	if room.MaxWidth > 0 && room.MaxWidth < room.MinWidth {
		warnings = append(warnings, fmt.Sprintf("%s: max width %g below min width, ignoring", rowLabel, room.MaxWidth))
		room.MaxWidth = 0
	}
	if room.MaxHeight > 0 && room.MaxHeight < room.MinHeight {
		warnings = append(warnings, fmt.Sprintf("%s: max height %g below min height, ignoring", rowLabel, room.MaxHeight))
		room.MaxHeight = 0
	}
	if c := getCell(row, mapping[colColor]); c != "" {
		if hexColor.MatchString(c) {
			room.Color = c
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: Unknown color '%s', ignoring", rowLabel, c))
		}
	}
	return room, "", warnings
}

// ImportCSV imports rooms from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
func ImportCSV(path string) ImportResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open file: %v", err)}}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ImportResult{Errors: []string{"File is empty"}}
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	records, err := readCSV(bytes.NewReader(data), delimiter)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read CSV: %v", err)}}
	}
	return importFromRows(records, "Line", warnings)
}

// ImportCSVFromReader imports rooms from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	records, err := readCSV(reader, delimiter)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read CSV: %v", err)}}
	}
	return importFromRows(records, "Line", nil)
}

func readCSV(r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.Comment = '#'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// ImportExcel imports rooms from the first sheet of an Excel workbook.
func ImportExcel(path string) ImportResult {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{Errors: []string{"Excel file has no sheets"}}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read Excel data: %v", err)}}
	}
	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, warnings []string) ImportResult {
	result := ImportResult{Warnings: warnings}
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		for _, col := range []int{colMinWidth, colMinHeight} {
			if mapping[col] == -1 {
				missing = append(missing, columnNames[col])
			}
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 3 {
		// An unrecognised header still has a non-numeric width cell.
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][colMinWidth]), 64); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	seen := map[string]bool{}
	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		room, errMsg, rowWarnings := parseRow(row, mapping, rowLabel, len(result.Rooms))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		result.Warnings = append(result.Warnings, rowWarnings...)

		if seen[room.ID] {
			base := room.ID
			for n := 2; seen[room.ID]; n++ {
				room.ID = fmt.Sprintf("%s-%d", base, n)
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: Duplicate id '%s' renamed to '%s'", rowLabel, base, room.ID))
		}
		seen[room.ID] = true
		result.Rooms = append(result.Rooms, room)
	}
	return result
}

// Instance wraps imported rooms in an instance. The boundary comes from the
// import when it found one, else from fallback.
func (r ImportResult) Instance(name string, fallback model.Boundary) model.Instance {
	b := fallback
	if r.Boundary != nil {
		b = *r.Boundary
	}
	inst := model.NewInstance(name, b.Width, b.Height)
	inst.Rooms = append(inst.Rooms, r.Rooms...)
	return inst
}
