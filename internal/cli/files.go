package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piwi3910/RoomPlan/internal/dsl"
	"github.com/piwi3910/RoomPlan/internal/export"
	"github.com/piwi3910/RoomPlan/internal/importer"
	"github.com/piwi3910/RoomPlan/internal/model"
	"github.com/piwi3910/RoomPlan/internal/project"
)

func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <instance>",
		Short: "Check an instance file and report its area budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := project.LoadInstance(args[0])
			if err != nil {
				return err
			}
			if err := inst.Validate(); err != nil {
				return err
			}

			b := model.CalculateAreaBudget(inst)
			printSuccess(c.out, "%s is valid: %d rooms, %d relations", inst.Name, len(inst.Rooms), len(inst.Relations))
			printKeyValue(c.out, "Boundary", fmt.Sprintf("%gx%g (%.4g)", inst.Boundary.Width, inst.Boundary.Height, b.BoundaryArea))
			printKeyValue(c.out, "Minimum room area", fmt.Sprintf("%.4g (%.1f%%)", b.MinRoomArea, b.MinUtilization))
			printKeyValue(c.out, "Spacing allowance", num(b.SpacingAllowance))
			printKeyValue(c.out, "Slack", num(b.Slack))
			if !b.Fits {
				printWarning(c.out, "room minimums exceed the boundary, the instance is infeasible")
			} else if b.Slack < 0 {
				printWarning(c.out, "little room left once spacing is counted, the instance may be infeasible")
			}
			return nil
		},
	}
}

func (c *CLI) parseCommand() *cobra.Command {
	var instancePath string
	cmd := &cobra.Command{
		Use:   "parse <sentence>...",
		Short: "Parse constraint sentences and print their normalized form",
		Long: `Parse reads constraint sentences such as "room A is left of room B" and
prints each one normalized. With --instance the sentences are also applied to
an instance file and checked against it.`,
		Example: `  roomplan parse "room kitchen is left of room living" "room bath has width of 2"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := dsl.ParseAll(strings.Join(args, "\n"))
			if err != nil {
				return err
			}
			for _, r := range rules {
				if r.Relation != nil {
					printInfo(c.out, "relation  %s", r.Relation.String())
				} else {
					printInfo(c.out, "edit      %s", r.Edit.String())
				}
			}
			if instancePath == "" {
				return nil
			}

			inst, err := project.LoadInstance(instancePath)
			if err != nil {
				return err
			}
			applied, err := dsl.Apply(inst, args...)
			if err != nil {
				return err
			}
			if err := applied.Validate(); err != nil {
				return err
			}
			printSuccess(c.out, "%d rules apply to %s", len(rules), inst.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&instancePath, "instance", "i", "", "check the sentences against this instance")
	return cmd
}

func (c *CLI) importCommand() *cobra.Command {
	var (
		output   string
		name     string
		boundary string
		layers   bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Build an instance from a CSV, XLSX or DXF room list",
		Long: `Import reads rooms from a CSV or XLSX table (columns id, min width, min height,
max width, max height, target area, min aspect, max aspect, label, color) or
from the closed outlines of a DXF drawing, and writes an instance file.`,
		Example: `  roomplan import rooms.csv --boundary 12x9 -o flat.toml
  roomplan import plan.dxf --dxf-boundary -o plan.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			var fallback model.Boundary
			if boundary != "" {
				b, err := parseBoundary(boundary)
				if err != nil {
					return err
				}
				fallback = b
			}

			var res importer.ImportResult
			switch strings.ToLower(filepath.Ext(src)) {
			case ".csv", ".tsv", ".txt":
				res = importer.ImportCSV(src)
			case ".xlsx", ".xlsm":
				res = importer.ImportExcel(src)
			case ".dxf":
				res = importer.ImportDXF(src, importer.DXFOptions{BoundaryFromLargest: layers})
			default:
				return fmt.Errorf("unsupported import format %q", filepath.Ext(src))
			}
			for _, w := range res.Warnings {
				printWarning(c.out, "%s", w)
			}
			if len(res.Errors) > 0 {
				for _, e := range res.Errors {
					printError(c.out, "%s", e)
				}
				return fmt.Errorf("import of %s failed with %d errors", src, len(res.Errors))
			}

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
			}
			inst := res.Instance(name, fallback)
			if err := inst.Validate(); err != nil {
				return fmt.Errorf("imported instance is not valid (set --boundary?): %w", err)
			}
			if output == "" {
				output = name + ".toml"
			}
			if err := project.SaveInstance(output, inst); err != nil {
				return err
			}
			printSuccess(c.out, "Imported %d rooms", len(inst.Rooms))
			printFile(c.out, output)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "instance file to write (.toml or .json)")
	f.StringVar(&name, "name", "", "instance name (default: file name)")
	f.StringVarP(&boundary, "boundary", "b", "", "boundary as WIDTHxHEIGHT when the source has none")
	f.BoolVar(&layers, "dxf-boundary", false, "use the largest DXF outline as the boundary")
	return cmd
}

// parseBoundary reads "12x9" or "12,9".
func parseBoundary(s string) (model.Boundary, error) {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == 'x' || r == ',' })
	if len(parts) != 2 {
		return model.Boundary{}, fmt.Errorf("invalid boundary %q, want WIDTHxHEIGHT", s)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Boundary{}, fmt.Errorf("invalid boundary width %q", parts[0])
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Boundary{}, fmt.Errorf("invalid boundary height %q", parts[1])
	}
	if w <= 0 || h <= 0 {
		return model.Boundary{}, fmt.Errorf("boundary %q must be positive", s)
	}
	return model.Boundary{Width: w, Height: h}, nil
}

func (c *CLI) exportCommand() *cobra.Command {
	var format, font string
	cmd := &cobra.Command{
		Use:   "export <record.json> <output>",
		Short: "Export an archived solve as PDF, QR labels, DXF, XLSX or SVG",
		Long: `Export renders a solve record written by "roomplan solve --archive". The
format follows the output extension unless --format is given
(pdf, labels, dxf, xlsx, svg).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := project.LoadSolveRecord(args[0])
			if err != nil {
				return err
			}
			if err := exportLayout(args[1], format, rec.Instance, rec.Result, font); err != nil {
				return err
			}
			printSuccess(c.out, "Exported %s", rec.Instance.Name)
			printFile(c.out, args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (default: from extension)")
	cmd.Flags().StringVar(&font, "font", "", "TTF/OTF font for SVG labels")
	return cmd
}

// formatOf maps an output path onto an export format.
func formatOf(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".labels.pdf") {
		return "labels"
	}
	return strings.TrimPrefix(filepath.Ext(lower), ".")
}

func exportLayout(path, format string, inst model.Instance, res model.LayoutResult, font string) error {
	if format == "" {
		format = formatOf(path)
	}
	switch format {
	case "pdf":
		return export.ExportPDF(path, inst, res)
	case "labels":
		return export.ExportLabels(path, inst, res)
	case "dxf":
		return export.ExportDXF(path, inst, res)
	case "xlsx":
		return export.ExportXLSX(path, inst, res)
	case "svg":
		return export.ExportSVG(path, inst, res, export.SVGOptions{FontPath: font})
	}
	return fmt.Errorf("unknown export format %q for %s", format, path)
}
