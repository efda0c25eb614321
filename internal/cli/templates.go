package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piwi3910/RoomPlan/internal/model"
	"github.com/piwi3910/RoomPlan/internal/project"
)

func (c *CLI) templatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List, instantiate and save instance templates",
	}
	cmd.PersistentFlags().StringVar(&c.templatePath, "store", c.templatePath, "user template store (JSON)")

	cmd.AddCommand(c.templatesListCommand())
	cmd.AddCommand(c.templatesNewCommand())
	cmd.AddCommand(c.templatesSaveCommand())
	cmd.AddCommand(c.templatesRemoveCommand())
	return cmd
}

func (c *CLI) templatesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in and user templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := project.LoadTemplates(c.templatePath)
			if err != nil {
				return err
			}
			catalog := project.Catalog(store)
			rows := make([][]string, 0, len(catalog))
			for _, t := range catalog {
				source := "built-in"
				if store.FindByID(t.ID) != nil {
					source = "user"
				}
				rows = append(rows, []string{
					t.Name,
					fmt.Sprint(len(t.Rooms)),
					fmt.Sprintf("%gx%g", t.Boundary.Width, t.Boundary.Height),
					source,
					t.Description,
				})
			}
			printTable(c.out, []string{"Name", "Rooms", "Boundary", "Source", "Description"}, rows)
			return nil
		},
	}
}

func (c *CLI) templatesNewCommand() *cobra.Command {
	var output, name string
	cmd := &cobra.Command{
		Use:   "new <template>",
		Short: "Write a new instance file from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := project.LoadTemplates(c.templatePath)
			if err != nil {
				return err
			}
			t, ok := project.FindTemplate(store, args[0])
			if !ok {
				return fmt.Errorf("template %q not found", args[0])
			}
			inst := t.ToInstance(name)
			if output == "" {
				output = inst.Name + ".toml"
			}
			if err := project.SaveInstance(output, inst); err != nil {
				return err
			}
			printSuccess(c.out, "Created %s from %s", inst.Name, t.Name)
			printFile(c.out, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "instance file to write (default: <name>.toml)")
	cmd.Flags().StringVar(&name, "name", "", "instance name (default: template name)")
	return cmd
}

func (c *CLI) templatesSaveCommand() *cobra.Command {
	var name, description, objective string
	cmd := &cobra.Command{
		Use:   "save <instance>",
		Short: "Save an instance file as a user template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := project.LoadInstance(args[0])
			if err != nil {
				return err
			}
			if err := inst.Validate(); err != nil {
				return err
			}
			var kind model.ObjectiveKind
			if objective != "" {
				if kind, err = model.ParseObjective(objective); err != nil {
					return err
				}
			}
			if name == "" {
				name = inst.Name
			}

			store, err := project.LoadTemplates(c.templatePath)
			if err != nil {
				return err
			}
			if existing := store.FindByName(name); existing != nil {
				store.Remove(existing.ID)
			}
			store.Add(model.NewInstanceTemplate(name, description, inst, kind))
			if err := project.SaveTemplates(c.templatePath, store); err != nil {
				return err
			}
			printSuccess(c.out, "Saved template %s", name)
			printFile(c.out, c.templatePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "template name (default: instance name)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "template description")
	cmd.Flags().StringVarP(&objective, "objective", "o", "", "suggested objective")
	return cmd
}

func (c *CLI) templatesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name|id>",
		Short: "Remove a user template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := project.LoadTemplates(c.templatePath)
			if err != nil {
				return err
			}
			t := store.FindByName(args[0])
			if t == nil {
				t = store.FindByID(args[0])
			}
			if t == nil {
				return fmt.Errorf("user template %q not found", args[0])
			}
			name := t.Name
			store.Remove(t.ID)
			if err := project.SaveTemplates(c.templatePath, store); err != nil {
				return err
			}
			printSuccess(c.out, "Removed template %s", name)
			return nil
		},
	}
}
