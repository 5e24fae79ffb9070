package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// templateFile формат файла импорта шаблонов
//
//	templates:
//	  - hotel: Seaside
//	    destination: Airport
//	    departure: "06:30"
//	    max_capacity: 12
type templateFile struct {
	Templates []templateEntry `yaml:"templates"`
}

type templateEntry struct {
	Hotel       string `yaml:"hotel"`
	Destination string `yaml:"destination"`
	Departure   string `yaml:"departure"`
	MaxCapacity int    `yaml:"max_capacity"`
}

func parseTemplates(r io.Reader) ([]*model.ScheduleTemplate, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file templateFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("no templates in file")
	}

	templates := make([]*model.ScheduleTemplate, 0, len(file.Templates))
	for i, e := range file.Templates {
		var hour, minute int
		if _, err := fmt.Sscanf(e.Departure, "%d:%d", &hour, &minute); err != nil {
			return nil, fmt.Errorf("template #%d: departure must be HH:MM, got %q", i+1, e.Departure)
		}

		t := &model.ScheduleTemplate{
			Hotel:           e.Hotel,
			Destination:     e.Destination,
			DepartureHour:   hour,
			DepartureMinute: minute,
			MaxCapacity:     e.MaxCapacity,
			IsActive:        true,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("template #%d: %w", i+1, err)
		}
		templates = append(templates, t)
	}

	return templates, nil
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage schedule templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Create schedule templates from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			templates, err := parseTemplates(f)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer shutdown(a)

			for _, t := range templates {
				if err := a.Schedules.CreateTemplate(ctx, t); err != nil {
					return fmt.Errorf("create template %s %s: %w", t.Hotel, t.DepartureLabel(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created template %d: %s -> %s at %s\n",
					t.ID, t.Hotel, t.Destination, t.DepartureLabel())
			}
			return nil
		},
	})

	return cmd
}
