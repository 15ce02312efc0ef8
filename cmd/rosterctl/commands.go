package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nehallsharma/roaster-management/internal/adapters/dataset"
	"github.com/nehallsharma/roaster-management/internal/application/services"
	"github.com/nehallsharma/roaster-management/internal/domain/availability"
	"github.com/nehallsharma/roaster-management/internal/domain/entities"
	"github.com/nehallsharma/roaster-management/pkg/config"
)

// newRootCmd builds the CLI. Results are written to out as indented JSON.
func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Inspect provider availability from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Logs go to stderr so stdout stays valid JSON
			raw, _ := cmd.Flags().GetString("log-level")
			level, err := zerolog.ParseLevel(raw)
			if err != nil {
				level = zerolog.WarnLevel
			}
			zerolog.SetGlobalLevel(level)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen})
		},
	}
	rootCmd.PersistentFlags().String("dataset", "", "Path to a provider JSON file (default: embedded sample)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level written to stderr")

	rootCmd.AddCommand(labelsCmd(out))
	rootCmd.AddCommand(listCmd(out))
	rootCmd.AddCommand(calendarCmd(out))
	rootCmd.AddCommand(suggestCmd(out))
	rootCmd.AddCommand(facetsCmd(out))
	return rootCmd
}

func labelsCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Print the time labels of a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			granularity, _ := cmd.Flags().GetInt("granularity")
			labels, err := availability.GenerateLabels(granularity)
			if err != nil {
				return err
			}
			return writeJSON(out, labels)
		},
	}
	cmd.Flags().Int("granularity", 15, "Minutes between labels (must divide 60)")
	return cmd
}

func listCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Classify every matching provider's slots for one date",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			filter, err := filterFlags(cmd)
			if err != nil {
				return err
			}
			date, _ := cmd.Flags().GetString("date")
			term, _ := cmd.Flags().GetString("q")
			granularity, _ := cmd.Flags().GetInt("granularity")

			view, err := svc.ListView(cmd.Context(), services.ListViewRequest{
				Date:        date,
				Term:        term,
				Filter:      filter,
				Granularity: granularity,
			})
			if err != nil {
				return err
			}
			return writeJSON(out, view)
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().Int("granularity", 0, "Minutes between slots (default from SCHEDULE_LIST_GRANULARITY)")
	return cmd
}

func calendarCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the hourly week index around a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			filter, err := filterFlags(cmd)
			if err != nil {
				return err
			}
			date, _ := cmd.Flags().GetString("date")
			term, _ := cmd.Flags().GetString("q")
			providerID, _ := cmd.Flags().GetString("provider")
			offset, _ := cmd.Flags().GetInt("offset")

			if offset != 0 {
				if date, err = svc.ShiftWeek(date, offset); err != nil {
					return err
				}
			}
			view, err := svc.CalendarView(cmd.Context(), services.CalendarViewRequest{
				Anchor:     date,
				Term:       term,
				Filter:     filter,
				ProviderID: providerID,
			})
			if err != nil {
				return err
			}
			return writeJSON(out, view)
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().String("provider", "", "Restrict the calendar to one provider id")
	cmd.Flags().Int("offset", 0, "Move the anchor by whole weeks")
	return cmd
}

func suggestCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <term>",
		Short: "Suggest providers whose name contains term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			exclude, _ := cmd.Flags().GetStringSlice("exclude")
			suggestions, err := svc.Suggest(cmd.Context(), args[0], exclude)
			if err != nil {
				return err
			}
			return writeJSON(out, suggestions)
		},
	}
	cmd.Flags().StringSlice("exclude", nil, "Provider ids already selected")
	return cmd
}

func facetsCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "facets",
		Short: "Print the distinct services, types and centres",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			facets, err := svc.Facets(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(out, facets)
		},
	}
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", availability.FormatDate(time.Now()), "Date as YYYY-MM-DD")
	cmd.Flags().String("q", "", "Case-insensitive name search")
	cmd.Flags().String("service", "", "Exact service name")
	cmd.Flags().String("type", "", "In-house or External")
	cmd.Flags().String("centre", "", "Exact centre name")
}

func filterFlags(cmd *cobra.Command) (entities.ProviderFilter, error) {
	service, _ := cmd.Flags().GetString("service")
	rawType, _ := cmd.Flags().GetString("type")
	centre, _ := cmd.Flags().GetString("centre")

	providerType, ok := entities.NormalizeProviderType(rawType)
	if !ok {
		return entities.ProviderFilter{}, fmt.Errorf("unknown provider type %q, expected %q or %q",
			rawType, entities.ProviderTypeInHouse, entities.ProviderTypeExternal)
	}
	return entities.ProviderFilter{Service: service, Type: providerType, Centre: centre}, nil
}

// newService wires the dataset and schedule defaults from the environment.
// The CLI never talks to Redis.
func newService(cmd *cobra.Command) (*services.ScheduleService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path := cfg.Dataset.Path
	if flag, _ := cmd.Flags().GetString("dataset"); strings.TrimSpace(flag) != "" {
		path = flag
	}

	repo, err := dataset.NewJSONAdapter(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	return services.NewScheduleService(repo, nil, nil, services.ScheduleOptions{
		ListGranularity:     cfg.Schedule.ListGranularity,
		CalendarGranularity: cfg.Schedule.CalendarGranularity,
		SuggestionLimit:     cfg.Schedule.SuggestionLimit,
	}), nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
