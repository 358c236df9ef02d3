package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crontrol/internal/app"
	"crontrol/internal/event"
)

var (
	addHook     string
	addIn       time.Duration
	addAt       string
	addSchedule string
	addArgs     []string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Schedule an event",
	Long: `Schedule an event in the configured store.

Examples:
  crontrol add --hook my_task --in 1h --schedule hourly
  crontrol add --hook send_report --at 2024-06-01T08:00:00Z --arg to=ops --arg format=pdf
  crontrol add --hook ping --arg https://example.com`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		hook := strings.TrimSpace(addHook)
		if hook == "" {
			return fmt.Errorf("--hook is required")
		}
		args, err := parseArgs(addArgs)
		if err != nil {
			return err
		}
		at, err := runTime(time.Now(), addAt, addIn)
		if err != nil {
			return err
		}

		a, err := app.New(cfgPath, app.WithSurfaces(false))
		if err != nil {
			return err
		}
		defer func() { _ = a.Stop(context.Background(), app.StopAppStop) }()

		ev := event.Event{Hook: hook, Time: at.Unix(), Args: args}
		if name := strings.TrimSpace(addSchedule); name != "" {
			s, ok := a.Schedules().Get(name)
			if !ok {
				return fmt.Errorf("unknown schedule %q", name)
			}
			ev.Schedule = s.Name
			ev.Interval = int64(s.Interval / time.Second)
		}

		ev, err = a.Store().Add(cmd.Context(), ev)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Scheduled %s at %s (sig %s)\n", ev.Hook, ev.NextRun().Format(time.RFC3339), ev.Sig)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addHook, "hook", "", "hook name")
	addCmd.Flags().DurationVar(&addIn, "in", 0, "run after this delay (e.g. 90m)")
	addCmd.Flags().StringVar(&addAt, "at", "", "run at this RFC3339 time")
	addCmd.Flags().StringVar(&addSchedule, "schedule", "", "recurrence identifier; empty for a one-off event")
	addCmd.Flags().StringArrayVar(&addArgs, "arg", nil, "argument: key=value for named args, a bare value for positional args")
}

// parseArgs turns --arg flags into Args. Named and positional forms cannot be mixed.
func parseArgs(raw []string) (event.Args, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var named, positional []any
	for _, r := range raw {
		if k, v, ok := strings.Cut(r, "="); ok && strings.TrimSpace(k) != "" {
			named = append(named, strings.TrimSpace(k), v)
		} else {
			positional = append(positional, r)
		}
	}
	switch {
	case len(named) > 0 && len(positional) > 0:
		return nil, fmt.Errorf("--arg: cannot mix key=value and positional values")
	case len(named) > 0:
		return event.Named(named...), nil
	default:
		return event.Positional(positional...), nil
	}
}

// runTime picks the first run: --at wins over --in; neither means now.
func runTime(now time.Time, at string, in time.Duration) (time.Time, error) {
	if at = strings.TrimSpace(at); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --at value %q: %w", at, err)
		}
		return t, nil
	}
	if in < 0 {
		return time.Time{}, fmt.Errorf("--in must be >= 0")
	}
	return now.Add(in), nil
}
