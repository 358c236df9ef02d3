package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"crontrol/internal/app"
	"crontrol/internal/authz"
	"crontrol/internal/listtable"
	"crontrol/pkg/tgui"
)

var listPage int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print one page of scheduled events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cfgPath, app.WithSurfaces(false))
		if err != nil {
			return err
		}
		defer func() { _ = a.Stop(context.Background(), app.StopAppStop) }()

		// The local operator holds every capability.
		tbl := a.Table(authz.NewSet(authz.CapManageOptions, authz.CapEditFiles))
		prep, err := tbl.Prepare(cmd.Context(), listPage)
		if err != nil {
			return err
		}
		printPage(cmd.OutOrStdout(), tbl, prep)
		return nil
	},
}

func init() {
	listCmd.Flags().IntVarP(&listPage, "page", "p", 1, "page number (1-based)")
}

var listColumns = []string{listtable.ColHook, listtable.ColArgs, listtable.ColNext, listtable.ColRecurrence}

func printPage(w io.Writer, tbl *listtable.Table, prep listtable.Prepared) {
	if prep.Page.TotalItems == 0 {
		fmt.Fprintln(w, tbl.EmptyStateMessage())
		return
	}
	if len(prep.Rows) == 0 {
		fmt.Fprintf(w, "Page %d is empty (%d pages).\n", prep.Page.Number, prep.Page.TotalPages)
		return
	}
	fmt.Fprintf(w, "%-32s %-24s %-36s %s\n", "Hook Name", "Arguments", "Next Run", "Recurrence")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, row := range prep.Rows {
		cells := make([]any, 0, len(listColumns))
		for _, key := range listColumns {
			cells = append(cells, flatten(row.Cells[key]))
		}
		fmt.Fprintf(w, "%-32s %-24s %-36s %s\n", cells...)
	}
	fmt.Fprintln(w, tgui.PageLabel(prep.Page.Number, prep.Page.Size, prep.Page.TotalItems))
}

// flatten renders a cell as one line of plain text.
func flatten(h tgui.H) string {
	return strings.Join(strings.Fields(tgui.Plain(h)), " ")
}
