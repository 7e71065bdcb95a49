package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nikitaxru/sheetfill"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <template.xlsx>",
		Short: "Показать плейсхолдеры шаблона",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uses, err := sheetfill.InspectFile(args[0])
			if err != nil {
				return err
			}
			return renderUses(cmd.OutOrStdout(), uses)
		},
	}
}

// renderUses печатает таблицу плейсхолдеров; неподдерживаемые помечаются ошибкой.
func renderUses(w io.Writer, uses []sheetfill.PlaceholderUse) error {
	if len(uses) == 0 {
		_, _ = fmt.Fprintln(w, "(плейсхолдеров нет)")
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Лист", "Ячейка", "Плейсхолдер", "Статус"})
	invalid := 0
	for _, u := range uses {
		status := "ok"
		if u.Err != nil {
			status = u.Err.Error()
			invalid++
		}
		t.AppendRow(table.Row{u.Sheet, u.Cell, "{{" + u.Placeholder.Raw + "}}", status})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d плейсхолдеров, с ошибками: %d)\n", len(uses), invalid)
	return nil
}
