package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"datamap/internal/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the configured map in the terminal",
	RunE:  runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, _ []string) error {
	m, err := cfg.Build(cmd.Context())
	if err != nil {
		return err
	}
	model := tui.New(m,
		tui.WithLabelOptions(cfg.LabelOptions()),
		tui.WithLegendOptions(cfg.LegendOptions()),
	)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return eris.Wrap(err, "terminal view")
	}
	return nil
}
