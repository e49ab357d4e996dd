package main

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var renderCmd = &cobra.Command{
	Use:   "render [output]",
	Short: "Render the configured map to SVG or HTML",
	Long:  "Builds the configured map and writes it to output, or stdout when no output is given. The format follows the file extension unless --format is set.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringP("format", "f", "", "svg or html (default from the output extension, else svg)")
	renderCmd.Flags().Bool("settle", true, "drop elements still animating out before writing")
	rootCmd.AddCommand(renderCmd)
}

func renderFormat(flag, out string) (string, error) {
	format := strings.ToLower(flag)
	if format == "" {
		switch strings.ToLower(filepath.Ext(out)) {
		case ".html", ".htm":
			format = "html"
		default:
			format = "svg"
		}
	}
	if format != "svg" && format != "html" {
		return "", eris.Errorf("unknown format %q", flag)
	}
	return format, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	out := ""
	if len(args) > 0 {
		out = args[0]
	}
	flag, _ := cmd.Flags().GetString("format")
	format, err := renderFormat(flag, out)
	if err != nil {
		return err
	}
	settle, _ := cmd.Flags().GetBool("settle")

	m, err := cfg.Build(cmd.Context())
	if err != nil {
		return err
	}
	if settle {
		m.Settle()
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrap(err, "render: create output")
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	if format == "html" {
		err = m.HTML(bw)
	} else {
		err = m.SVG(bw)
	}
	if err != nil {
		return eris.Wrap(err, "render")
	}
	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "render: write")
	}
	zap.L().Info("map rendered",
		zap.String("format", format),
		zap.String("output", out),
		zap.Int("regions", len(m.Subunits())),
	)
	return nil
}
