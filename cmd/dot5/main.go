package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"html"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"dot5_panel/internal/app"
	"dot5_panel/internal/engine"
	"dot5_panel/internal/panel"
	"dot5_panel/internal/panel/render"
	"dot5_panel/internal/shared/config"
	"dot5_panel/internal/shared/logger"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	inPath := flag.String("in", "-", "File with one candidate per line, '-' for stdin")
	timeout := flag.String("timeout", "", "Per-probe timeout in seconds (default 6)")
	workers := flag.String("workers", "", "Engine worker count (default 20)")
	ports := flag.String("ports", "", "Comma separated ports to try for bare IPs (defaults to the config)")
	exportDir := flag.String("export", "", "Directory to save the CSV export into")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "dot5.ini")
	cfg := config.Default()
	if err := config.LoadIni(cfg, iniPath); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	text, err := readInput(*inPath)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to read candidates from '%s'", *inPath)
	}

	form := panel.CheckForm{
		IPs:        text,
		Timeout:    *timeout,
		MaxWorkers: *workers,
		TryPorts:   *ports,
	}
	if form.TryPorts == "" {
		form.TryPorts = cfg.PanelConf.DefaultTryPorts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := engine.NewClient(cfg.EngineConf.BaseURL, app.EngineTimeout(cfg))
	controller := panel.NewController(client, app.ControllerOptions(cfg))

	view, err := controller.Check(ctx, form)
	switch {
	case errors.Is(err, panel.ErrEmptyInput):
		fmt.Fprintln(os.Stderr, panel.NoticeEmptyInput)
		os.Exit(1)
	case err != nil:
		fmt.Fprintln(os.Stderr, controller.Snapshot().Status)
		os.Exit(1)
	}

	printView(os.Stdout, view)

	if *exportDir == "" {
		return
	}
	art, err := controller.Export(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, panel.NoticeExportFailed)
		os.Exit(1)
	}
	if art == nil {
		return
	}
	path, err := art.Save(*exportDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to save CSV export")
	}
	fmt.Fprintf(os.Stdout, "CSV saved to %s\n", path)
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// printView writes the table for a terminal. Cells are unescaped again
// since no HTML is involved here.
func printView(w io.Writer, view *render.View) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tSTATUS\tHTTP\tPROXY\tELAPSED\tPORTS\tSOURCE\tFAKE SOURCE\tERROR")
	for _, row := range view.Rows {
		fake := render.Placeholder
		if row.FakeSource != nil {
			fake = row.FakeSource.Label + " (" + row.FakeSource.URL + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			html.UnescapeString(row.Input),
			html.UnescapeString(row.StatusText),
			row.HTTPStatus,
			html.UnescapeString(row.Proxy),
			row.Elapsed,
			row.PortsTried,
			html.UnescapeString(row.Source),
			html.UnescapeString(fake),
			html.UnescapeString(row.Error),
		)
	}
	tw.Flush()
	fmt.Fprintln(w, view.Summary)
}
