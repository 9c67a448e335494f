// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/ManuGH/streamconnect/internal/daemon"
	xglog "github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/probe"
	"github.com/ManuGH/streamconnect/internal/version"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
		withProbe  bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Scan the configured storage roots and print the listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			xglog.Configure(xglog.Config{Level: "warn", Service: "streamd", Version: version.Version})

			cfg, err := config.NewLoader(strings.TrimSpace(configPath), version.Version).Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			roots, err := daemon.BuildRoots(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			var prober probe.Prober = probe.Nop{}
			if withProbe {
				prober = probe.NewGuarded(probe.NewFFprobe(cfg.FFprobe.Bin, cfg.FFprobe.Timeout), 5, time.Minute)
			}
			cat := catalog.New(roots, catalog.Options{Prober: prober})
			entries, err := cat.Refresh(cmd.Context(), catalog.TriggerAdmin)
			if err != nil {
				return fmt.Errorf("scan catalog: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Roots   []catalog.RootState `json:"roots"`
					Entries []catalog.Entry     `json:"entries"`
				}{cat.Status(), entries})
			}
			return printCatalog(out, entries, cat.Status())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&withProbe, "probe", false, "probe durations with ffprobe")
	return cmd
}

func printCatalog(out io.Writer, entries []catalog.Entry, roots []catalog.RootState) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tROOT\tSIZE\tDURATION")
	for _, e := range entries {
		dur := "-"
		if e.DurationSeconds > 0 {
			dur = fmt.Sprintf("%.1fs", e.DurationSeconds)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.ID, e.Title, e.RootID, e.SizeBytes, dur)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, r := range roots {
		if r.Status == catalog.RootStatusFailed {
			fmt.Fprintf(out, "warning: root %s unavailable: %s\n", r.ID, r.LastError)
		}
	}
	_, err := fmt.Fprintf(out, "%d videos\n", len(entries))
	return err
}
