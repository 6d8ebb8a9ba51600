package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"ndi_desktop/internal/catalog"
	"ndi_desktop/internal/content"
)

type checkReport struct {
	Valid        bool     `json:"valid"`
	Errors       []string `json:"errors,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Unreferenced []string `json:"unreferenced,omitempty"`
}

func newCheckCmd(flags *globalFlags) *cli.Command {
	var format string
	return &cli.Command{
		Name:        "check",
		Usage:       "Validate the quest catalog and its content documents",
		Description: "Checks catalog references, cycles and blocking rules, then confirms every referenced content document exists and decodes.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &format,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			report := runCheck(ctx, catalog.Default(), cfg.Content.Dir)
			out := c.Root().Writer
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}
			if !report.Valid {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func runCheck(ctx context.Context, cat *catalog.Catalog, dir string) checkReport {
	var report checkReport
	if err := cat.Validate(); err != nil {
		report.Errors = append(report.Errors, err.Error())
	}
	for _, id := range cat.Unreachable() {
		report.Warnings = append(report.Warnings, fmt.Sprintf("task %s can never be unlocked", id))
	}

	docs, err := content.NewDirStore(dir)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		report.Valid = false
		return report
	}
	referenced := make(map[string]bool)
	for _, key := range cat.ContentKeys() {
		referenced[key] = true
		if _, err := docs.Fetch(ctx, key); err != nil {
			report.Errors = append(report.Errors, err.Error())
		}
	}
	present, err := docs.List()
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
	}
	for _, key := range present {
		if !referenced[key] {
			report.Unreferenced = append(report.Unreferenced, key)
		}
	}
	report.Valid = len(report.Errors) == 0
	return report
}

func printReport(w io.Writer, report checkReport) {
	for _, msg := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
	for _, key := range report.Unreferenced {
		fmt.Fprintf(w, "unreferenced: %s\n", key)
	}
	for _, msg := range report.Errors {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
	if report.Valid {
		fmt.Fprintln(w, "catalog is valid")
		return
	}
	fmt.Fprintf(w, "%d error(s) found\n", len(report.Errors))
}
