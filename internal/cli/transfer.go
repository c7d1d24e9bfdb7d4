package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nikbrunner/minimark/internal/exporter"
	"github.com/nikbrunner/minimark/internal/importer"
)

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(_ []string) error {
	format, err := c.format()
	if err != nil {
		return err
	}

	f, err := os.Open(c.Args.File)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	return c.rt.withApp(func(ctx context.Context, a *App) error {
		res, err := a.Service.Import(ctx, f, format)
		if err != nil {
			return err
		}
		if c.rt.globals.JSON {
			return c.rt.printJSON(map[string]int{"added": res.Added, "skipped": res.Skipped})
		}
		c.rt.printf("Imported %d item(s)", res.Added)
		if res.Skipped > 0 {
			c.rt.printf(" (%d skipped)", res.Skipped)
		}
		c.rt.printf("\n")
		return nil
	})
}

func (c *ImportCommand) format() (importer.Format, error) {
	if c.Format == "" {
		return importer.DetectFormat(c.Args.File)
	}
	switch f := importer.Format(strings.ToLower(c.Format)); f {
	case importer.FormatJSON, importer.FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown import format %q", c.Format)
}

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(_ []string) error {
	format, err := exporter.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	return c.rt.withApp(func(_ context.Context, a *App) (err error) {
		if c.Args.Path == "-" {
			return a.Service.Export(c.rt.out, format)
		}

		path := c.Args.Path
		if path == "" {
			if path, err = exporter.DefaultExportPath(format); err != nil {
				return err
			}
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()

		if err := a.Service.Export(f, format); err != nil {
			return err
		}
		c.rt.printf("Exported %d item(s) to %s\n", len(a.Service.Items()), path)
		return nil
	})
}
