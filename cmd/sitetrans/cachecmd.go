package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ZaguanLabs/sitetrans"
	"github.com/ZaguanLabs/sitetrans/cache"
	"github.com/ZaguanLabs/sitetrans/internal/cli"
)

func runExport(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	site := fs.String("site", "", "Site id to export")
	output := fs.String("output", "", "Output file (default: stdout)")
	outputShort := fs.String("o", "", "Output file (short for --output)")

	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if *outputShort != "" && *output == "" {
		*output = *outputShort
	}
	if strings.TrimSpace(*site) == "" {
		fmt.Fprintln(stderr, "--site is required")
		return errUsage
	}

	e, err := loadEnv(envLoader, stderr)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(e.cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	exporter := cache.NewExporter(store)
	metadata := map[string]string{"exported_by": sitetrans.UserAgent()}
	ctx := context.Background()

	if *output != "" {
		if err := exporter.ExportToFile(ctx, *output, *site, metadata); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Exported %s to %s\n", *site, *output)
		return nil
	}
	return exporter.Export(ctx, stdout, *site, metadata)
}

func runImport(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	site := fs.String("site", "", "Site id to import into (default: the exported site)")

	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "import takes at most one file")
		return errUsage
	}

	e, err := loadEnv(envLoader, stderr)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(e.cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	importer := cache.NewImporter(store)
	ctx := context.Background()

	var result *cache.ImportResult
	if fs.NArg() == 1 {
		result, err = importer.ImportFromFile(ctx, fs.Arg(0), strings.TrimSpace(*site))
	} else {
		result, err = importer.Import(ctx, stdin, strings.TrimSpace(*site))
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(stdout, "Imported into %s\n", result.SiteID)
	fmt.Fprintf(stdout, "  New texts:     %d\n", result.Imported)
	fmt.Fprintf(stdout, "  Translations:  %d\n", result.Languages)
	if result.Skipped > 0 {
		fmt.Fprintf(stdout, "  Skipped:       %d\n", result.Skipped)
	}
	if result.ReplacedCorrupt {
		fmt.Fprintln(stdout, "  Replaced an unreadable document")
	}
	return nil
}
