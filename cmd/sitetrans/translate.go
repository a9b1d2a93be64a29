package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaguanLabs/sitetrans"
	"github.com/ZaguanLabs/sitetrans/internal/cli"
)

// translateOutput is the --json form of the translate command.
type translateOutput struct {
	SiteID       string   `json:"site_id"`
	TargetLang   string   `json:"target_lang"`
	Translations []string `json:"translations"`
	CacheHits    int      `json:"cache_hits"`
	Misses       int      `json:"misses"`
	ModelUsed    bool     `json:"model_used"`
	ElapsedMs    float64  `json:"elapsed_ms"`
}

func runTranslate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	lang := fs.String("lang", "", "Target language code (e.g., hi, bn)")
	site := fs.String("site", "", "Site id whose cache is used (e.g., example.com)")
	jsonOutput := fs.Bool("json", false, "Output result as JSON")

	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if strings.TrimSpace(*lang) == "" {
		fmt.Fprintln(stderr, "--lang is required")
		return errUsage
	}
	if strings.TrimSpace(*site) == "" {
		fmt.Fprintln(stderr, "--site is required")
		return errUsage
	}

	texts := fs.Args()
	if len(texts) == 0 {
		lines, err := readLines(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		texts = lines
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

	coord, err := e.newCoordinator(store)
	if err != nil {
		return err
	}

	res, err := coord.Translate(context.Background(), sitetrans.TranslateRequest{
		Texts:      texts,
		TargetLang: *lang,
		SiteID:     *site,
	})
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	if *jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(translateOutput{
			SiteID:       *site,
			TargetLang:   res.Metadata.TargetLang,
			Translations: res.Translations,
			CacheHits:    res.Metadata.CacheHits,
			Misses:       res.Metadata.Misses,
			ModelUsed:    res.Metadata.ModelUsed,
			ElapsedMs:    float64(res.Metadata.Elapsed.Microseconds()) / 1000,
		})
	}

	for _, t := range res.Translations {
		fmt.Fprintln(stdout, t)
	}
	return nil
}

func runHTML(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("html", flag.ContinueOnError)
	fs.SetOutput(stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	lang := fs.String("lang", "", "Target language code (e.g., hi, bn)")
	site := fs.String("site", "", "Site id whose cache is used (e.g., example.com)")
	output := fs.String("output", "", "Output file (default: stdout)")
	outputShort := fs.String("o", "", "Output file (short for --output)")
	quiet := fs.Bool("quiet", false, "Suppress progress output")

	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	// Handle -o alias for --output
	if *outputShort != "" && *output == "" {
		*output = *outputShort
	}
	if strings.TrimSpace(*lang) == "" {
		fmt.Fprintln(stderr, "--lang is required")
		return errUsage
	}
	if strings.TrimSpace(*site) == "" {
		fmt.Fprintln(stderr, "--site is required")
		return errUsage
	}

	var input []byte
	inputName := "stdin"
	if fs.NArg() == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		input = data
	} else {
		inputPath := fs.Arg(0)
		data, err := os.ReadFile(inputPath) // #nosec G304 - CLI tool reads user-specified files
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		input = data
		inputName = filepath.Base(inputPath)
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

	coord, err := e.newCoordinator(store)
	if err != nil {
		return err
	}

	if !*quiet {
		fmt.Fprintf(stderr, "Translating %s to %s...\n", inputName, *lang)
	}

	start := time.Now()
	res, err := coord.TranslateDocument(context.Background(), string(input), "html", *lang, *site)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	elapsed := time.Since(start)

	var out io.Writer = stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	fmt.Fprint(out, res.Content)

	if !*quiet {
		fmt.Fprintf(stderr, "\nDone in %v\n", elapsed.Round(time.Millisecond))
		fmt.Fprintf(stderr, "  Texts found:  %d\n", res.Texts)
		fmt.Fprintf(stderr, "  From cache:   %d\n", res.Metadata.CacheHits)
		fmt.Fprintf(stderr, "  Model used:   %t\n", res.Metadata.ModelUsed)
	}
	return nil
}

// readLines returns the non-empty lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := scanner.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
