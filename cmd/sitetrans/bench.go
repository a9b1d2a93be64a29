package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/ZaguanLabs/sitetrans/internal/bench"
)

func runBench(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(stderr)

	url := fs.String("url", "http://127.0.0.1:8000/translate", "Translate endpoint URL")
	lang := fs.String("lang", "hi", "Target language code")
	site := fs.String("site", "benchmark.local", "Site id to use")
	text := fs.String("text", bench.DefaultText, "Text to translate")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall timeout")

	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runner := bench.New(*url)
	defer runner.Close()

	fmt.Fprintf(stdout, "Benchmarking %s (%s, site %s)\n\n", *url, *lang, *site)
	samples, err := runner.Run(ctx, bench.Request{
		Texts:      []string{*text},
		TargetLang: *lang,
		SiteID:     *site,
	})
	if len(samples) > 0 {
		bench.Report(stdout, samples)
	}
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}
	return nil
}
