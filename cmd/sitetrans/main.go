// Command sitetrans serves and runs cache-aware website translation.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZaguanLabs/sitetrans"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = sitetrans.Version
	commit    = sitetrans.GitCommit
	buildDate = sitetrans.BuildDate
)

// stdin is read by commands that take input when no file or text is given.
var stdin io.Reader = os.Stdin

// errUsage reports a command line that could not be parsed. The message has
// already been written to stderr.
var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errUsage
	}

	cmd, rest := strings.ToLower(strings.TrimSpace(args[0])), args[1:]
	switch cmd {
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	case "version", "--version", "-version":
		printVersion(stdout)
		return nil
	case "serve":
		return runServe(rest, stdout, stderr)
	case "translate":
		return runTranslate(rest, stdout, stderr)
	case "html":
		return runHTML(rest, stdout, stderr)
	case "bench":
		return runBench(rest, stdout, stderr)
	case "export":
		return runExport(rest, stdout, stderr)
	case "import":
		return runImport(rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return errUsage
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", sitetrans.Name, version)
	if commit != "unknown" && commit != "" {
		fmt.Fprintf(w, "  commit:  %s\n", commit)
	}
	if buildDate != "unknown" && buildDate != "" {
		fmt.Fprintf(w, "  built:   %s\n", buildDate)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "%s - %s\n", sitetrans.Name, sitetrans.Description)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sitetrans <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Start the HTTP translation server")
	fmt.Fprintln(w, "  translate  Translate texts given as arguments or stdin lines")
	fmt.Fprintln(w, "  html       Translate the visible text of an HTML document")
	fmt.Fprintln(w, "  bench      Time a cold and a cached request against a running server")
	fmt.Fprintln(w, "  export     Write a site's cache document as portable JSON")
	fmt.Fprintln(w, "  import     Merge an exported cache document into a site")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Use \"sitetrans <command> -h\" for command-specific flags.")
}

// parseFlags parses args, treating -h as success.
func parseFlags(fs *flag.FlagSet, args []string) (help bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, errUsage
	}
	return false, nil
}
