package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	DefaultLimit      = 100
	DefaultSerpBudget = 50
)

// Options are the per-run switches given on the command line.
type Options struct {
	DryRun     bool
	Category   string
	Limit      int
	SkipSerp   bool
	SerpBudget int
	Update     bool
	Verbose    bool
}

// DefaultOptions returns the options of a bare invocation.
func DefaultOptions() Options {
	return Options{Limit: DefaultLimit, SerpBudget: DefaultSerpBudget}
}

// valueFlags take an argument; every other known flag is a switch.
var valueFlags = map[string]bool{
	"category":    true,
	"limit":       true,
	"serp-budget": true,
}

var switchFlags = map[string]bool{
	"dry-run":         true,
	"skip-serp":       true,
	"skip-enrichment": true,
	"update":          true,
	"verbose":         true,
}

// ParseArgs parses the command line (without the program name). Unknown
// flags and positional arguments are ignored. An integer flag with a
// non-numeric value keeps its default; each such case yields a warning.
func ParseArgs(args []string) (Options, []string) {
	opts := DefaultOptions()
	var warnings []string

	fs := flag.NewFlagSet("collector", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&opts.DryRun, "dry-run", false, "collect and preview without writing to the store")
	fs.StringVar(&opts.Category, "category", "", "restrict collection to one upstream category label")
	fs.BoolVar(&opts.SkipSerp, "skip-serp", false, "skip places enrichment")
	fs.BoolVar(&opts.SkipSerp, "skip-enrichment", false, "alias of --skip-serp")
	fs.BoolVar(&opts.Update, "update", false, "merge into matching stored records instead of skipping them")
	fs.BoolVar(&opts.Verbose, "verbose", false, "log per-record decisions")
	fs.Func("limit", "maximum records per category", intFlag("limit", &opts.Limit, &warnings))
	fs.Func("serp-budget", "maximum places-search calls", intFlag("serp-budget", &opts.SerpBudget, &warnings))

	if err := fs.Parse(knownArgs(args)); err != nil {
		warnings = append(warnings, fmt.Sprintf("ignoring arguments: %v", err))
	}
	return opts, warnings
}

func intFlag(name string, dst *int, warnings *[]string) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("--%s: %q is not an integer, using %d", name, v, *dst))
			return nil
		}
		*dst = n
		return nil
	}
}

// knownArgs keeps the recognised flags (and the values of value flags) in
// order and drops everything else, so the flag package never stops early.
func knownArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			continue
		}
		name := strings.TrimLeft(arg, "-")
		name, _, hasValue := strings.Cut(name, "=")

		switch {
		case switchFlags[name]:
			out = append(out, arg)
		case valueFlags[name] && hasValue:
			out = append(out, arg)
		case valueFlags[name] && i+1 < len(args):
			out = append(out, arg, args[i+1])
			i++
		}
	}
	return out
}
