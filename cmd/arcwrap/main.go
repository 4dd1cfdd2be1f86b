// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

// arcwrap detects, lists, reads and extracts archives of any supported
// format through one command line.
//
//	arcwrap detect FILE...
//	arcwrap list [--output text|yaml] FILE
//	arcwrap cat FILE ENTRY
//	arcwrap extract [--out DIR] [--include PATTERN] [--exclude PATTERN] FILE
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/arcwrap"
	"github.com/woozymasta/pathrules"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// usageError reports bad command line input.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// ExitCode returns the conventional exit status for usage errors.
func (e *usageError) ExitCode() int { return 2 }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	tempDir         string
	formats         []string
	verbose         bool
	ignoreExtension bool
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log format detection details to stderr")
	fs.BoolVar(&c.ignoreExtension, "ignore-extension", false, "do not use the file extension as a detection hint")
	fs.StringSliceVar(&c.formats, "formats", nil, "restrict detection to these formats (comma separated)")
	fs.StringVar(&c.tempDir, "temp-dir", "", "directory for temporary files (default: system temp dir)")
}

func (c *commonFlags) openOptions(stderr io.Writer) (arcwrap.OpenOptions, error) {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}

	opts := arcwrap.OpenOptions{
		Logger:          slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		TempDir:         c.tempDir,
		IgnoreExtension: c.ignoreExtension,
	}

	for _, raw := range c.formats {
		f, err := arcwrap.ParseFormat(raw)
		if err != nil {
			return arcwrap.OpenOptions{}, usagef("--formats: %v", err)
		}
		opts.Formats = append(opts.Formats, f)
	}

	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	err := dispatch(ctx, args, stdout, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

func dispatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printHelp(stderr)
		return usagef("missing command")
	}

	switch args[0] {
	case "detect":
		return runDetect(args[1:], stdout, stderr)
	case "list", "ls":
		return runList(args[1:], stdout, stderr)
	case "cat":
		return runCat(args[1:], stdout, stderr)
	case "extract", "x":
		return runExtract(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printHelp(stdout)
		return nil
	default:
		return usagef("unknown command %q", args[0])
	}
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usagef("%v", err)
	}
	return nil
}

func runDetect(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := pflag.NewFlagSet("detect", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return usagef("detect: expected at least one file")
	}

	opts, err := common.openOptions(stderr)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range fs.Args() {
		a, err := arcwrap.OpenWithOptions(path, opts)
		if err != nil {
			fmt.Fprintf(stdout, "%s\t-\t%v\n", path, err)
			failed++
			continue
		}

		fmt.Fprintf(stdout, "%s\t%s\n", path, a.Format())
		_ = a.Close()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files not recognized", failed, fs.NArg())
	}

	return nil
}

// listing is the structured output of the list command.
type listing struct {
	Path    string   `yaml:"path"`
	Format  string   `yaml:"format"`
	Entries []string `yaml:"entries"`
}

func runList(args []string, stdout, stderr io.Writer) error {
	var (
		common commonFlags
		output string
		rules  ruleFlags
	)
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	rules.register(fs)
	fs.StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return usagef("list: expected exactly one file")
	}

	opts, err := common.openOptions(stderr)
	if err != nil {
		return err
	}

	a, err := arcwrap.OpenWithOptions(fs.Arg(0), opts)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	names, err := arcwrap.FilterEntries(a.List(), rules.rules(), pathrules.MatcherOptions{})
	if err != nil {
		return err
	}

	for i := range names {
		names[i] = arcwrap.SanitizeDisplayPath(names[i])
	}

	switch output {
	case "text":
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(listing{Path: a.Path(), Format: a.Format().String(), Entries: names}); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return usagef("list: unknown output format %q", output)
	}
}

func runCat(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := pflag.NewFlagSet("cat", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if fs.NArg() != 2 {
		return usagef("cat: expected FILE and ENTRY")
	}

	opts, err := common.openOptions(stderr)
	if err != nil {
		return err
	}

	a, err := arcwrap.OpenWithOptions(fs.Arg(0), opts)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	c, err := a.OpenByName(fs.Arg(1))
	if err != nil {
		return err
	}

	if c == nil {
		return fmt.Errorf("%s: entry %q not found", fs.Arg(0), fs.Arg(1))
	}
	defer func() { _ = c.Close() }()

	for _, name := range c.Names() {
		rc := c[name]
		if rc == nil {
			return fmt.Errorf("%s: %q is a directory", fs.Arg(0), name)
		}

		if _, err := io.Copy(stdout, rc); err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
	}

	return nil
}

func runExtract(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		common   commonFlags
		rules    ruleFlags
		outDir   string
		fileMode string
		rawNames bool
		flatten  bool
		quiet    bool
	)
	fs := pflag.NewFlagSet("extract", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	rules.register(fs)
	fs.StringVarP(&outDir, "out", "C", ".", "destination directory")
	fs.StringVar(&fileMode, "file-mode", string(arcwrap.ExtractFileModeAuto), "existing file policy: auto, overwrite_smart, truncate, create_only")
	fs.BoolVar(&rawNames, "raw-names", false, "keep entry names as stored instead of sanitizing them")
	fs.BoolVar(&flatten, "flatten", false, "always extract directly into the destination directory")
	fs.BoolVarP(&quiet, "quiet", "q", false, "do not print extracted paths")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return usagef("extract: expected exactly one file")
	}

	opts, err := common.openOptions(stderr)
	if err != nil {
		return err
	}

	a, err := arcwrap.OpenWithOptions(fs.Arg(0), opts)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	extractOpts := arcwrap.ExtractOptions{
		FileMode: arcwrap.ExtractFileMode(fileMode),
		Filter:   rules.rules(),
		RawNames: rawNames,
		Flatten:  flatten,
	}
	if !quiet {
		extractOpts.OnEntryDone = func(_ string, _ int64, outputPath string) {
			fmt.Fprintln(stdout, outputPath)
		}
	}

	dir, err := a.ExtractTo(ctx, outDir, extractOpts)
	if err != nil {
		return err
	}

	opts.Logger.Debug("extracted", "path", a.Path(), "format", a.Format(), "dir", dir)
	return nil
}

// ruleFlags collects ordered include/exclude patterns.
type ruleFlags struct {
	ordered []pathrules.Rule
}

func (r *ruleFlags) register(fs *pflag.FlagSet) {
	fs.Var(&ruleValue{flags: r, include: true}, "include", "select entries matching pattern (repeatable)")
	fs.Var(&ruleValue{flags: r}, "exclude", "skip entries matching pattern (repeatable)")
}

func (r *ruleFlags) rules() []pathrules.Rule {
	return r.ordered
}

// ruleValue appends rules of one action while keeping command line order.
type ruleValue struct {
	flags   *ruleFlags
	values  []string
	include bool
}

func (v *ruleValue) String() string { return "[" + strings.Join(v.values, ",") + "]" }

func (v *ruleValue) Set(pattern string) error {
	rule := pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern}
	if v.include {
		rule.Action = pathrules.ActionInclude
	}

	v.values = append(v.values, pattern)
	v.flags.ordered = append(v.flags.ordered, rule)
	return nil
}

func (v *ruleValue) Type() string { return "pattern" }

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `arcwrap: detect, list, read and extract archives.

Usage:
  arcwrap detect FILE...
  arcwrap list [--output text|yaml] [--include P] [--exclude P] FILE
  arcwrap cat FILE ENTRY
  arcwrap extract [--out DIR] [--include P] [--exclude P] FILE

Formats: %s

Run "arcwrap COMMAND --help" for command flags.
`, formatList())
}

func formatList() string {
	formats := arcwrap.Formats()
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = f.String()
	}
	return strings.Join(out, ", ")
}
