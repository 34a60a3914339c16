package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jtang613/pdbview/internal/config"
	"github.com/jtang613/pdbview/internal/logging"
	"github.com/jtang613/pdbview/internal/output"
	"github.com/jtang613/pdbview/pkg/pdb"
	"github.com/jtang613/pdbview/pkg/pdb/codeview"
)

// app holds the command-line state of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	format     config.Format
	base       string
	color      string
	logLevel   string
	sections   []string
	typeIndex  string
	pretty     bool
	jobs       int

	// debug is set by --debug or the resolved configuration and controls
	// how errors are printed.
	debug bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, format: config.FormatPlain}
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdbview [flags] FILE...",
		Short: "Resolve the symbols and types of Microsoft PDB files",
		Long: `pdbview reads one or more PDB files and prints their build information,
modules, procedures, public symbols, globals and the resolved type graph.

Settings come from built-in defaults, an optional --config file (.yaml or
.toml), PDBVIEW_* environment variables and finally the flags below.`,
		Example: `  pdbview app.pdb
  pdbview -f json --pretty -b 0x140000000 app.pdb
  pdbview --only procedures,globals a.pdb b.pdb
  pdbview --type 0x1003 app.pdb`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       version,
		RunE:          a.run,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	flags := cmd.Flags()
	flags.VarP(&a.format, "format", "f", "output format (plain|json|msgpack)")
	flags.StringVarP(&a.base, "base-address", "b", "", "load address added to every offset (decimal or 0x hex)")
	flags.BoolVarP(&a.debug, "debug", "d", false, "print the full error chain on failure")
	flags.StringVar(&a.configPath, "config", "", "settings file (.yaml, .yml or .toml)")
	flags.StringVar(&a.color, "color", "", "colorize plain output (auto|always|never)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace|debug|info|warn|error)")
	flags.StringSliceVar(&a.sections, "only", nil, "sections to print (info,modules,procedures,publics,globals,labels,types)")
	flags.StringVar(&a.typeIndex, "type", "", "print only the type with this index")
	flags.BoolVar(&a.pretty, "pretty", false, "indent JSON output")
	flags.IntVarP(&a.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "files parsed in parallel")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// settings merges the configuration with the flags the user set.
func (a *app) settings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = a.format
	}
	if flags.Changed("base-address") {
		cfg.BaseAddress = a.base
	}
	if flags.Changed("color") {
		cfg.Color = config.ColorMode(strings.ToLower(a.color))
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(a.logLevel)
	}
	if flags.Changed("debug") {
		cfg.Debug = a.debug
	}
	a.debug = cfg.Debug

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (a *app) run(cmd *cobra.Command, files []string) error {
	cfg, err := a.settings(cmd)
	if err != nil {
		return err
	}
	base, err := cfg.Base()
	if err != nil {
		return err
	}
	sections, err := output.ParseSections(a.sections)
	if err != nil {
		return err
	}
	var typeIndex codeview.TypeIndex
	if a.typeIndex != "" {
		v, err := strconv.ParseUint(a.typeIndex, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid type index %q: %w", a.typeIndex, err)
		}
		typeIndex = codeview.TypeIndex(v)
	}

	log := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Pretty:  true,
		NoColor: !output.ColorEnabled(cfg.Color, asFile(a.stderr)),
		Output:  a.stderr,
	})

	infos, err := parseAll(cmd.Context(), files, a.jobs, pdb.Options{BaseAddress: base, Logger: log})
	if err != nil {
		return err
	}

	opts := output.Options{
		Sections: sections,
		Color:    cfg.Format == config.FormatPlain && output.ColorEnabled(cfg.Color, asFile(a.stdout)),
		Indent:   a.pretty,
	}
	for i, info := range infos {
		if len(infos) > 1 && cfg.Format == config.FormatPlain {
			if i > 0 {
				fmt.Fprintln(a.stdout)
			}
			fmt.Fprintf(a.stdout, "==> %s <==\n", files[i])
		}
		if a.typeIndex != "" {
			entry, ok := output.NewDocument(info).Type(typeIndex)
			if !ok {
				return fmt.Errorf("%s: type %#x not found", files[i], uint32(typeIndex))
			}
			if err := output.RenderType(a.stdout, cfg.Format, entry, opts); err != nil {
				return err
			}
			continue
		}
		if err := output.Render(a.stdout, cfg.Format, info, opts); err != nil {
			return err
		}
	}
	return nil
}

// parseAll builds every file concurrently. Results keep the order of files.
func parseAll(ctx context.Context, files []string, jobs int, opts pdb.Options) ([]*pdb.AssemblyInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	infos := make([]*pdb.AssemblyInfo, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileOpts := opts
			fileOpts.Logger = opts.Logger.With().Str("file", path).Logger()
			info, err := pdb.Parse(path, fileOpts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

// printError writes err, and with debug set every error it wraps, one per
// line.
func printError(w io.Writer, err error, debug bool) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if !debug {
		return
	}
	for depth, cause := 1, errors.Unwrap(err); cause != nil; depth, cause = depth+1, errors.Unwrap(cause) {
		fmt.Fprintf(w, "%s caused by: %v\n", strings.Repeat("  ", depth), cause)
	}
}

func asFile(w io.Writer) *os.File {
	f, _ := w.(*os.File)
	return f
}
