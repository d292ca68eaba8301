package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/pufferwatch/internal/app"
	"github.com/five82/pufferwatch/internal/parse"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type sessionFunc func(ctx context.Context, opts app.Options) error

// globalFlags are shared by every subcommand that opens a session.
type globalFlags struct {
	configPath string
	outputLog  string
	logLevel   string
	level      string
	sources    []string
	grep       string
	print      bool
}

// options turns the global flags into session options.
func (g *globalFlags) options() (app.Options, error) {
	opts := app.Options{
		ConfigPath: g.configPath,
		OutputLog:  g.outputLog,
		LogLevel:   g.logLevel,
		Print:      g.print,
	}
	if g.level != "" {
		level, ok := parse.ParseLevel(g.level)
		if !ok {
			return app.Options{}, fmt.Errorf("unknown level %q (want trace, debug, info, alert, warn or error)", g.level)
		}
		opts.Criteria.MinLevel = level
	}
	for _, s := range g.sources {
		if s = strings.TrimSpace(s); s != "" {
			opts.Criteria.Sources = append(opts.Criteria.Sources, s)
		}
	}
	opts.Criteria.Text = strings.TrimSpace(g.grep)
	return opts, nil
}

func newRootCmd(runSession sessionFunc) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "pufferwatch",
		Short: "Live viewer for SMAPI logs",
		Long: `pufferwatch follows a Stardew Valley SMAPI log and lets you filter it by
level, source and text while it grows. It can read the log file, a pipe on
stdin, a log shared on the web, or run SMAPI itself and forward console
commands to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "config file (default ~/.config/pufferwatch/config.toml)")
	flags.StringVar(&g.outputLog, "output-log", "", "write diagnostics to this file")
	flags.StringVar(&g.logLevel, "log-level", "info", "diagnostic level: trace, debug, info, warn, error")
	flags.StringVar(&g.level, "level", "", "show entries at or above this level")
	flags.StringArrayVar(&g.sources, "source", nil, "show only this source (repeatable)")
	flags.StringVar(&g.grep, "grep", "", "show only entries whose message contains this text")
	flags.BoolVar(&g.print, "print", false, "print matching entries instead of opening the viewer")

	root.AddCommand(
		newLogCmd(g, runSession),
		newStdinCmd(g, runSession),
		newRemoteCmd(g, runSession),
		newRunCmd(g, runSession),
		newVersionCmd(),
	)
	return root
}

func newLogCmd(g *globalFlags, runSession sessionFunc) *cobra.Command {
	var (
		path   string
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "View a log file (default SMAPI-latest.txt)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}
			opts.Mode = app.ModeFile
			opts.LogPath = path
			opts.Follow = follow
			return runSession(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&path, "log", "l", "", "log file to read")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep reading as the file grows")
	return cmd
}

func newStdinCmd(g *globalFlags, runSession sessionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stdin",
		Short: "View a log piped on standard input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}
			opts.Mode = app.ModeStdin
			opts.Stdin = cmd.InOrStdin()
			return runSession(cmd.Context(), opts)
		},
	}
}

func newRemoteCmd(g *globalFlags, runSession sessionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "remote URL",
		Short: "View a log fetched over HTTP",
		Example: `  pufferwatch remote https://smapi.io/log/abc123
  pufferwatch remote example.com/SMAPI-latest.txt --level warn`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}
			opts.Mode = app.ModeRemote
			opts.URL = args[0]
			return runSession(cmd.Context(), opts)
		},
	}
}

func newRunCmd(g *globalFlags, runSession sessionFunc) *cobra.Command {
	var (
		mirror   string
		encoding string
	)
	cmd := &cobra.Command{
		Use:   "run [SMAPI_PATH] [-- ARGS...]",
		Short: "Run SMAPI and view its console output",
		Long: `Run starts SMAPI (found from the game install when SMAPI_PATH is omitted)
and shows its console output. Press ':' in the viewer to send a console
command. Arguments after -- are passed to SMAPI.`,
		Args: func(cmd *cobra.Command, args []string) error {
			before := args
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				before = args[:dash]
			}
			if len(before) > 1 {
				return fmt.Errorf("accepts at most one SMAPI path, received %d", len(before))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}
			before, passthrough := args, []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				before, passthrough = args[:dash], args[dash:]
			}
			opts.Mode = app.ModeRun
			if len(before) == 1 {
				opts.SMAPIPath = before[0]
			}
			opts.Args = passthrough
			opts.MirrorPath = mirror
			opts.Encoding = encoding
			return runSession(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&mirror, "mirror", "m", "", "also write the console output to this file (truncated first)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "console input encoding: utf8, utf16le, utf16be")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pufferwatch version %s\n", version)
		},
	}
}
