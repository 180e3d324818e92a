// cmd/winsetup/main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/windowsadmins/winsetup/pkg/config"
	"github.com/windowsadmins/winsetup/pkg/facts"
	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/menu"
	"github.com/windowsadmins/winsetup/pkg/provision"
	"github.com/windowsadmins/winsetup/pkg/regstore"
	"github.com/windowsadmins/winsetup/pkg/scripts"
	"github.com/windowsadmins/winsetup/pkg/shell"
	"github.com/windowsadmins/winsetup/pkg/tweaks"
	"github.com/windowsadmins/winsetup/pkg/version"
)

type options struct {
	configPath  string
	checkOnly   bool
	only        []string
	tweaks      []string
	interactive bool
	showConfig  bool
	writeConfig bool
	version     bool
	verbosity   int
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("winsetup", pflag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", config.DefaultConfigPath, "Path to the configuration file.")
	fs.BoolVar(&opts.checkOnly, "checkonly", false, "Log what would be done without changing anything.")
	fs.StringSliceVar(&opts.only, "only", nil, "Run only these phases: "+strings.Join(provision.Phases, ", ")+".")
	fs.StringArrayVar(&opts.tweaks, "tweak", nil, "Apply only this tweak (repeatable): "+strings.Join(tweaks.Names(), ", ")+".")
	fs.BoolVar(&opts.interactive, "menu", false, "Choose actions from an interactive menu.")
	fs.BoolVar(&opts.showConfig, "show-config", false, "Display the effective configuration and exit.")
	fs.BoolVar(&opts.writeConfig, "write-config", false, "Write the effective configuration to the --config path and exit.")
	fs.BoolVar(&opts.version, "version", false, "Print the version and exit.")
	fs.CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv, -vvv)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	for _, name := range opts.tweaks {
		if _, ok := tweaks.Lookup(name); !ok {
			return opts, fmt.Errorf("unknown tweak %q (available: %s)", name, strings.Join(tweaks.Names(), ", "))
		}
	}
	return opts, nil
}

// logLevel prefers the -v count and falls back to the configured level.
func logLevel(opts options, cfg *config.Configuration) logging.LogLevel {
	if opts.verbosity > 0 {
		return logging.LevelFromVerbosity(opts.verbosity)
	}
	return logging.ParseLevel(cfg.LogLevel)
}

func main() {
	console := logging.NewConsole()

	opts, err := parseFlags(commandLineArgs())
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		console.Error("%v", err)
		os.Exit(2)
	}

	if opts.version {
		version.Print()
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(opts.configPath, regstore.NewRegistry())
	if err != nil {
		console.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if opts.checkOnly {
		cfg.CheckOnly = true
	}

	if opts.showConfig {
		console.Printf("Current configuration:")
		if err := printYAML(console, cfg); err != nil {
			console.Error("Failed to display configuration: %v", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	if opts.writeConfig {
		if err := writeConfig(console, opts.configPath, cfg); err != nil {
			console.Error("%v", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	phases, err := provision.ParsePhases(opts.only)
	if err != nil {
		console.Error("%v", err)
		os.Exit(2)
	}
	if len(opts.tweaks) > 0 && len(opts.only) == 0 {
		phases = []string{provision.PhaseTweaks}
	}

	if err := logging.Init(logging.DefaultLoggerConfig(cfg.LogPath, logLevel(opts, cfg))); err != nil {
		console.Error("Error initializing logger: %v", err)
		os.Exit(1)
	}
	defer logging.CloseLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, console, cfg, opts, phases))
}

func run(ctx context.Context, console *logging.Console, cfg *config.Configuration, opts options, phases []string) int {
	v := version.Version()
	machine := facts.Collect(ctx)
	logging.Info("Starting winsetup", "version", v.Version, "host", machine.Hostname,
		"os", machine.OSVersion, "model", machine.MachineModel, "checkOnly", cfg.CheckOnly)

	a := newApp(cfg, opts.tweaks)
	if err := a.loadLists(phases, opts.interactive); err != nil {
		logging.Error("Failed to load lists", "error", err)
		console.Error("%v", err)
		return 1
	}

	runScript(ctx, a.runner, cfg, cfg.PreflightScript, scripts.PreflightName, "preflight")

	var runErr error
	if opts.interactive {
		runErr = menu.Loop(ctx, os.Stdin, os.Stdout, a.actions(console))
	} else {
		var summaries []provision.Summary
		summaries, runErr = a.prov.Run(ctx, phases)
		a.summaries = append(a.summaries, summaries...)
	}

	runScript(ctx, a.runner, cfg, cfg.PostflightScript, scripts.PostflightName, "postflight")

	status, code := exitStatus(runErr, a.failed())
	switch status {
	case "cancelled":
		console.Warning("Interrupted, stopping.")
	case "failed":
		console.Error("%v", runErr)
	}

	printSummary(console, a.summaries)
	if a.installer.RebootRequired() {
		console.Warning("One or more installers requested a restart.")
	}

	metadata := machine.Map()
	metadata["version"] = v.Version
	metadata["check_only"] = cfg.CheckOnly
	metadata["reboot_required"] = a.installer.RebootRequired()
	phaseSummaries := make([]logging.PhaseSummary, 0, len(a.summaries))
	for _, s := range a.summaries {
		phaseSummaries = append(phaseSummaries, s.PhaseSummary())
	}
	if err := logging.EndSession(status, phaseSummaries, metadata); err != nil {
		logging.Warn("Failed to write session summary", "error", err)
	}
	logging.Info("winsetup finished", "status", status, "logDir", logging.GetCurrentLogDir())
	return code
}

// exitStatus maps the outcome of a run to the session status and process
// exit code.
func exitStatus(runErr error, failed int) (string, int) {
	switch {
	case errors.Is(runErr, context.Canceled):
		return "cancelled", 1
	case runErr != nil:
		return "failed", 1
	case failed > 0:
		return "completed_with_errors", 1
	}
	return "completed", 0
}

// writeConfig saves cfg to path. CheckOnly only reports the target.
func writeConfig(console *logging.Console, path string, cfg *config.Configuration) error {
	if cfg.CheckOnly {
		console.Printf("CheckOnly: would write configuration to %s", path)
		return nil
	}
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	console.Success("Configuration written to %s", path)
	return nil
}

// runScript runs a preflight or postflight script. Failures are logged and
// never stop the run.
func runScript(ctx context.Context, runner shell.Runner, cfg *config.Configuration, configured, defaultName, display string) {
	path := configured
	if path == "" {
		path = defaultName
	}
	sctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	if err := scripts.Run(sctx, runner, cfg.ResolveSync(path), display); err != nil {
		logging.Warn("Continuing after script failure", "script", display, "error", err)
	}
}

func printSummary(console *logging.Console, summaries []provision.Summary) {
	for _, s := range summaries {
		line := fmt.Sprintf("%-8s %d succeeded, %d failed, %d skipped", s.Phase, s.Succeeded, s.Failed, s.Skipped)
		if s.Pending > 0 {
			line += fmt.Sprintf(", %d pending", s.Pending)
		}
		if s.Failed > 0 {
			console.Warning("%s", line)
			for _, f := range s.Failures {
				console.Printf("    %s", f)
			}
			continue
		}
		console.Success("%s", line)
	}
}
