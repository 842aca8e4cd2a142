package ipa

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
)

// Represents the root command for ipa.
var RootCmd struct {
	Debug   bool       `short:"d" help:"Enable debug output."`
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Build   BuildCmd   `cmd:"" help:"Build app bundles and archives for the selected targets."`
	Log     LogCmd     `cmd:"" help:"Show the build log of a target."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Main parses arguments, runs the selected subcommand and exits non-zero on
// failure.
func Main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(toolName),
		kong.Description("Package Cargo binaries into iOS and macOS app bundles."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	Debug = RootCmd.Debug
	Quiet = RootCmd.Quiet
	configureLogger()

	if err := kongCtx.Run(); err != nil {
		_ = Logger().Sync()
		colArrow.Print("-> ")
		cPrintf(colError, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
	_ = Logger().Sync()
}

// Represents the 'ipa build' command.
type BuildCmd struct {
	Example        string `short:"e" help:"Build the named example instead of the package binary." placeholder:"NAME"`
	Release        bool   `short:"r" help:"Build in release mode."`
	Name           string `short:"n" help:"Override the app name." placeholder:"NAME"`
	Platform       string `short:"p" help:"Only build for this platform (ios, macos)." placeholder:"PLATFORM"`
	Arch           string `short:"a" help:"Only build for this architecture (x86_64, aarch64)." placeholder:"ARCH"`
	ArchiveDesktop bool   `help:"Also pack macOS bundles into a compressed tarball."`
	Publish        bool   `help:"Upload archives and checksums to the configured bucket."`
}

// Executes the build command.
func (c *BuildCmd) Run(ctx context.Context) error {
	opts := BuildOptions{
		Example:        c.Example,
		Release:        c.Release,
		ArchiveDesktop: c.ArchiveDesktop,
	}
	if c.Platform != "" {
		p, err := ParsePlatform(c.Platform)
		if err != nil {
			return err
		}
		opts.Platform = &p
	}
	if c.Arch != "" {
		a, err := ParseArch(c.Arch)
		if err != nil {
			return err
		}
		opts.Arch = &a
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	bctx, err := NewContext(cwd, c.Name, c.Release, settingsPath())
	if err != nil {
		return err
	}
	if bctx.Settings.Bool("IPA_DEBUG") && !Debug {
		Debug = true
		configureLogger()
	}

	var client *R2Client
	if c.Publish {
		if client, err = NewR2Client(ctx, bctx.Settings); err != nil {
			return err
		}
	}

	results, err := NewBuilder(bctx, NewExecutor(ctx), opts, nil).Run()
	if err != nil {
		return err
	}

	if client != nil {
		keys, err := publishArtifacts(ctx, client, bctx.Project.Identity, results)
		if err != nil {
			return err
		}
		step("Published %d file(s) to %s", len(keys), client.BucketName)
	}

	colArrow.Print("-> ")
	cPrintf(colSuccess, "Built %s for %d target(s)\n", bctx.Project.Identity.Name, len(results))
	for _, r := range results {
		if r.Archive != "" {
			cPrintf(colNote, "   %s\n", r.Archive)
		}
		if r.Bundle != "" {
			cPrintf(colNote, "   %s\n", r.Bundle)
		}
	}
	return nil
}

// Represents the 'ipa log' command.
type LogCmd struct {
	Triple string `arg:"" optional:"" help:"Target triple whose log to show. Lists available logs when omitted."`
}

// Executes the log command.
func (c *LogCmd) Run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	proj, err := LoadProject(cwd, "")
	if err != nil {
		return err
	}
	dir := proj.Layout.LogDir()

	if c.Triple == "" {
		found, err := listBuildLogs(dir)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBuildLog, err)
		}
		if len(found) == 0 {
			cPrintln(colWarn, "No build logs found.")
			return nil
		}
		for _, triple := range found {
			cPrintln(colNote, triple)
		}
		return nil
	}

	lines, err := readBuildLog(filepath.Join(dir, c.Triple+logExt))
	if err != nil {
		return err
	}
	if !isTerminal() {
		printLines(lines)
		return nil
	}
	return RunPager("Build log: "+c.Triple, lines)
}

// Represents the 'ipa version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	cPrintf(colNote, "%s %s (built %s)\n", toolName, version, buildDate)
	return nil
}
