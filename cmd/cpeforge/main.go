// Command cpeforge runs the community CPE innovation crew.
//
// Usage:
//
//	cpeforge check
//	cpeforge status --profile profiles/lab.yaml
//	cpeforge run --input analysis.json
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	_ "github.com/joho/godotenv/autoload"
	"github.com/k0kubun/pp/v3"
	"github.com/phsym/zeroslog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/prplworks/cpeforge/config"
	"github.com/prplworks/cpeforge/events"
	"github.com/prplworks/cpeforge/framework"
	"github.com/prplworks/cpeforge/internal/msgfmt"
	"github.com/prplworks/cpeforge/telemetry"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Check   CheckCmd   `cmd:"" help:"Verify the environment is ready for analysis runs."`
	Status  StatusCmd  `cmd:"" help:"Show the framework's operational state."`
	Run     RunCmd     `cmd:"" help:"Run the full ecosystem analysis."`

	Profile  string `short:"p" help:"Path to an agent profile YAML file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("cpeforge version %s\n", version)
	return nil
}

// CheckCmd verifies the environment the way a first-time user would.
type CheckCmd struct{}

func (c *CheckCmd) Run(cli *CLI) error {
	fmt.Println("CPE Innovation Framework - Environment Check")
	fmt.Println(strings.Repeat("=", 50))

	ok := true
	report := func(name string, err error) {
		if err != nil {
			ok = false
			fmt.Printf("%s %s: %v\n", color.RedString("fail"), name, err)
			return
		}
		fmt.Printf("%s %s\n", color.GreenString("  ok"), name)
	}

	settings := config.Load()
	report("settings", settings.Validate())

	if cli.Profile != "" {
		_, err := config.LoadProfile(cli.Profile)
		report("profile "+cli.Profile, err)
	}

	f, err := newFramework(cli, settings)
	report("agents", err)

	if err == nil {
		status := f.Status()
		fmt.Println()
		fmt.Printf("   Agents: %d\n", status.AgentsCount)
		fmt.Printf("   Tasks:  %d\n", status.TasksCount)
		fmt.Printf("   Status: %s\n", status.FrameworkStatus)
	}

	if !ok {
		return fmt.Errorf("environment check failed")
	}
	fmt.Println("\nEnvironment check passed.")
	return nil
}

// StatusCmd prints the framework's operational state.
type StatusCmd struct{}

func (c *StatusCmd) Run(cli *CLI) error {
	f, err := newFramework(cli, config.Load())
	if err != nil {
		return err
	}
	pp.Println(f.Status())
	return nil
}

// RunCmd executes the sequential five-agent analysis.
type RunCmd struct {
	Input       string `short:"i" help:"Path to a JSON analysis input file." type:"path"`
	Stream      bool   `default:"true" negatable:"" help:"Stream model output as it is produced (use --no-stream to disable)."`
	MetricsAddr string `placeholder:"ADDR" help:"Serve Prometheus metrics on this address while the run executes (e.g. :9464)."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var input framework.AnalysisInput
	if c.Input != "" {
		data, err := os.ReadFile(c.Input)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return fmt.Errorf("parse input: %w", err)
		}
	}

	f, err := newFramework(cli, config.Load(), framework.WithStreaming(c.Stream))
	if err != nil {
		return err
	}

	hook, _ := msgfmt.Console[string](os.Stdout)
	hooks := []events.Hook{hook}
	if c.MetricsAddr != "" {
		hooks = append(hooks, telemetry.NewHook())

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: c.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				slog.Error("metrics server stopped", slog.Any("error", serveErr))
			}
		}()
		defer srv.Close()
	}

	report, err := f.Run(ctx, input, hooks...)
	if err != nil {
		return err
	}

	glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return err
	}
	out, err := glam.Render(report)
	if err != nil {
		fmt.Println(report)
		return nil
	}
	fmt.Println(out)
	return nil
}

func newFramework(cli *CLI, settings config.Settings, options ...framework.Option) (*framework.Framework, error) {
	if cli.Profile != "" {
		profile, err := config.LoadProfile(cli.Profile)
		if err != nil {
			return nil, err
		}
		options = append(options, framework.WithProfile(profile))
	}
	return framework.New(settings, options...)
}

func initLogger(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: lvl}),
	))
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("cpeforge"),
		kong.Description("Community-driven CPE innovation framework."),
		kong.UsageOnError(),
	)

	initLogger(cli.LogLevel)

	kctx.FatalIfErrorf(kctx.Run(&cli))
}
