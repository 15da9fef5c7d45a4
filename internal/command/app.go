// Where: internal/command/app.go
// What: CLI entrypoint logic.
// Why: Provide a testable command dispatcher.
package command

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/kubed-io/fx/internal/infra/blobstore"
	"github.com/kubed-io/fx/internal/infra/config"
	"github.com/kubed-io/fx/internal/infra/ledger"
	"github.com/kubed-io/fx/internal/infra/logging"
	"github.com/kubed-io/fx/internal/infra/ui"
	"github.com/kubed-io/fx/internal/meta"
	"github.com/kubed-io/fx/internal/version"
)

// Dependencies holds the injected collaborators of every command. Nil
// factories disable the feature that needs them.
type Dependencies struct {
	Out        io.Writer
	ErrOut     io.Writer
	In         io.Reader
	LoadConfig func(config.Options) (*config.Config, error)
	NewStore   func(context.Context, *config.Config) (blobstore.Store, error)
	NewLedger  func(context.Context, *config.Config) (ledger.Recorder, error)
	Now        func() time.Time
}

// CLI defines the command-line interface structure parsed by Kong.
type CLI struct {
	Config    string     `name:"config" env:"FX_CONFIG" help:"Path to a config file (yaml, json or toml)"`
	EnvFile   []string   `name:"env-file" help:"Path to a .env file (repeatable)"`
	LogLevel  string     `name:"log-level" help:"Log level (debug/info/warn/error)"`
	LogFormat string     `name:"log-format" help:"Log format (text/json)"`
	NoEmoji   bool       `name:"no-emoji" help:"Disable emoji output"`
	Compile   CompileCmd `cmd:"" help:"Compile a Service into Fission resources"`
	Pack      PackCmd    `cmd:"" help:"Build the package archive of a Service"`
	Publish   PublishCmd `cmd:"" help:"Pack, upload and record the archive in the Service"`
	Version   VersionCmd `cmd:"" help:"Show version information"`
}

type (
	CompileCmd struct {
		Path   string `arg:"" optional:"" help:"Service file or directory (default: current directory, - for stdin)"`
		Output string `short:"o" help:"Write resources to a file instead of stdout"`
		Draft  bool   `help:"Allow a url source without a recorded checksum"`
		KRM    bool   `name:"krm" help:"Read a ResourceList on stdin and write it to stdout"`
	}

	PackCmd struct {
		Path   string `arg:"" optional:"" help:"Service file or directory (default: current directory)"`
		Output string `short:"o" help:"Archive path (default: OS temp dir)"`
	}

	PublishCmd struct {
		Path   string `arg:"" optional:"" help:"Service file or directory (default: current directory)"`
		Bucket string `short:"b" help:"Bucket to upload to (overrides config)"`
		Dedupe string `help:"Dedupe policy (never/checksum, default from config)"`
	}

	VersionCmd struct{}
)

// Run parses args, dispatches the command and returns the exit code.
func Run(args []string, deps Dependencies) int {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.ErrOut == nil {
		deps.ErrOut = os.Stderr
	}
	if deps.In == nil {
		deps.In = os.Stdin
	}
	if deps.LoadConfig == nil {
		deps.LoadConfig = config.Load
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	cli := CLI{}
	exited := false
	parser, err := kong.New(&cli,
		kong.Name(meta.AppName),
		kong.Description("Compile, pack and publish Fission services."),
		kong.Writers(deps.Out, deps.ErrOut),
		kong.Exit(func(int) { exited = true }),
	)
	if err != nil {
		return exitWithError(deps.ErrOut, err)
	}
	if len(args) == 0 {
		args = []string{"--help"}
	}
	kctx, err := parser.Parse(args)
	// --help prints usage and requests an exit.
	if exited {
		return 0
	}
	if err != nil {
		return exitWithError(deps.ErrOut, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if exitCode, handled := dispatchCommand(ctx, commandName(kctx.Command()), cli, deps); handled {
		return exitCode
	}
	return exitWithError(deps.ErrOut, errUnknownCommand)
}

type commandHandler func(context.Context, CLI, Dependencies) int

func dispatchCommand(ctx context.Context, command string, cli CLI, deps Dependencies) (int, bool) {
	handlers := map[string]commandHandler{
		"compile": runCompile,
		"pack":    runPack,
		"publish": runPublish,
		"version": runVersion,
	}
	if handler, ok := handlers[command]; ok {
		return handler(ctx, cli, deps), true
	}
	return 1, false
}

// commandName drops positional placeholders such as "<path>".
func commandName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func runVersion(_ context.Context, _ CLI, deps Dependencies) int {
	consoleUI(deps.Out, true).Info(version.GetVersion())
	return 0
}

// session is the configuration-derived state shared by handlers.
type session struct {
	config *config.Config
	logger *slog.Logger
	ui     ui.UserInterface
}

func loadSession(cli CLI, deps Dependencies) (session, error) {
	cfg, err := deps.LoadConfig(config.Options{ConfigFile: cli.Config, EnvFiles: cli.EnvFile})
	if err != nil {
		return session{}, err
	}
	if level := strings.TrimSpace(cli.LogLevel); level != "" {
		cfg.Log.Level = level
	}
	if format := strings.TrimSpace(cli.LogFormat); format != "" {
		cfg.Log.Format = format
	}
	if err := cfg.Validate(); err != nil {
		return session{}, err
	}
	return session{
		config: cfg,
		logger: logging.New(deps.ErrOut, cfg.Log.Level, cfg.Log.Format),
		ui:     consoleUI(deps.Out, !cli.NoEmoji),
	}, nil
}
