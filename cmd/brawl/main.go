package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

var cli struct {
	Debug    bool   `help:"enable debug logging"`
	LogLevel string `help:"log level (debug, info, warn, error)" default:"info"`

	Solve          SolveCmd          `cmd:"" help:"solve every state by backward induction and write the table"`
	Eval           EvalCmd           `cmd:"" help:"play the solved agent against an opponent"`
	Play           PlayCmd           `cmd:"" help:"play against the solved agent in the terminal"`
	ResolveFailure ResolveFailureCmd `cmd:"" name:"resolve-failure" help:"re-run the LP on a recorded failure"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("brawl"),
		kong.Description("Bodega Brawl equilibrium solver"),
		kong.UsageOnError(),
	)

	logger := setupLogger(cli.Debug, cli.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch kctx.Command() {
	case "solve":
		err = cli.Solve.Run(ctx, logger)
	case "eval":
		err = cli.Eval.Run(ctx, logger)
	case "play":
		err = cli.Play.Run(ctx, logger)
	case "resolve-failure <file>":
		err = cli.ResolveFailure.Run(ctx, logger)
	default:
		logger.Fatal("unknown command", "command", kctx.Command())
	}
	if err != nil {
		logger.Error("command failed", "command", kctx.Command(), "err", err)
		stop()
		os.Exit(1)
	}
}

func setupLogger(debug bool, level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if debug {
		logger.SetLevel(log.DebugLevel)
		return logger
	}
	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}
