package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"hhsfinance/internal/cli"
	"hhsfinance/internal/config"
	applog "hhsfinance/internal/log"
)

// env carries the process streams so commands stay testable.
type env struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	usage string
	run   func(e *env, args []string) error
}

var commands = map[string]command{
	"serve":           {"Run the HTTP API with live sync", runServe},
	"status":          {"Show connection mode and totals", runStatus},
	"add":             {"Add a transaction", runAdd},
	"update":          {"Update fields of a transaction", runUpdate},
	"delete":          {"Delete a transaction", runDelete},
	"list":            {"List transactions", runList},
	"summary":         {"Show income, expense and balance for a period", runSummary},
	"category-add":    {"Add a custom category", runCategoryAdd},
	"category-update": {"Rename or recolor a category", runCategoryUpdate},
	"category-delete": {"Delete a category", runCategoryDelete},
	"currency":        {"Set the display currency", runCurrency},
	"backup":          {"Write a backup file", runBackup},
	"restore":         {"Restore from a backup file", runRestore},
	"history":         {"List or restore snapshots replaced by sync or restore", runHistory},
	"push":            {"Upload the current state to the sync backend", runPush},
	"pull":            {"Replace the local state with the remote snapshot", runPull},
	"login":           {"Authenticate and enable sync", runLogin},
	"logout":          {"Disable sync, optionally writing a backup first", runLogout},
	"lang":            {"Set the interface language (en|my)", runLang},
	"theme":           {"Set the theme (light|dark)", runTheme},
	"hash-passphrase": {"Print a bcrypt hash for ADMIN_PASSPHRASE_HASH", runHashPassphrase},
}

func main() {
	cli.LoadEnvFile()

	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	e := &env{ctx: ctx, stdin: stdin, stdout: stdout, stderr: stderr}
	if len(args) < 1 {
		printUsage(stderr)
		return errors.New("missing command")
	}

	switch args[0] {
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
	err := cmd.run(e, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "HHS Finance")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  hhsfinance <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(w, "  help             Show this help message")
	fmt.Fprintln(w, "\nRun 'hhsfinance <command> -h' for more information on a command.")
}

func (e *env) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// config loads and validates the environment configuration with a logger
// writing to stderr.
func (e *env) config() (*config.Config, *applog.Logger, error) {
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), e.stderr)
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withApp runs fn against a bootstrapped app. One-shot commands never
// subscribe to live updates; changes they make are still pushed and
// awaited on close.
func (e *env) withApp(fn func(app *cli.App) error) (err error) {
	cfg, logger, err := e.config()
	if err != nil {
		return err
	}
	app, err := cli.Bootstrap(e.ctx, cfg, logger, cli.AppOptions{Manual: true})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(cfg.ShutdownTimeout); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(app)
}

func today() string {
	return time.Now().Format("2006-01-02")
}
