package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "splay-session.db"
	}
	return filepath.Join(dir, "splay", "session.db")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, ff.ErrHelp):
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	app := &cli{stdout: stdout}
	root := app.command()

	if err := root.Parse(args, ff.WithEnvVarPrefix("SPLAY")); err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Command(root.GetSelected()))
		return err
	}
	err := root.Run(ctx)
	if errors.Is(err, ff.ErrNoExec) {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Command(root))
		return ff.ErrHelp
	}
	return err
}
