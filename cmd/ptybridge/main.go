package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ptybridge/ptybridge/internal/logging"
	"github.com/ptybridge/ptybridge/internal/version"
	pio "github.com/ptybridge/ptybridge/io"
	"github.com/ptybridge/ptybridge/terminal"
)

var (
	flagCommand string
	flagCols    int
	flagRows    int
	flagDir     string
	flagRecord  string
	flagDebug   bool

	rootCmd = &cobra.Command{
		Use:     "ptybridge [flags] [-- command [args...]]",
		Version: version.String(),
		Long:    "Run a command on a pseudo terminal and bridge its I/O to the current terminal.",
		Example: `  # Run $SHELL on a pty
  ptybridge
  # Run a specific command line
  ptybridge -c 'htop -d 10'
  # Record the session output to a file
  ptybridge --record session.log -- bash`,
		RunE: run,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagCommand, "command", "c", "", "command line to run (parsed shell-style)")
	rootCmd.PersistentFlags().IntVar(&flagCols, "cols", 0, "terminal columns (default: probe, then 80)")
	rootCmd.PersistentFlags().IntVar(&flagRows, "rows", 0, "terminal rows (default: probe, then 30)")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "working directory for the command")
	rootCmd.PersistentFlags().StringVar(&flagRecord, "record", "", "append session output to this file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cobra.Command, args []string) error {
	argv, err := resolveArgv(args)
	if err != nil {
		return err
	}

	logger := logging.New(logging.WithDebug(flagDebug))

	cols, rows := flagCols, flagRows
	if cols == 0 || rows == 0 {
		if w, h, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
			if cols == 0 {
				cols = w
			}
			if rows == 0 {
				rows = h
			}
		}
	}

	t, err := terminal.New(argv[0], argv[1:], terminal.Options{
		Cols:   cols,
		Rows:   rows,
		Dir:    flagDir,
		Debug:  flagDebug,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = t.Destroy() }()

	stopResize := watchResize(t)
	defer stopResize()

	writers := pio.NewMultiWriter(os.Stdout)
	if flagRecord != "" {
		f, err := os.OpenFile(flagRecord, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open record file: %w", err)
		}
		defer f.Close()
		if err := writers.Append(f); err != nil {
			return err
		}
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("unable to set terminal to raw mode: %w", err)
		}
		defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }()
	}

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if werr := t.Write(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	dataCh := t.On(terminal.EventData)
	exitCh := t.On(terminal.EventExit)
	errCh := t.On(terminal.EventError)
	defer t.Off(terminal.EventData, dataCh)
	defer t.Off(terminal.EventExit, exitCh)
	defer t.Off(terminal.EventError, errCh)

	t.Start()

	for {
		select {
		case evt := <-dataCh:
			data, _ := evt.Args[0].([]byte)
			if _, err := writers.Write(data); err != nil {
				return err
			}
		case evt := <-errCh:
			err, _ := evt.Args[0].(error)
			return err
		case <-exitCh:
			return nil
		}
	}
}

func resolveArgv(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if flagCommand != "" {
		argv, err := shlex.Split(flagCommand)
		if err != nil {
			return nil, fmt.Errorf("parse command: %w", err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("empty command")
		}
		return argv, nil
	}

	return []string{defaultShell()}, nil
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}

	return "/bin/sh"
}
