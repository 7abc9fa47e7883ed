// Package cli implements the taskctl command line client.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yukikurage/taskmaster/internal/client"
	"github.com/yukikurage/taskmaster/internal/logging"
)

// app holds what every command shares.
type app struct {
	serverURL   string
	apiKey      string
	sessionFile string

	in  io.Reader
	out io.Writer
	log logging.Logger

	client *client.Client
}

// NewRootCommand builds the taskctl command tree reading from in and
// writing to out.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{
		in:  in,
		out: out,
		log: logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))),
	}

	root := &cobra.Command{
		Use:   "taskctl",
		Short: "TaskMaster command line client",
		Long: `taskctl manages your TaskMaster account, tasks and profile.

The session cookie is kept in a file so that login carries over between
invocations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return saveSession(a.sessionFile, a.client)
		},
	}

	root.PersistentFlags().StringVar(&a.serverURL, "server", envOr("TASKMASTER_URL", "http://localhost:8080"), "TaskMaster server URL")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", os.Getenv("TASKMASTER_API_KEY"), "public API key sent in the apikey header")
	root.PersistentFlags().StringVar(&a.sessionFile, "session-file", defaultSessionFile(), "file holding the session cookie")

	root.AddCommand(
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newConfirmCmd(a),
		newResendCmd(a),
		newTasksCmd(a),
		newProfileCmd(a),
		newWatchCmd(a),
	)
	return root
}

// Execute runs taskctl against the process's stdin and stdout.
func Execute() {
	if err := NewRootCommand(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) connect() error {
	jar, err := loadSession(a.sessionFile, a.serverURL)
	if err != nil {
		return err
	}
	c, err := client.New(a.serverURL, a.apiKey, jar)
	if err != nil {
		return err
	}
	a.client = c
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".taskmaster-session"
	}
	return filepath.Join(dir, "taskmaster", "session.json")
}
