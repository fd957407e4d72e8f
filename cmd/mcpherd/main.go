package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// ServerFlags holds flags for the lifecycle commands (start/stop/kill/
// status/output).
type ServerFlags struct {
	ID string
}

// AddFlags holds flags for the add command.
type AddFlags struct {
	ID      string
	Command string
	Args    []string
	Env     []string
	Port    int
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	ConfigPath string
	Listen     string
	BasePath   string
	LogLevel   string
	LogFile    string
	HistoryDSN string
	ClickHouse string
	OpenSearch string
	OSIndex    string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	serverFlags := &ServerFlags{}
	addFlags := &AddFlags{}
	serveFlags := &ServeFlags{}

	root := &cobra.Command{
		Use:   "mcpherd",
		Short: "Managed server process supervisor",
		Long: `Mcpherd supervises configured server processes: it starts them
through the platform shell, captures their output, detects listening
ports, and exposes status over an HTTP API.

Examples:
  mcpherd serve --config=servers.json
  mcpherd add --id=everything --command=npx --arg=-y --arg=@modelcontextprotocol/server-everything
  mcpherd start --id=everything
  mcpherd status --id=everything`,
	}

	root.PersistentFlags().StringVar(&globalFlags.APIUrl, "api-url", "http://localhost:7466/api", "daemon API base URL")
	root.PersistentFlags().DurationVar(&globalFlags.APITimeout, "api-timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		createServeCommand(serveFlags),
		createStartCommand(globalFlags, serverFlags),
		createStopCommand(globalFlags, serverFlags),
		createKillCommand(globalFlags, serverFlags),
		createStatusCommand(globalFlags, serverFlags),
		createOutputCommand(globalFlags, serverFlags),
		createAddCommand(globalFlags, addFlags),
		createRemoveCommand(globalFlags, serverFlags),
		createListCommand(globalFlags),
	)
	return root
}

func createServeCommand(flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [servers.json]",
		Short: "Start the mcpherd daemon",
		Long: `Start the mcpherd daemon. Server definitions are read from a JSON
file in the mcpServers format:

{
  "mcpServers": {
    "everything": {
      "command": "npx",
      "args": ["-y", "@modelcontextprotocol/server-everything"]
    }
  }
}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				flags.ConfigPath = args[0]
			}
			return runServe(flags)
		},
	}
	cmd.Flags().StringVar(&flags.ConfigPath, "config", "", "path to JSON config file (created on first add when missing)")
	cmd.Flags().StringVar(&flags.Listen, "listen", "localhost:7466", "HTTP listen address")
	cmd.Flags().StringVar(&flags.BasePath, "base-path", "/api", "base path for API routes")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&flags.LogFile, "log-file", "", "also write logs to this file with rotation")
	cmd.Flags().StringVar(&flags.HistoryDSN, "history-dsn", "", "SQL DSN for lifecycle history (sqlite:// or postgres://)")
	cmd.Flags().StringVar(&flags.ClickHouse, "history-clickhouse", "", "ClickHouse address for lifecycle history (host:9000)")
	cmd.Flags().StringVar(&flags.OpenSearch, "history-opensearch", "", "OpenSearch base URL for lifecycle history")
	cmd.Flags().StringVar(&flags.OSIndex, "history-opensearch-index", "mcpherd-history", "OpenSearch index name")
	return cmd
}

func createStartCommand(g *GlobalFlags, f *ServerFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a configured server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(g, f)
		},
	}
	addIDFlag(cmd, f)
	return cmd
}

func createStopCommand(g *GlobalFlags, f *ServerFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Gracefully stop a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(g, f)
		},
	}
	addIDFlag(cmd, f)
	return cmd
}

func createKillCommand(g *GlobalFlags, f *ServerFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Force-kill a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKill(g, f)
		},
	}
	addIDFlag(cmd, f)
	return cmd
}

func createStatusCommand(g *GlobalFlags, f *ServerFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current status of a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(g, f)
		},
	}
	addIDFlag(cmd, f)
	return cmd
}

func createOutputCommand(g *GlobalFlags, f *ServerFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "output",
		Short: "Print the captured output of a server's current run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(g, f)
		},
	}
	addIDFlag(cmd, f)
	return cmd
}

func createAddCommand(g *GlobalFlags, f *AddFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a server definition with the daemon",
		Long: `Register a server definition with the daemon's configuration store.

Examples:
  mcpherd add --id=everything --command=npx --arg=-y --arg=@modelcontextprotocol/server-everything
  mcpherd add --id=web --command="python app.py" --env=PORT=8000 --port=8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(g, f)
		},
	}
	cmd.Flags().StringVar(&f.ID, "id", "", "server id (required)")
	cmd.Flags().StringVar(&f.Command, "command", "", "command to run (required)")
	cmd.Flags().StringArrayVar(&f.Args, "arg", nil, "command argument (repeatable)")
	cmd.Flags().StringArrayVar(&f.Env, "env", nil, "extra environment variable KEY=VALUE (repeatable)")
	cmd.Flags().IntVar(&f.Port, "port", 0, "declared listening port (0 = detect)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("command"); err != nil {
		panic(err)
	}
	return cmd
}

func createRemoveCommand(g *GlobalFlags, f *ServerFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a server definition from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(g, f)
		},
	}
	addIDFlag(cmd, f)
	return cmd
}

func createListCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured servers with their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(g)
		},
	}
}

func addIDFlag(cmd *cobra.Command, f *ServerFlags) {
	cmd.Flags().StringVar(&f.ID, "id", "", "server id (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
}
