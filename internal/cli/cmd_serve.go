package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/timeline/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the timeline over MCP (JSON-RPC 2.0 on stdin/stdout)",
		Long: `Serve the timeline to an MCP client over stdin/stdout. Logs go to stderr.

Example client configuration:
  {"command": "timeline", "args": ["serve", "--data-dir", "/path/to/.timeline"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport := mcp.NewMCPTransport(a.mcpServer(), cmd.InOrStdin(), cmd.OutOrStdout(), Version, a.logger)
			return transport.Start(cmd.Context())
		},
	}
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Send MCP commands interactively",
		Long: `Read "<method> <json params>" lines and print each result as JSON.

Example:
  timeline> timeline.task.add {"name":"Tiles","duration":2,"dependencies":["task-1"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runShell(a.mcpServer(), cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
}

func runShell(server *mcp.MCPServer, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "Timeline shell started")
	fmt.Fprintln(out, "Type 'help' for available commands or 'quit' to exit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "timeline> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			fmt.Fprintln(out, "Goodbye!")
			break
		}
		if input == "help" {
			printShellHelp(out)
			continue
		}

		handleShellCommand(server, out, input)
	}
}

func printShellHelp(out io.Writer) {
	fmt.Fprintln(out, "Available commands:")
	fmt.Fprintln(out, "  help                           - Show this help")
	fmt.Fprintln(out, "  quit/exit                      - Exit the shell")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Project commands:")
	fmt.Fprintln(out, "    timeline.project.create       - Create a project (optionally from a template)")
	fmt.Fprintln(out, "    timeline.project.list         - List projects")
	fmt.Fprintln(out, "    timeline.project.current      - Get the current project")
	fmt.Fprintln(out, "    timeline.project.set_current  - Set the current project")
	fmt.Fprintln(out, "    timeline.project.rename       - Rename a project")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Task commands:")
	fmt.Fprintln(out, "    timeline.task.add             - Add a task")
	fmt.Fprintln(out, "    timeline.task.list            - List tasks")
	fmt.Fprintln(out, "    timeline.task.get             - Get a task by id, number or name")
	fmt.Fprintln(out, "    timeline.task.update          - Update a task")
	fmt.Fprintln(out, "    timeline.task.remove          - Remove a task")
	fmt.Fprintln(out, "    timeline.task.move            - Move a task in display order")
	fmt.Fprintln(out, "    timeline.task.search          - Search tasks")
	fmt.Fprintln(out, "    timeline.task.apply_template  - Append a template's tasks")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Schedule and simulation:")
	fmt.Fprintln(out, "    timeline.schedule             - Start days, total duration and critical path")
	fmt.Fprintln(out, "    timeline.sim.status           - Current day and task progress")
	fmt.Fprintln(out, "    timeline.sim.start            - Start the clock")
	fmt.Fprintln(out, "    timeline.sim.stop             - Stop the clock")
	fmt.Fprintln(out, "    timeline.sim.reset            - Back to day 0")
	fmt.Fprintln(out, "    timeline.sim.seek             - Jump to a day")
	fmt.Fprintln(out, "    timeline.summary              - Project summary and recommendations")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Example usage:")
	fmt.Fprintln(out, `  timeline.project.create {"name":"Kitchen","template":"renovation"}`)
	fmt.Fprintln(out, `  timeline.task.update {"task":"Painting","duration":15}`)
	fmt.Fprintln(out, `  timeline.sim.seek {"day":10}`)
}

func handleShellCommand(server *mcp.MCPServer, out io.Writer, input string) {
	parts := strings.SplitN(input, " ", 2)
	method := parts[0]
	var params json.RawMessage

	if len(parts) > 1 {
		paramStr := strings.TrimSpace(parts[1])
		if !json.Valid([]byte(paramStr)) {
			fmt.Fprintf(out, "Error: Invalid JSON parameters: %s\n", paramStr)
			return
		}
		params = json.RawMessage(paramStr)
	}

	result, err := server.HandleCommand(method, params)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "Error formatting result: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(output))
}
