package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"nexus/internal/app"
	"nexus/internal/broker"
	"nexus/internal/discovery"
	"nexus/internal/formatting"
)

// shellPrompt is the readline prompt shown for every input line.
const shellPrompt = "nexus» "

// shellHistoryName is the history file kept under the OS temp directory so
// input survives across shell sessions.
const shellHistoryName = ".nexus_shell_history"

// shellRunsLimit caps the history listing inside the shell when no explicit
// limit is given.
const shellRunsLimit = 20

// shellCmd defines the shell command structure.
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive nexus shell",
	Long: `Opens an interactive shell against the local catalog. Commands mirror the
one-shot CLI:

  servers [NAME]         list servers, or show one server's detail
  graph                  show discovered connections
  paths SOURCE TARGET    find routes between two servers
  discover REQUEST...    plan a pipeline without executing
  execute REQUEST...     plan and run a pipeline
  runs [LIMIT]           show pipeline run history
  status                 show catalog statistics
  help                   show this command list
  exit                   leave the shell

Command names and registered server names tab-complete; history persists
across sessions.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

// runShell bootstraps the application and hands control to the REPL loop.
func runShell(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	session := &shellSession{
		app: application,
		out: cmd.OutOrStdout(),
	}
	return session.run(commandContext(cmd))
}

// shellSession holds the state of one interactive shell.
type shellSession struct {
	app *app.Application
	out io.Writer
}

// run is the main REPL loop: read a line, dispatch it, render the result.
func (s *shellSession) run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            shellPrompt,
		HistoryFile:       filepath.Join(os.TempDir(), shellHistoryName),
		AutoComplete:      s.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(s.out, "nexus shell. Type 'help' for commands, TAB to complete, 'exit' to leave.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			// Ctrl+C clears the line but keeps the shell alive.
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		quit, err := s.dispatch(ctx, input)
		if err != nil {
			fmt.Fprintln(s.out, text.FgRed.Sprintf("Error: %v", err))
		}
		if quit {
			return nil
		}
	}
}

// dispatch executes one shell command line. It reports whether the shell
// should exit.
func (s *shellSession) dispatch(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	command, args := fields[0], fields[1:]

	switch command {
	case "exit", "quit":
		return true, nil

	case "help", "?":
		s.printHelp()
		return false, nil

	case "servers":
		return false, s.showServers(args)

	case "graph":
		return false, s.renderer().Connections(s.app.Components().Graph.SortedByConfidence())

	case "paths":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: paths SOURCE TARGET")
		}
		maxHops := s.app.Config().NexusConfig.Graph.MaxHops
		return false, s.renderer().Paths(s.app.Components().Graph.FindPaths(args[0], args[1], maxHops))

	case "discover":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: discover REQUEST...")
		}
		return false, s.discover(ctx, strings.Join(args, " "))

	case "execute":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: execute REQUEST...")
		}
		return false, s.execute(ctx, strings.Join(args, " "))

	case "runs":
		limit := shellRunsLimit
		if len(args) > 0 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed <= 0 {
				return false, fmt.Errorf("usage: runs [LIMIT]")
			}
			limit = parsed
		}
		history, err := s.app.Components().Store.PipelineHistory(ctx, limit)
		if err != nil {
			return false, err
		}
		return false, s.renderer().Runs(history)

	case "status":
		stats, err := s.app.Components().Store.Stats(ctx)
		if err != nil {
			return false, err
		}
		return false, s.renderer().Stats(stats)

	default:
		return false, fmt.Errorf("unknown command %q, type 'help' for the command list", command)
	}
}

// showServers renders the listing, or one server's detail when named.
func (s *shellSession) showServers(args []string) error {
	reg := s.app.Components().Registry
	if len(args) > 0 {
		record := reg.Get(args[0])
		if record == nil {
			return fmt.Errorf("server %q is not registered", args[0])
		}
		return s.renderer().ServerDetail(record)
	}
	return s.renderer().Servers(reg.Snapshot())
}

// discover plans a pipeline for the request and renders the plan.
func (s *shellSession) discover(ctx context.Context, request string) error {
	c := s.app.Components()
	if err := planningGuard(c); err != nil {
		return err
	}

	plan, err := discovery.New(c.Registry.Snapshot(), c.Graph.Edges(), c.Oracle).Discover(ctx, request)
	if err != nil {
		return err
	}
	return s.renderer().Plan(plan)
}

// execute plans and runs a pipeline for the request, then renders the run.
func (s *shellSession) execute(ctx context.Context, request string) error {
	c := s.app.Components()
	if err := planningGuard(c); err != nil {
		return err
	}

	execution := broker.PrepareExecution(
		broker.Request{Request: request},
		s.app.Config().NexusConfig.Execution.DefaultChannel,
	)

	plan, err := discovery.New(c.Registry.Snapshot(), c.Graph.Edges(), c.Oracle).Discover(ctx, execution.FullRequest)
	if err != nil {
		return err
	}
	run, err := c.Executor.Execute(ctx, execution.FullRequest, plan, execution.InitialInput, execution.Context)
	if err != nil {
		return err
	}
	return s.renderer().RunDetail(run)
}

// renderer builds a table renderer for the shell's output. The shell always
// renders tables; machine formats belong to the one-shot commands.
func (s *shellSession) renderer() *formatting.Renderer {
	return formatting.NewRenderer(s.out, formatting.FormatTable)
}

// completer builds the tab completion tree. Server names complete after the
// commands that take them.
func (s *shellSession) completer() *readline.PrefixCompleter {
	names := s.app.Components().Registry.Names()
	serverItems := make([]readline.PrefixCompleterInterface, len(names))
	for i, name := range names {
		serverItems[i] = readline.PcItem(name)
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("?"),
		readline.PcItem("servers", serverItems...),
		readline.PcItem("graph"),
		readline.PcItem("paths", serverItems...),
		readline.PcItem("discover"),
		readline.PcItem("execute"),
		readline.PcItem("runs"),
		readline.PcItem("status"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

// printHelp lists the shell commands.
func (s *shellSession) printHelp() {
	fmt.Fprint(s.out, `Commands:
  servers [NAME]         list servers, or show one server's detail
  graph                  show discovered connections
  paths SOURCE TARGET    find routes between two servers
  discover REQUEST...    plan a pipeline without executing
  execute REQUEST...     plan and run a pipeline
  runs [LIMIT]           show pipeline run history
  status                 show catalog statistics
  help                   show this command list
  exit                   leave the shell
`)
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
