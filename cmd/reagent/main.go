package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/reagent-dev/reagent/internal/agent"
	"github.com/reagent-dev/reagent/internal/config"
	"github.com/reagent-dev/reagent/internal/llm"
	"github.com/reagent-dev/reagent/internal/llmlog"
	"github.com/reagent-dev/reagent/internal/logger"
	"github.com/reagent-dev/reagent/internal/tools"
)

var (
	thoughtStyle     = lipgloss.NewStyle().Faint(true).Italic(true)
	actionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	observationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	answerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	summaryStyle     = lipgloss.NewStyle().Faint(true)
)

var (
	flagConfig   string
	flagWorkdir  string
	flagModel    string
	flagProvider string
	flagLogLevel string
	flagQuiet    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reagent",
		Short:         "Autonomous filesystem task agent",
		Long:          "reagent runs filesystem tasks through an LLM-driven action loop with repetition detection, fallback substitution and a dynamic iteration budget.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path (default: search standard locations)")
	root.PersistentFlags().StringVarP(&flagWorkdir, "workdir", "w", "", "working directory for filesystem actions (default: current directory)")
	root.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "override the configured model")
	root.PersistentFlags().StringVar(&flagProvider, "provider", "", "override the configured provider (openai or ollama)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "print only the final answer and summary")

	root.AddCommand(newRunCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newToolsCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run \"task description\"",
		Short: "Execute a single task and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" {
				return errors.New("task must not be empty")
			}

			ctrl, cleanup, err := buildController()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := ctrl.Run(ctx, task)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					fmt.Fprintln(os.Stderr, warnStyle.Render("Interrupted."))
					return nil
				}
				return err
			}

			printResult(result)
			if result.Outcome != agent.OutcomeSuccess {
				os.Exit(2)
			}
			return nil
		},
	}
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive session with shared conversation memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, cleanup, err := buildController()
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Println("reagent chat. Type a task, /clear to reset the conversation, /quit to exit.")

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
					continue
				case line == "/quit" || line == "/exit":
					return nil
				case line == "/clear":
					ctrl.Memory().Clear()
					fmt.Println("Conversation cleared.")
					continue
				case line == "/history":
					fmt.Println(ctrl.Memory().Summary())
					continue
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				result, err := ctrl.Run(ctx, line)
				stop()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						fmt.Println(warnStyle.Render("Interrupted."))
						continue
					}
					fmt.Println(failStyle.Render("Error: " + err.Error()))
					continue
				}
				printResult(result)
			}
		},
	}
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available filesystem tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workdir, err := resolveWorkdir()
			if err != nil {
				return err
			}
			registry := tools.NewRegistry(workdir)
			for _, tool := range registry.List() {
				fmt.Printf("%s\n    %s\n", actionStyle.Render(tool.Name()), tool.Description())
			}
			return nil
		},
	}
}

// buildController loads configuration, initializes logging, and wires the
// oracle client, tool registry and control loop together. The returned
// cleanup closes the log sinks.
func buildController() (*agent.Controller, func(), error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagModel != "" {
		cfg.LLM.DefaultModel = flagModel
	}
	if flagProvider != "" {
		cfg.LLM.Provider = flagProvider
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}

	if err := logger.Init(logger.ParseLevel(cfg.Logging.Level), cfg.Logging.LogPath); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	cleanup := func() {
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}

	workdir, err := resolveWorkdir()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	oracle, err := llm.NewClient(&cfg.LLM, cfg.Agent.MaxTransportRetries)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	transcript, err := llmlog.New(llmlog.Options{
		Dir:         cfg.Logging.TranscriptDir,
		File:        cfg.Logging.TranscriptFile,
		MaxFileSize: cfg.Logging.MaxFileSize,
		MaxFiles:    cfg.Logging.MaxFiles,
		Enabled:     cfg.Logging.TranscriptsOn,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize transcript log: %w", err)
	}

	logger.Info("reagent starting: provider=%s model=%s workdir=%s",
		cfg.LLM.Provider, oracle.GetModelName(), workdir)

	ctrl := agent.NewController(
		oracle,
		tools.NewRegistry(workdir),
		agentConfigFrom(cfg),
		agent.WithTranscript(transcript),
		agent.WithEventFunc(renderEvent),
	)
	return ctrl, cleanup, nil
}

func agentConfigFrom(cfg *config.Config) agent.Config {
	ac := agent.DefaultConfig()
	ac.BaseBudget = cfg.Agent.MaxIterations
	ac.MaxBudget = cfg.Agent.MaxBudget
	ac.StuckThreshold = cfg.Agent.StuckThreshold
	ac.IdenticalThreshold = cfg.Agent.IdenticalThreshold
	ac.MaxTransientRetries = cfg.Agent.MaxTransientRetries
	return ac
}

func resolveWorkdir() (string, error) {
	if flagWorkdir != "" {
		info, err := os.Stat(flagWorkdir)
		if err != nil {
			return "", fmt.Errorf("invalid workdir: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("workdir %s is not a directory", flagWorkdir)
		}
		return flagWorkdir, nil
	}
	return os.Getwd()
}

func renderEvent(kind, message string) {
	if flagQuiet {
		return
	}
	switch kind {
	case "thought":
		fmt.Println(thoughtStyle.Render("thought  " + message))
	case "action":
		fmt.Println(actionStyle.Render("action   " + message))
	case "observation":
		fmt.Println(observationStyle.Render(indent(message)))
	case "loop", "clarification":
		fmt.Println(warnStyle.Render("notice   " + message))
	case "fallback":
		fmt.Println(warnStyle.Render("fallback " + message))
	}
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "         " + line
	}
	return strings.Join(lines, "\n")
}

func printResult(result *agent.FinalResult) {
	fmt.Println()
	if result.Outcome == agent.OutcomeSuccess {
		if result.Answer != "" {
			fmt.Println(answerStyle.Render(result.Answer))
		} else {
			fmt.Println(answerStyle.Render("Task completed."))
		}
	} else {
		fmt.Println(failStyle.Render(strings.ToUpper(result.Outcome.String())))
	}
	fmt.Println(summaryStyle.Render(result.Summary))
}
