package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rmkendall/croft/agent"
	"github.com/rmkendall/croft/agent/acp"
	"github.com/rmkendall/croft/agent/terminal"
	"github.com/rmkendall/croft/checkpoint"
	"github.com/rmkendall/croft/config"
	"github.com/rmkendall/croft/llm"
	"github.com/rmkendall/croft/logging"
	"github.com/rmkendall/croft/session"
	"github.com/rmkendall/croft/tools"
	"github.com/rmkendall/croft/workspace"
)

func main() {
	modeFlag := flag.String("m", "", "Execution mode: 'auto' or 'prompt'")
	sessionFlag := flag.String("s", "", "Session name to create or use")
	toolsetFlag := flag.String("t", "", "Toolset to use (defaults to 'default')")
	resumeFlag := flag.String("r", "", "Resume a session by name")
	toolVerbosityFlag := flag.String("tool-verbosity", "", "Tool verbosity level: 'none', 'info', or 'all'")
	acpFlag := flag.Bool("acp", false, "Enable Agent Client Protocol support")
	restoreFlag := flag.Bool("restore", false, "Restore the session from its latest checkpoint")
	logLevelFlag := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	flag.Parse()

	// In ACP mode stdout belongs to the protocol, so logs go to stderr
	// either way.
	logger := logging.New(*logLevelFlag, os.Stderr)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}

	var sess *session.Session
	sessionName := *sessionFlag

	if *resumeFlag != "" {
		sessionName = *resumeFlag
		sess, err = session.Load(sessionName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resuming session '%s': %+v\n", sessionName, err)
			os.Exit(1)
		}
		fmt.Printf("Resuming session: %s\n", sessionName)
		// Session-stored settings apply unless overridden on the command line
		if *modeFlag == "" && sess.Mode != "" {
			*modeFlag = sess.Mode
		}
		if *toolsetFlag == "" && sess.Toolset != "" {
			*toolsetFlag = sess.Toolset
		}
		if *toolVerbosityFlag == "" && sess.ToolVerbosity != "" {
			*toolVerbosityFlag = sess.ToolVerbosity
		}
	} else {
		if sessionName == "" {
			sessionName = defaultSessionName()
		}
		sess, err = session.New(sessionName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating session '%s': %+v\n", sessionName, err)
			os.Exit(1)
		}
		fmt.Printf("Starting new session: %s\n", sessionName)
	}

	if *modeFlag == "" {
		*modeFlag = "prompt"
	}
	if *toolsetFlag == "" {
		*toolsetFlag = "default"
	}
	if *toolVerbosityFlag == "" {
		*toolVerbosityFlag = "none"
	}

	sess.Mode = *modeFlag
	sess.Toolset = *toolsetFlag
	sess.ToolVerbosity = *toolVerbosityFlag
	sess.Acp = *acpFlag
	if err := sess.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving session '%s': %+v\n", sessionName, err)
		os.Exit(1)
	}

	var opMode agent.Mode
	switch *modeFlag {
	case "auto":
		opMode = agent.ModeAuto
	case "prompt":
		opMode = agent.ModePrompt
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode '%s'. Must be 'auto' or 'prompt'.\n", *modeFlag)
		os.Exit(1)
	}

	var verbosity agent.ToolVerbosity
	switch *toolVerbosityFlag {
	case "none":
		verbosity = agent.ToolVerbosityNone
	case "info":
		verbosity = agent.ToolVerbosityInfo
	case "all":
		verbosity = agent.ToolVerbosityAll
	default:
		fmt.Fprintf(os.Stderr, "Invalid tool verbosity '%s'. Must be 'none', 'info', or 'all'.\n", *toolVerbosityFlag)
		os.Exit(1)
	}

	ctx := context.Background()

	client, err := newClient(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s client: %+v\n", cfg.LLMClient, err)
		os.Exit(1)
	}

	ws, err := workspace.New(cfg.Sandbox)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening sandbox '%s': %+v\n", cfg.Sandbox, err)
		os.Exit(1)
	}

	registry := tools.NewRegistry(cfg, ws, logger)
	defer registry.Close()
	engine := tools.NewEngine(cfg, registry, ws, logger)

	store, err := checkpoint.NewFileStore(sessionName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening checkpoint store: %+v\n", err)
		os.Exit(1)
	}

	ag, err := agent.New(agent.Options{
		Config:          cfg,
		Session:         sess,
		Toolset:         *toolsetFlag,
		Mode:            opMode,
		Verbosity:       verbosity,
		Client:          client,
		Registry:        registry,
		Engine:          engine,
		CheckpointStore: store,
		Logger:          logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing agent: %+v\n", err)
		os.Exit(1)
	}

	if *restoreFlag {
		if err := ag.RestoreLatest(); err != nil {
			fmt.Fprintf(os.Stderr, "Error restoring checkpoint: %+v\n", err)
			os.Exit(1)
		}
	}

	if *acpFlag {
		in := bufio.NewReader(os.Stdin)
		out := bufio.NewWriter(os.Stdout)
		if err := acp.Run(ctx, ag, in, out, logger); err != nil {
			fmt.Fprintf(os.Stderr, "ACP mode failed: %+v\n", err)
			os.Exit(1)
		}
	} else {
		initialPrompt := strings.Join(flag.Args(), " ")

		fmt.Println("Croft is ready. Type your prompt.")
		term := terminal.New(ag)
		if err := term.Run(ctx, initialPrompt); err != nil {
			fmt.Fprintf(os.Stderr, "Agent stopped with an error: %+v\n", err)
			os.Exit(1)
		}
	}
}

func newClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	switch cfg.LLMClient {
	case "gemini":
		return llm.NewGeminiClient(ctx, cfg.Model)
	case "openai":
		return llm.NewOpenAIClient(ctx, cfg.Model)
	case "bedrock":
		return llm.NewBedrockClient(ctx, cfg.Model)
	case "anthropic":
		return llm.NewAnthropicClient(ctx, cfg.Model)
	default:
		return &llm.MockClient{}, nil
	}
}

func defaultSessionName() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "croft"
	}
	dirName := filepath.Base(wd)
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return fmt.Sprintf("%s_%s", dirName, timestamp)
}
