package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tmanhococ/V2-Odoo-Agent/agent"
	"github.com/tmanhococ/V2-Odoo-Agent/config"
	"github.com/tmanhococ/V2-Odoo-Agent/odoo"
	"github.com/tmanhococ/V2-Odoo-Agent/server"
	"github.com/tmanhococ/V2-Odoo-Agent/session"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
)

const version = "1.0.0"

func main() {
	transportFlag := flag.String("transport", "stdio", "Protocol transport: 'stdio' or 'http'")
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	dsnFlag := flag.String("dsn", "", "Odoo Postgres DSN (overrides config)")
	chatFlag := flag.Bool("chat", false, "Run an interactive chat instead of serving")
	confirmFlag := flag.String("confirm", "prompt", "Confirmation policy for mutating tools: 'prompt', 'auto' or 'deny'")
	conversationFlag := flag.String("c", "", "Conversation name to create or resume (chat mode)")
	checkFlag := flag.Bool("check", false, "Test the connection to the protocol server and exit")
	verboseFlag := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.HTTPAddr = *addrFlag
	}
	if *dsnFlag != "" {
		cfg.OdooDSN = *dsnFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *checkFlag {
		if err := config.TestConnection(ctx, cfg.MCPServer.URL); err != nil {
			fmt.Fprintf(os.Stderr, "Connection test failed: %+v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Connection to %s OK\n", cfg.MCPServer.URL)
		return
	}

	if *chatFlag {
		if err := runChat(ctx, cfg, *conversationFlag, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, *transportFlag, *confirmFlag, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

// serve runs the protocol server on the chosen transport until interrupted.
func serve(ctx context.Context, cfg *config.Config, transport, confirmMode string, logger *slog.Logger) error {
	store, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := tools.NewRegistry()
	if err := tools.RegisterCRM(registry, store); err != nil {
		return err
	}
	registry.Freeze()

	confirmer, err := buildConfirmer(confirmMode)
	if err != nil {
		return err
	}
	gate := tools.NewGate(registry, confirmer, logger)
	srv := server.New(registry, gate, version, logger)

	switch transport {
	case "stdio":
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	case "http":
		return srv.ListenAndServe(ctx, cfg.HTTPAddr)
	}
	return fmt.Errorf("unknown transport %q (want 'stdio' or 'http')", transport)
}

// runChat drives the agent from the terminal, spawning the protocol server
// as a stdio subprocess unless configuration points elsewhere.
func runChat(ctx context.Context, cfg *config.Config, conversationName string, logger *slog.Logger) error {
	if cfg.MCPServer.Command == "" {
		// Default to serving from this same binary.
		exe, err := os.Executable()
		if err != nil {
			return err
		}
		cfg.MCPServer.Command = exe
		cfg.MCPServer.Args = []string{"-transport", "stdio", "-confirm", "prompt"}
		if cfg.OdooDSN != "" {
			cfg.MCPServer.Args = append(cfg.MCPServer.Args, "-dsn", cfg.OdooDSN)
		}
	}

	profiles, err := config.OpenStore(config.DefaultStorePath())
	if err != nil {
		return err
	}
	creds := credentialChain(profiles)

	if conversationName == "" {
		conversationName = time.Now().Format("20060102-150405")
	}
	conv, err := session.Load(conversationName)
	if err != nil {
		conv, err = session.New(conversationName)
		if err != nil {
			return err
		}
		fmt.Printf("Starting new conversation: %s\n", conversationName)
	} else {
		fmt.Printf("Resuming conversation: %s\n", conversationName)
	}

	bridge := agent.NewBridge(cfg, creds, conv, logger)

	fmt.Println("Chat with OdooBot. Type 'exit' to quit, 'clear' to forget the conversation, 'log' to show it.")
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fmt.Print("You: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit", line == "quit":
			return nil
		case line == "clear":
			conv.Clear()
			if err := conv.Save(); err != nil {
				logger.Warn("failed to save conversation", "error", err)
			}
			fmt.Println("Conversation cleared.")
			continue
		case line == "log":
			fmt.Print(conv.Log())
			continue
		}

		fmt.Printf("OdooBot: %s\n", bridge.Send(line))
	}
}

// credentialChain resolves API keys from the environment first, then from
// the active profile, so an exported key always overrides a stored one.
func credentialChain(profiles config.Credentials) config.Chain {
	return config.Chain{config.EnvCredentials{}, profiles}
}

// openStore picks the Postgres store when a DSN is configured and the
// in-memory store otherwise. The cleanup closes whatever was opened.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (odoo.Store, func(), error) {
	if cfg.OdooDSN != "" {
		pg, err := odoo.NewPostgresStore(cfg.OdooDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		logger.Info("using Odoo Postgres store")
		return pg, func() { pg.Close() }, nil
	}

	logger.Info("no Odoo DSN configured, using in-memory store")
	return odoo.NewMemoryStore(), func() {}, nil
}

// buildConfirmer maps the -confirm flag to a gate policy. The prompt
// policy reads from the controlling terminal, so it works even when stdin
// carries the protocol stream.
func buildConfirmer(mode string) (tools.Confirmer, error) {
	switch mode {
	case "prompt":
		return terminalConfirmer{}, nil
	case "auto":
		return tools.AutoApprove{}, nil
	case "deny":
		return tools.AutoDeny{}, nil
	}
	return nil, fmt.Errorf("unknown confirmation policy %q (want 'prompt', 'auto' or 'deny')", mode)
}

// terminalConfirmer asks on /dev/tty. Without a terminal the gate reports
// the confirmation failure as text and the mutation does not run.
type terminalConfirmer struct{}

func (terminalConfirmer) Confirm(ctx context.Context, prompt string) (string, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("no terminal available for confirmation: %w", err)
	}
	defer tty.Close()

	if _, err := fmt.Fprintf(tty, "%s [yes/no]: ", prompt); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(tty).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
