package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/restaurant-reservation/internal/agent"
	"github.com/iliyamo/restaurant-reservation/internal/app"
	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/obs"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/tools"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when enabled, the reservation log consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	shutdownTracing, err := obs.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Stdout, os.Stdout)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	e := a.NewEcho()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return e.Shutdown(sctx)
	})
	if cfg.Queue.ConsumerEnabled {
		c := queue.NewAuditConsumer(cfg.Queue.URL(), cfg.Queue.Queue, cfg.Queue.LogFile, logger)
		g.Go(func() error {
			if err := c.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the reservation assistant on the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// Logs go to stderr so they do not interleave with the conversation.
			logger := app.NewLogger(cfg, cmd.ErrOrStderr())
			a, err := app.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Agent == nil {
				return errors.New("chat needs OPENAI_API_KEY or GITHUB_TOKEN")
			}
			return chatLoop(cmd.Context(), a.Agent, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// chatter is the part of *agent.Agent the terminal loop needs.
type chatter interface {
	Chat(ctx context.Context, sessionID, message string) agent.Turn
}

// chatLoop reads one message per line until EOF or "quit".
func chatLoop(ctx context.Context, bot chatter, in io.Reader, out io.Writer) error {
	sessionID := agent.NewSessionID()
	fmt.Fprintln(out, "FoodieSpot reservation assistant. Type 'quit' to exit.")
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		msg := strings.TrimSpace(sc.Text())
		switch strings.ToLower(msg) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}
		turn := bot.Chat(ctx, sessionID, msg)
		fmt.Fprintln(out, turn.Reply)
	}
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the function-calling tool definitions as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tools.Definitions())
		},
	}
}
