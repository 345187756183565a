package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muhammadolammi/mockinterview/internal/config"
	"github.com/muhammadolammi/mockinterview/internal/turn"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "mockinterview",
	Short: "Mock interview turn service and practice console",
	Long: `mockinterview runs an AI mock interview: it serves the turn service that
generates questions and scores answers, and drives a practice session from the terminal.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "mockinterview", version)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview turn service backed by Gemini",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddress = addr
		}
		if err := cfg.RequireGoogle(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return serve(ctx, cfg)
	},
}

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run a mock interview in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		opts, err := practiceOptionsFromFlags(cmd, cfg)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return practice(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [session-id]",
	Short: "Print session updates published by practice sessions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.RabbitMQURL == "" {
			return fmt.Errorf("%w: empty RABBITMQ_URL in env", config.ErrMissing)
		}
		sessionID := ""
		if len(args) == 1 {
			sessionID = args[0]
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return watch(ctx, cfg.RabbitMQURL, sessionID, cmd.OutOrStdout())
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default HTTP_ADDRESS or :8080)")

	addPracticeFlags(practiceCmd)

	rootCmd.AddCommand(versionCmd, serveCmd, practiceCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	interviewer, err := GetAgent(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
	if err != nil {
		return err
	}
	model, err := newAgentModel(interviewer)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           turn.NewRouter(turn.NewHandler(model)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down server: %v", err)
		}
	}()

	log.Printf("turn service listening on %s (model %s)", cfg.HTTPAddress, cfg.GeminiModel)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
