// File: cmd/aicheck/main.go
// Command aicheck runs a single wrapped AI function call against the configured backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-subportal/internal/config"
	"github.com/iyunix/go-subportal/internal/services"
	"github.com/iyunix/go-subportal/internal/services/ai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd(newRemote).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// remoteFactory builds the backend collaborator; tests swap it for a stub.
type remoteFactory func(cfg *ai.Config) (ai.FunctionInvoker, error)

func newRemote(cfg *ai.Config) (ai.FunctionInvoker, error) {
	return ai.NewFunctionInvoker(cfg, &http.Client{})
}

func rootCmd(factory remoteFactory) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "aicheck",
		Short:         "Exercise the portal's AI function backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(invokeCmd(factory, &logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "functions",
		Short: "List the functions the openai backend can serve",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range ai.NewOpenAIFunctionInvoker(ai.DefaultConfig()).Functions() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	})
	return cmd
}

func invokeCmd(factory remoteFactory, logLevel *string) *cobra.Command {
	var (
		payload     string
		maxRetries  int
		baseDelayMs int
		timeoutMs   int
	)

	cmd := &cobra.Command{
		Use:   "invoke <function>",
		Short: "Invoke a function with retries and a per-attempt timeout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(payload)) {
				return fmt.Errorf("--payload is not valid JSON")
			}

			cfg := config.Load()
			aiConfig, err := cfg.AIConfig()
			if err != nil {
				return err
			}
			remote, err := factory(aiConfig)
			if err != nil {
				return err
			}

			logger := services.NewDevelopmentLogger("aicheck", services.ParseLevel(*logLevel))
			defer func() { _ = logger.Sync() }()

			opts := ai.InvokeOptions{
				OnRetry: func(attempt int, delay time.Duration, err error) {
					fmt.Fprintf(cmd.ErrOrStderr(), "attempt %d failed: %s (retrying in %s)\n", attempt, ai.UserMessage(err), delay)
				},
			}
			flags := cmd.Flags()
			if flags.Changed("max-retries") {
				opts.MaxRetries = &maxRetries
			}
			if flags.Changed("base-delay-ms") {
				opts.BaseDelayMs = &baseDelayMs
			}
			if flags.Changed("timeout-ms") {
				opts.TimeoutMs = &timeoutMs
			}

			invoker := ai.NewInvoker("aicheck", remote, ai.NewController(logger), ai.NewLogNotifier(logger), aiConfig.DefaultOptions(), logger)
			result, err := invoker.Invoke(cmd.Context(), args[0], json.RawMessage(payload), opts)
			if err != nil {
				return fmt.Errorf("%s", ai.UserMessage(err))
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "{}", "JSON payload sent to the function")
	cmd.Flags().IntVar(&maxRetries, "max-retries", ai.DefaultMaxRetries, "Total attempts")
	cmd.Flags().IntVar(&baseDelayMs, "base-delay-ms", int(ai.DefaultBaseDelay/time.Millisecond), "Delay before the second attempt; doubles after each failure")
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", int(ai.DefaultTimeout/time.Millisecond), "Per-attempt timeout")
	return cmd
}

func printResult(w io.Writer, result json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(result, &v); err != nil {
		_, err = fmt.Fprintln(w, string(result))
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
