package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errInvocationFailed = errors.New("invocation failed")

// runCmd runs one invocation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the instance and bucket passes once",
	Long: `Run both passes once and print the response as JSON.

The command exits non-zero when the response status code is not 200.`,
	Example: `  warden run                          # Act on the current hour
  warden run --dry-run                # Report decisions only
  warden run --config warden.yaml     # Use a config file`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown failed")
		}
	}()

	resp := a.handler.Handle(ctx)

	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if resp.StatusCode != http.StatusOK {
		return errInvocationFailed
	}
	return nil
}
