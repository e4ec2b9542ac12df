package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowpulse/flowpulse/internal/ingest"
	"github.com/flowpulse/flowpulse/internal/util"
)

var (
	serveAddr string
	jwtSecret string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interval ingest endpoint",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080",
		"Listen address")
	serveCmd.Flags().StringVar(&jwtSecret, "jwt-secret", "",
		"HS256 signing key for bearer credentials (defaults to $FLOWPULSE_JWT_SECRET)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secret := jwtSecret
	if secret == "" {
		secret = os.Getenv("FLOWPULSE_JWT_SECRET")
	}
	if secret == "" {
		return errors.New("a JWT secret is required (--jwt-secret or $FLOWPULSE_JWT_SECRET)")
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			util.LogErrorf("close store: %v", err)
		}
	}()

	server := &http.Server{
		Addr:              serveAddr,
		Handler:           ingest.NewServer(st, []byte(secret)).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		util.LogInfof("ingest endpoint listening on %s", serveAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ingest server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
