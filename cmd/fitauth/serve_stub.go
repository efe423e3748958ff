package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitlife/fitAuth/internal/config"
	"github.com/fitlife/fitAuth/localauth"
	"github.com/fitlife/fitAuth/password"
	"github.com/fitlife/fitAuth/remote/stub"
	"github.com/fitlife/fitAuth/token"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var stubOffline bool

var serveStubCmd = &cobra.Command{
	Use:   "serve-stub",
	Short: "Serves an in-memory FitLife auth service",
	Long: `Serves the FitLife auth HTTP contract under /api with the built-in demo
and admin accounts. Point FITAUTH_REMOTE_BASE_URL at it to exercise the remote
path. Usage:

	fitauth serve-stub
	fitauth serve-stub --offline
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile, configFile)
		if err != nil {
			return err
		}
		log, err := cfg.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		handler, srv, err := newStubHandler(cfg)
		if err != nil {
			return err
		}
		srv.SetAvailable(!stubOffline)

		httpSrv := &http.Server{
			Addr:              cfg.Stub.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("stub auth service listening",
				zap.String("addr", cfg.Stub.Addr),
				zap.Bool("available", !stubOffline),
			)
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("shutting down stub auth service")
		return httpSrv.Shutdown(shutdownCtx)
	},
}

// newStubHandler builds the stub service and mounts it under /api.
func newStubHandler(cfg *config.Config) (http.Handler, *stub.Server, error) {
	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessTTL:     cfg.Stub.TokenTTL,
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte(cfg.Stub.SigningKey),
		Issuer:        "fitlife-stub",
	})
	if err != nil {
		return nil, nil, err
	}
	hasher, err := password.NewArgon2(cfg.Auth.Password.Hash)
	if err != nil {
		return nil, nil, err
	}
	srv, err := stub.New(issuer, hasher, localauth.DefaultSeeds())
	if err != nil {
		return nil, nil, err
	}

	r := chi.NewRouter()
	r.Mount("/api", srv.Router())
	return r, srv, nil
}

func init() {
	rootCmd.AddCommand(serveStubCmd)

	serveStubCmd.Flags().BoolVar(&stubOffline, "offline", false, "answer every request with 503")
}
