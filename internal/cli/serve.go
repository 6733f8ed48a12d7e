package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-listing-credits/internal/docs"
	httpapi "github.com/tbourn/go-listing-credits/internal/http"
	"github.com/tbourn/go-listing-credits/internal/jobs"
	"github.com/tbourn/go-listing-credits/internal/observability"
	"github.com/tbourn/go-listing-credits/internal/realtime"
	"github.com/tbourn/go-listing-credits/internal/sysutil"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var instance string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts, sysutil.InstanceID(instance), nil)
		},
	}
	cmd.Flags().StringVar(&instance, "instance", "", "instance id for traces and invalidation messages (default hostname)")
	return cmd
}

// serve runs until ctx is done. ready, when non-nil, receives the bound
// address once the listener is up.
func serve(ctx context.Context, opts *rootOptions, instance string, ready chan<- string) error {
	cfg := opts.cfg
	logger := log.With().Str("instance", instance).Logger()
	ctx = logger.WithContext(ctx)

	shutdownOTel, err := observability.Setup(ctx, cfg.OTEL, observability.Build{Version: Version, Instance: instance})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()

	if cfg.Redis.URL != "" {
		ps, err := realtime.NewRedisPubSub(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer ps.Close()
		br := realtime.NewBridge(ps, a.cache, cfg.Redis.Channel, instance)
		go func() {
			if err := br.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("invalidation bridge stopped")
			}
		}()
	}

	runner, err := jobs.New(a.db, a.eng.Stats, cfg.Jobs, cfg.Credits.Location)
	if err != nil {
		return err
	}
	runner.Start(bgCtx)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := runner.Stop(sctx); err != nil {
			logger.Warn().Err(err).Msg("jobs did not stop in time")
		}
	}()

	gin.SetMode(cfg.GinMode)
	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = Version
	r := gin.New()
	httpapi.RegisterRoutes(r, a.db, a.eng, cfg)

	srv := &http.Server{
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	ln, err := net.Listen("tcp", net.JoinHostPort("", cfg.Port))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("http server listening")
		errCh <- srv.Serve(ln)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	cancelBg()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	return nil
}
