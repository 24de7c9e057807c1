package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/storehours/internal/auth"
	"github.com/example/storehours/internal/domain/timing"
	"github.com/example/storehours/internal/hours"
	"github.com/example/storehours/internal/scheduler"
	"github.com/example/storehours/internal/sellers"
	"github.com/example/storehours/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API + status board scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			e, err := openEnv(ctx, migrateUp)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.cfg.LoadCookieKeys(); err != nil {
				return err
			}

			sellerRepo := sellers.NewRepo(e.db)
			svc := hours.Service{
				Sellers:  sellerRepo,
				Resolver: timing.New(e.cfg.ResolverOptions()...),
			}
			e.log.Info("resolver configured",
				zap.String("timezone", e.cfg.Location.String()),
				zap.Any("chain", svc.Resolver.Chain()))

			// scheduler
			s := &scheduler.Scheduler{
				Store:    sellerRepo,
				Hours:    svc,
				Interval: e.cfg.PollInterval,
				Log:      e.log.Named("scheduler"),
			}
			go func() { _ = s.Run(ctx) }()

			// web
			ws := &web.Server{
				Users:          auth.NewStore(e.db),
				Sessions:       auth.NewSessions(e.cfg.CookieHashKey, e.cfg.CookieBlockKey),
				Sellers:        sellerRepo,
				Hours:          svc,
				Log:            e.log.Named("http"),
				RateLimit:      e.cfg.RateLimit,
				AllowedOrigins: e.cfg.AllowedOrigins,
			}
			return web.Start(ctx, e.cfg.ListenAddr, ws.Routes(), e.log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
