package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	commonHttp "github.com/baely/bezos/internal/common/http"
	"github.com/baely/bezos/internal/config"
	"github.com/baely/bezos/internal/merchant"
	"github.com/baely/bezos/internal/merchant/database"
	"github.com/baely/bezos/internal/notify"
	"github.com/baely/bezos/internal/server"
	"github.com/baely/bezos/internal/transaction"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and the transaction monitor",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize merchant store
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize services
	monitor := transaction.NewMonitorFromConfig(cfg.Feed, log)
	merchants := merchant.NewService(db, log)

	if cfg.Notify.WebhookURL != "" {
		hook := notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout, log)
		go hook.Run(ctx, monitor.Subscribe())
	}

	// Register domain handlers
	s := server.NewWithConfig(&server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          log,
	})
	api := NewAPI(monitor, merchants, log)
	for _, host := range cfg.Server.Hosts {
		s.RegisterDomain(host, api)
	}

	go monitor.Start(ctx)

	if err := s.Run(ctx); err != nil {
		log.Error("Server failed", "error", err)
		return err
	}
	log.Info("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*database.Client, error) {
	dsn := cfg.DB.DSN
	// the default sqlite file name means nothing to postgres
	if cfg.DB.Driver == database.DriverPostgres && (dsn == "" || dsn == config.DefaultConfig().DB.DSN) {
		dsn = database.PostgresDSN(cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return database.NewClient(connectCtx, cfg.DB.Driver, dsn)
}

// health is the body of GET /healthz
type health struct {
	Status      string             `json:"status"`
	Monitor     transaction.Status `json:"monitor"`
	Subscribers int                `json:"subscribers"`
}

// NewAPI assembles the public routes on top of the standard router
func NewAPI(monitor *transaction.Monitor, merchants *merchant.Service, log *slog.Logger) chi.Router {
	r := commonHttp.NewRouter()

	r.Mount("/transactions", transaction.NewHandler(monitor, log).Chi())
	r.Mount("/merchants", merchant.NewHandler(merchants, log).Chi())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		commonHttp.Success(w, health{
			Status:      "ok",
			Monitor:     monitor.Status(),
			Subscribers: monitor.Subscribers(),
		})
	})

	return r
}
