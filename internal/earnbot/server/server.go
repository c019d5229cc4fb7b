package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tmatveev/earnbot/internal/earnbot/bot"
	"github.com/tmatveev/earnbot/internal/earnbot/config"
	"github.com/tmatveev/earnbot/internal/earnbot/handlers"
	"github.com/tmatveev/earnbot/internal/earnbot/middleware"
	"github.com/tmatveev/earnbot/internal/earnbot/repository"
	"github.com/tmatveev/earnbot/internal/earnbot/service"
	"github.com/tmatveev/earnbot/internal/earnbot/texts"
)

// Server ties the bot, the background notifier and the ops HTTP API
// together
type Server struct {
	cfg        *config.Config
	log        *zap.Logger
	repo       repository.Repository
	ledger     *service.LedgerService
	tgBot      *bot.Bot
	notifier   *service.WithdrawalNotifier
	handler    *handlers.Handler
	httpServer *http.Server
}

// NewServer wires all components. The store connection itself is
// established in Run.
func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	catalog, err := texts.NewCatalog(cfg.DefaultLanguage, log)
	if err != nil {
		return nil, err
	}

	repo := repository.NewPostgresRepository()
	links := service.NewShortlinkClient(cfg.Shortlink.BaseURL, cfg.Shortlink.APIToken)

	ledger := service.NewLedgerService(repo, links, catalog,
		service.Rewards{
			Shortlink:   config.Decimal(cfg.Rewards.Shortlink),
			Referral:    config.Decimal(cfg.Rewards.Referral),
			ChannelJoin: config.Decimal(cfg.Rewards.ChannelJoin),
		},
		service.WithdrawPolicy{
			MinPoints:      config.Decimal(cfg.Withdraw.MinPoints),
			PointsPerRupee: config.Decimal(cfg.Withdraw.PointsPerRupee),
		},
		log,
	)

	tgBot, err := bot.NewBot(cfg.Bot, cfg.Shortlink.TargetURL, ledger, catalog, log)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		ledger:   ledger,
		tgBot:    tgBot,
		notifier: service.NewWithdrawalNotifier(repo, tgBot, log),
		handler: handlers.NewHandler(ledger, repo,
			cfg.Server.JWTSecret, cfg.Server.AdminLogin, cfg.Server.AdminPasswordHash, log),
	}, nil
}

// Run connects the store, starts the bot and the notifier, and serves the
// HTTP API. A store connection failure is returned before anything starts
// handling events.
func (s *Server) Run() error {
	if err := s.repo.InitDB(s.cfg.DatabaseURI); err != nil {
		return err
	}

	if err := s.tgBot.Start(); err != nil {
		return err
	}
	s.notifier.Start()

	r := chi.NewRouter()

	// Basic middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handler.Healthz)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", s.handler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(&middleware.JWTConfig{
				SecretKey: s.cfg.Server.JWTSecret,
			}))

			r.Get("/withdrawals", s.handler.ListWithdrawals)
			r.Get("/withdrawals/{id}", s.handler.GetWithdrawal)
			r.Post("/withdrawals/{id}/status", s.handler.UpdateWithdrawalStatus)
		})
	})

	s.httpServer = &http.Server{
		Addr:    s.cfg.Server.RunAddress,
		Handler: r,
	}

	s.log.Info("serving ops API", zap.String("addr", s.cfg.Server.RunAddress))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server, the bot and the notifier
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	if s.tgBot != nil {
		if err := s.tgBot.Stop(); err != nil {
			s.log.Warn("stopping bot failed", zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.Stop()
	}

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			return err
		}
	}

	return nil
}
