package handlers

import (
	"context"
	"net/http"
	"time"

	"vidtrans/internal/config"
	"vidtrans/internal/db"
	"vidtrans/internal/middleware"
	"vidtrans/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	database   Pinger
	txRunner   db.TxRunner
	cfg        config.Config
	users      UserStore
	sessions   SessionStore
	projects   ProjectStore
	tasks      TaskReader
	ledger     LedgerStore
	ledgerSvc  LedgerService
	projectSvc ProjectService
	dispatcher Dispatcher
	recharge   RechargeService
	hub        *websocket.Hub
}

func New(database Pinger, txRunner db.TxRunner, cfg config.Config, users UserStore, sessions SessionStore, projects ProjectStore, tasks TaskReader, ledger LedgerStore, ledgerSvc LedgerService, projectSvc ProjectService, dispatcher Dispatcher, recharge RechargeService, hub *websocket.Hub) *Handler {
	return &Handler{
		database:   database,
		txRunner:   txRunner,
		cfg:        cfg,
		users:      users,
		sessions:   sessions,
		projects:   projects,
		tasks:      tasks,
		ledger:     ledger,
		ledgerSvc:  ledgerSvc,
		projectSvc: projectSvc,
		dispatcher: dispatcher,
		recharge:   recharge,
		hub:        hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.Route("/projects", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Put("/{id}", h.UpdateProject)
		r.Delete("/{id}", h.DeleteProject)
		r.Get("/{id}/status", h.ProjectStatus)
		r.Get("/{id}/preview", h.ProjectPreview)
	})

	router.Route("/tasks", func(r chi.Router) {
		r.Use(middleware.WorkerAuth(h.cfg.WorkerToken))
		r.Get("/poll", h.PollTask)
		r.Post("/{id}/complete", h.CompleteTask)
	})

	router.Route("/recharge", func(r chi.Router) {
		r.With(middleware.Auth(h.cfg.JWTSecret)).Post("/", h.Recharge)
		r.Get("/rate", h.RechargeRate)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/orders/{orderNo}", h.OrderStatus)
		r.Post("/callback/alipay", h.AlipayCallback)
		r.Post("/callback/wechat", h.WechatCallback)
	})

	router.Route("/transactions", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/", h.ListTransactions)
		r.Get("/statistics", h.TransactionStatistics)
	})
	router.Get("/ws/updates", h.WSUpdates)

	router.Get("/health", h.Health)
	return router
}

// Health reports readiness. A handler that cannot reach the database cannot
// serve anything, so the probe pings it instead of answering statically.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.database.PingContext(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
