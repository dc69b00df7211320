package handlers

import (
	"net/http"

	"settleup/internal/config"
	"settleup/internal/db"
	"settleup/internal/middleware"
	"settleup/internal/ws"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	txRunner     db.TxRunner
	cfg          config.Config
	users        UserStore
	memberships  MembershipChecker
	groups       GroupService
	transactions TransactionService
	hub          *ws.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, memberships MembershipChecker, groups GroupService, transactions TransactionService, hub *ws.Hub) *Handler {
	return &Handler{
		txRunner:     txRunner,
		cfg:          cfg,
		users:        users,
		memberships:  memberships,
		groups:       groups,
		transactions: transactions,
		hub:          hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/search", h.SearchUsers)
	})
	router.Route("/groups", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Post("/", h.CreateGroup)
		r.Get("/", h.ListGroups)
		r.Post("/join", h.JoinGroup)
		r.Route("/{groupID}", func(r chi.Router) {
			r.Get("/", h.GetGroup)
			r.Post("/join-code", h.GenerateJoinCode)
			r.Post("/exit", h.ExitGroup)
			r.Delete("/members/{userID}", h.RemoveMember)
			r.Get("/logs", h.ListLogs)
			r.Get("/past-members", h.ListPastMembers)
			r.Get("/self-check", h.SelfCheck)
			r.Post("/transactions", h.CreateTransaction)
			r.Get("/transactions", h.ListTransactions)
			r.Put("/transactions/{transactionID}", h.UpdateTransaction)
			r.Delete("/transactions/{transactionID}", h.DeleteTransaction)
			r.Get("/transactions/{transactionID}/events", h.ListTransactionEvents)
		})
	})
	router.Get("/ws/groups/{groupID}", h.WSGroup)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
