package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settleup/internal/config"
	"settleup/internal/db"
	"settleup/internal/handlers"
	"settleup/internal/services"
	"settleup/internal/store"
	"settleup/internal/ws"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	groups := store.NewGroupStore(database)
	transactions := store.NewTransactionStore(database)
	activity := store.NewActivityStore(database)
	txRunner := db.NewTxRunner(database)
	hub := ws.NewHub()

	transactionService := services.NewTransactionService(txRunner, groups, transactions, activity, hub)
	groupService := services.NewGroupService(txRunner, groups, transactions, activity, hub)

	handler := handlers.New(txRunner, cfg, users, groups, groupService, transactionService, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("settleup API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
