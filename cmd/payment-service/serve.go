package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/finlane/payment-service/adapters/rabbitmq"
	"github.com/finlane/payment-service/config"
	"github.com/finlane/payment-service/contract/rpc"
	"github.com/finlane/payment-service/gateway"
	"github.com/finlane/payment-service/httpapi"
	"github.com/finlane/payment-service/payment"
	"github.com/finlane/payment-service/store/sqlite"
	"github.com/finlane/payment-service/upstream"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the broker gateway and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	lookup := upstream.NewAccountsClient(cfg.UserServiceURL, cfg.CompanyServiceURL, nil)
	bank := &upstream.DevBankGateway{}

	addCard := &payment.AddBankCard{
		Gateway:  bank,
		Cards:    store,
		Accounts: lookup,
		Log:      log.With("operation", "add_bank_card"),
	}
	addAccount := &payment.AddBankAccount{
		Accounts: store,
		Lookup:   lookup,
		Log:      log.With("operation", "add_bank_account"),
	}

	getCards := &payment.GetBankCards{
		Cards: store,
		Log:   log.With("operation", "get_bank_cards"),
	}

	handlers := map[string]rpc.Handler{
		"add_bank_card":    addCard.Handle,
		"add_bank_account": addAccount.Handle,
		"get_bank_cards":   getCards.Handle,
	}

	registry := prometheus.NewRegistry()

	broker, err := rabbitmq.New(rabbitmq.Config{
		URL:        cfg.AMQPURL(),
		ClientName: "payment-service",
	}, log.With("component", "rabbitmq"))
	if err != nil {
		return err
	}

	gw := gateway.New(
		broker,
		gateway.NewDispatcher(handlers, log.With("component", "dispatcher")),
		gateway.NewResponder(broker, log.With("component", "responder")),
		gateway.NewMetrics(registry),
		log.With("component", "gateway"),
	)

	api := httpapi.New(httpapi.Config{
		AddBankCard:    addCard,
		AddBankAccount: addAccount,
		JWTSecret:      cfg.JWTSecret,
		AllowedClients: cfg.AllowedClients,
		Metrics:        registry,
		Log:            log.With("component", "httpapi"),
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 2)

	go func() {
		log.Info("http api listening", "port", cfg.HTTPPort)

		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http api: %w", err)
		}
	}()

	go func() {
		errc <- gw.Start(ctx)
	}()

	var fatal error

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errc:
		if err != nil {
			fatal = err
			stop()
			log.Error("fatal component failure", "error", err)
		}
	}

	grace, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := httpSrv.Shutdown(grace); err != nil {
		log.Error("http shutdown", "error", err)
	}

	if err := gw.Shutdown(grace); err != nil {
		fatal = errors.Join(fatal, fmt.Errorf("gateway shutdown: %w", err))
	}

	return fatal
}
