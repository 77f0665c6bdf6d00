package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/chaindex-network/chaindexd/config"
	"github.com/chaindex-network/chaindexd/internal/core/application"
	"github.com/chaindex-network/chaindexd/internal/core/domain"
	dbbadger "github.com/chaindex-network/chaindexd/internal/infrastructure/storage/db/badger"
	"github.com/chaindex-network/chaindexd/internal/interfaces/operator"
	"github.com/chaindex-network/chaindexd/pkg/stats"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repoManager, err := dbbadger.NewRepoManager(config.GetDbDir(), nil)
	if err != nil {
		log.WithError(err).Panic("error while opening db")
	}
	defer repoManager.Close()

	registry := application.NewPairRegistry(repoManager)
	if err := registry.Load(ctx); err != nil {
		log.WithError(err).Panic("error while loading pair registry")
	}

	pipeline := application.NewPipeline(repoManager, registry)

	operatorAddr := fmt.Sprintf(":%d", config.GetInt(config.OperatorListeningPortKey))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/v1/", operator.NewHandler(pipeline, registry))
	server := &http.Server{Addr: operatorAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Panic("error listening on operator interface")
		}
	}()
	log.Debug("operator interface is listening on " + operatorAddr)

	statsInterval := time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
	stats.Enable(ctx, statsInterval, filepath.Join(config.GetDatadir(), "stats"))

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			logBookDepth(registry)
		}
	}()

	log.Info("dex node started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	cancel()
	_ = server.Close()
	log.Debug("exiting")
}

func logBookDepth(registry *application.PairRegistry) {
	for _, pair := range registry.Pairs() {
		book, err := registry.GetBook(pair.Hash)
		if err != nil {
			continue
		}
		log.WithFields(log.Fields{
			"pair": pair.Hash.String(),
			"bids": len(book.SnapshotSide(domain.OrderSideBuy)),
			"asks": len(book.SnapshotSide(domain.OrderSideSell)),
		}).Info("book depth")
	}
}
