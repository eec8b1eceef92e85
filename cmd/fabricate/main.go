package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/satindergrewal/chaincraft/internal/chain"
	"github.com/satindergrewal/chaincraft/internal/config"
	"github.com/satindergrewal/chaincraft/internal/content"
	"github.com/satindergrewal/chaincraft/internal/export"
	"github.com/satindergrewal/chaincraft/internal/model"
	"github.com/satindergrewal/chaincraft/internal/store"
	"github.com/satindergrewal/chaincraft/internal/stream"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("chaincraft starting up...")

	fabCfg := cfg.Fabrication()
	if err := fabCfg.Validate(); err != nil {
		log.Fatalf("Invalid fabrication settings: %v", err)
	}

	lib, err := content.Load(cfg.ContentPath)
	if err != nil {
		log.Fatalf("Content not available: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Store not available: %v", err)
	}
	defer st.Close()

	ch, err := openChain(st, cfg.ChainName)
	if err != nil {
		log.Fatalf("Chain %q: %v", cfg.ChainName, err)
	}

	// Broadcaster: fan-out crafted segments to all listeners
	broadcaster := stream.NewBroadcaster()

	worker := chain.NewWorker(st, lib, ch, chain.WorkerConfig{
		BufferAhead: cfg.BufferAhead,
		Fabrication: fabCfg,
	})
	worker.SetPublishFunc(func(c model.SegmentCraft) {
		broadcaster.Publish(stream.NewSegmentEvent(c))
		if cfg.ExportDir == "" {
			return
		}
		if _, err := export.WriteFile(cfg.ExportDir, c); err != nil {
			log.Printf("MIDI export failed: %v", err)
		}
	})

	webrtcHandler := stream.NewWebRTCHandler(broadcaster)

	go func() {
		if err := worker.Run(ctx); err != nil {
			log.Printf("Worker stopped: %v", err)
			cancel()
		}
	}()

	mux := newMux(st, worker, broadcaster, webrtcHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("chaincraft live on %s (chain %q)", addr, ch.Name)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// openChain loads the named chain, creating it on first run.
func openChain(st *store.Store, name string) (model.Chain, error) {
	ch, err := st.ChainByName(name)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("Creating chain %q", name)
		return st.CreateChain(name)
	}
	return ch, err
}
