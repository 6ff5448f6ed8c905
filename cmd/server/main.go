package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/mnist-api/internal/config"
	"github.com/Brownie44l1/mnist-api/internal/export"
	"github.com/Brownie44l1/mnist-api/internal/handlers"
	"github.com/Brownie44l1/mnist-api/internal/logger"
)

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cfg *config.Config, lggr logger.Logger) error {
	rec, closeModel, err := newRecognizer(cfg, lggr)
	if err != nil {
		return err
	}
	defer closeModel()

	handler := handlers.NewHandler(rec, export.NewStore(cfg.Export.Dir), cfg.Export.GallerySize, lggr)
	mux := http.NewServeMux()
	handler.Routes(mux, enableCORS)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lggr.Infow("Server starting",
			"port", cfg.Port, "model", cfg.Model.Path, "resample", cfg.Preprocess.Resample, "saveDir", cfg.Export.Dir)
		lggr.Infof("Endpoints: GET /health, POST /predict, POST /predict/image, POST /preview, POST /save, GET /saved")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	lggr.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
