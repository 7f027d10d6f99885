package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/framework"
	"github.com/vk/componentd/internal/moniker"
)

// healthHandler reports process liveness.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// childrenHandler lists the root realm's live children, for operators poking
// at a running orchestrator.
func (a *App) childrenHandler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		root, err := a.model.LookUpRealm(ctx, moniker.RootMoniker())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		children, err := root.LiveChildren(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		refs := make([]framework.ChildRef, len(children))
		for i, cm := range children {
			refs[i] = framework.ChildRef{Name: cm.Name(), Collection: cm.Collection()}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(refs); err != nil {
			a.logger.Error("Failed to encode children listing.", "error", err)
		}
	}
}

// startHealthcheckServer runs the health check HTTP server until ctx is
// cancelled.
func (a *App) startHealthcheckServer(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle("/children", a.childrenHandler(ctx))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Health check server starting.", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Health check server failed.", "error", err)
	}
}
