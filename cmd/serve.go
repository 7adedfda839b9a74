package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-graph/internal/graph/retrieve"
	"github.com/sells-group/edgar-graph/pkg/anthropic"
	"github.com/sells-group/edgar-graph/pkg/embedding"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question-answering API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve", true)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		embedder := embedding.New(cfg.Embedding.Key, cfg.Embedding.Model, cfg.Embedding.Dimension, nil)
		retriever := retrieve.New(env.Loader, 0)
		var llm anthropic.Client
		if cfg.Anthropic.Key != "" {
			llm = anthropic.New(cfg.Anthropic.Key, cfg.Anthropic.Model)
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/api/stats", statsHandler(env))
		r.Post("/api/ask", askHandler(env, embedder, retriever, llm))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("api server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

type askRequest struct {
	Question   string `json:"question"`
	Ticker     string `json:"ticker,omitempty"`
	MaxChunks  int    `json:"max_chunks,omitempty"`
	MaxHops    int    `json:"max_hops,omitempty"`
	NoGraph    bool   `json:"no_graph,omitempty"`
	Synthesize bool   `json:"synthesize,omitempty"`
}

func askHandler(env *appEnv, embedder embedding.Client, retriever *retrieve.Retriever, llm anthropic.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Question == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
			return
		}

		vecs, err := embedder.Embed(r.Context(), []string{req.Question})
		if err != nil {
			zap.L().Error("question embedding failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "embedding provider unavailable"})
			return
		}

		result, err := retriever.Retrieve(r.Context(), vecs[0], retrieve.Options{
			FocusTicker: req.Ticker,
			MaxChunks:   req.MaxChunks,
			MaxHops:     req.MaxHops,
			UseGraph:    !req.NoGraph,
		})
		if err != nil {
			zap.L().Error("retrieval failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "retrieval failed"})
			return
		}

		resp := map[string]any{"result": result}
		if req.Synthesize {
			if llm == nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "synthesis not configured"})
				return
			}
			answer, err := llm.Synthesize(r.Context(), req.Question, result.Context)
			if err != nil {
				zap.L().Error("synthesis failed", zap.Error(err))
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "synthesis failed"})
				return
			}
			resp["answer"] = answer
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// statsHandler reports graph node counts and cache statistics.
func statsHandler(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := env.Loader.ReadRecords(r.Context(),
			"MATCH (n) RETURN labels(n)[0] AS label, count(n) AS count ORDER BY label",
			nil,
		)
		if err != nil {
			zap.L().Error("stats query failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		nodes := map[string]int64{}
		for _, rec := range records {
			label, _ := rec.Get("label")
			count, _ := rec.Get("count")
			l, _ := label.(string)
			c, _ := count.(int64)
			if l != "" {
				nodes[l] = c
			}
		}

		cacheStats, err := env.Store.Stats(r.Context())
		if err != nil {
			zap.L().Warn("cache stats failed", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"nodes": nodes,
			"cache": cacheStats,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (0 = configured default)")
	rootCmd.AddCommand(serveCmd)
}
