package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmd/internal/manager"
	"llmd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Load(ctx context.Context, model string, overrides map[string]any) (manager.SlotStatus, error)
	Release() bool
	Status() manager.SlotStatus
	LoadingParameterInfo() types.LoadingParametersResponse
	InferenceParameterInfo(model string) (map[string]types.ParameterInfo, error)
	Generate(ctx context.Context, req manager.GenerateRequest) (string, error)
	GenerateStream(ctx context.Context, req manager.GenerateRequest, emit func(types.GenerationFrame) error) error
	CountTokens(text string) int
	ContextUsage(text, model string) types.ContextUsage
	Models() []types.ModelSummary
	Uptime() time.Duration
	Stats() manager.SlotStats
	Ready() bool
}

// availableEndpoints is reported in the 404 envelope.
var availableEndpoints = []string{
	"POST /model/load",
	"POST /model/unload",
	"GET /model/status",
	"GET /model/loading-parameters",
	"GET /model/inference-parameters",
	"POST /query",
	"POST /count_tokens",
	"GET /models",
	"GET /server/info",
	"GET /server/ping",
	"GET /healthz",
	"GET /readyz",
	"GET /metrics",
}

// decodeBody enforces the JSON content type and body limit, then decodes the
// body into a flat map so handlers can peel off known keys and treat the
// remainder as dynamic parameter overrides. An empty body decodes to an
// empty map.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return body, true
}

func popString(body map[string]any, key string) string {
	v, ok := body[key]
	if !ok {
		return ""
	}
	delete(body, key)
	s, _ := v.(string)
	return s
}

func popBool(body map[string]any, key string, def bool) bool {
	v, ok := body[key]
	if !ok {
		return def
	}
	delete(body, key)
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{
			Error:              "endpoint not found: " + r.URL.Path,
			Code:               http.StatusNotFound,
			AvailableEndpoints: availableEndpoints,
		})
	})

	r.Post("/model/load", func(w http.ResponseWriter, r *http.Request) {
		body, ok := decodeBody(w, r)
		if !ok {
			return
		}
		model := popString(body, "model")
		ctx, cancel := requestContext(r)
		defer cancel()
		st, err := svc.Load(ctx, model, body)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, types.LoadResponse{
			Status:            "success",
			Message:           fmt.Sprintf("model %s loaded", st.Model),
			Model:             st.Model,
			LoadingParameters: st.LoadingParams,
		})
	})

	r.Post("/model/unload", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := decodeBody(w, r); !ok {
			return
		}
		msg := "no model was loaded"
		if svc.Release() {
			msg = "model unloaded"
		}
		writeJSON(w, types.UnloadResponse{Status: "success", Message: msg})
	})

	r.Get("/model/status", func(w http.ResponseWriter, r *http.Request) {
		st := svc.Status()
		writeJSON(w, types.ModelStatusResponse{
			Loaded:            st.Loaded,
			CurrentModel:      st.Model,
			LoadingParameters: st.LoadingParams,
		})
	})

	r.Get("/model/loading-parameters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.LoadingParameterInfo())
	})

	r.Get("/model/inference-parameters", func(w http.ResponseWriter, r *http.Request) {
		info, err := svc.InferenceParameterInfo(r.URL.Query().Get("model"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, info)
	})

	r.Post("/query", func(w http.ResponseWriter, r *http.Request) {
		body, ok := decodeBody(w, r)
		if !ok {
			return
		}
		req := manager.GenerateRequest{
			Model:        popString(body, "model"),
			Prompt:       popString(body, "prompt"),
			SystemPrompt: popString(body, "system_prompt"),
			Raw:          popBool(body, "raw", false),
			Overrides:    body,
		}
		stream := popBool(body, "stream", true)

		ctx, cancel := requestContext(r)
		defer cancel()
		lvl := requestLogLevel(r)
		start := time.Now()
		logQueryStart(r, lvl, req.Model, stream)

		if !stream {
			text, err := svc.Generate(ctx, req)
			if err != nil {
				if r.Context().Err() != nil || shutdownCtx.Err() != nil {
					return
				}
				logQueryEnd(r, lvl, writeServiceError(w, err), start, err)
				return
			}
			writeJSON(w, types.QueryResponse{Response: text})
			logQueryEnd(r, lvl, http.StatusOK, start, nil)
			return
		}

		writer := io.Writer(w)
		if lvl >= LevelDebug {
			writer = io.MultiWriter(w, &loggingLineWriter{})
		}
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		enc := json.NewEncoder(writer)
		wroteFrame := false
		err := svc.GenerateStream(ctx, req, func(f types.GenerationFrame) error {
			if !wroteFrame {
				w.Header().Set("Content-Type", "application/x-ndjson")
				wroteFrame = true
			}
			if err := enc.Encode(f); err != nil {
				return err
			}
			IncrementStreamFrames(string(f.Status))
			if flush != nil {
				flush()
			}
			return nil
		})
		if err != nil {
			if r.Context().Err() != nil || shutdownCtx.Err() != nil {
				return
			}
			// No frame out yet: the failure can still become a proper
			// status. Mid-stream the 200 and frames are already committed.
			if !wroteFrame {
				logQueryEnd(r, lvl, writeServiceError(w, err), start, err)
				return
			}
			logQueryEnd(r, lvl, http.StatusOK, start, err)
			return
		}
		logQueryEnd(r, lvl, http.StatusOK, start, nil)
	})

	r.Post("/count_tokens", func(w http.ResponseWriter, r *http.Request) {
		body, ok := decodeBody(w, r)
		if !ok {
			return
		}
		text := popString(body, "text")
		model := popString(body, "model")
		writeJSON(w, types.CountTokensResponse{
			Text:         text,
			Model:        model,
			ContextUsage: svc.ContextUsage(text, model),
		})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: svc.Models()})
	})

	r.Get("/server/info", func(w http.ResponseWriter, r *http.Request) {
		st := svc.Status()
		stats := svc.Stats()
		writeJSON(w, types.ServerInfoResponse{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			GoVersion:     runtime.Version(),
			CurrentModel:  st.Model,
			ModelLoaded:   st.Loaded,
			UptimeSeconds: int64(svc.Uptime().Seconds()),
			NumCPU:        runtime.NumCPU(),
			ModelLoads:    stats.Loads,
			ModelReleases: stats.Releases,
			SlotReuses:    stats.Reuses,
		})
	})

	r.Get("/server/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.PingResponse{Status: "online", Timestamp: time.Now().UTC().Format(time.RFC3339)})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func logQueryStart(r *http.Request, lvl LogLevel, model string, stream bool) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Str("model", model).Bool("stream", stream)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("query start")
		return
	}
	log.Printf("query start path=%s model=%s stream=%v", r.URL.Path, model, stream)
}

func logQueryEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("query end")
		return
	}
	log.Printf("query end status=%d dur=%s err=%v", status, time.Since(start), err)
}
