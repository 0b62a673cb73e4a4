package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/raywall/fixsim/pkg/dictionary"
	"github.com/raywall/fixsim/pkg/flood"
	"github.com/raywall/fixsim/pkg/graphql"
	"github.com/rs/zerolog"
)

const (
	HeaderCorrelationID = "x-correlation-id"
	HeaderLatency       = "x-latency-ms"

	respSuccess = "success!\n"
	respInvalid = "invalid request"

	maxBatchBytes = 8 << 20
)

type ctxKey string

const ContextKeyCorrID ctxKey = "correlation_id"

// Controller são os ganchos operacionais do simulador usados pela superfície de controle.
type Controller interface {
	graphql.Controller
	StartFlood(batch flood.Batch)
}

// Server é a superfície de controle HTTP: pausa, stress, dicionário e GraphQL.
type Server struct {
	addr   string
	ctl    Controller
	dict   *dictionary.Dictionary
	gql    *graphql.GraphQLEngine
	logger zerolog.Logger
}

// NewServer monta o servidor. dict pode ser nulo, e nesse caso as rotas de dicionário não são registradas.
func NewServer(host string, port int, ctl Controller, dict *dictionary.Dictionary, logger zerolog.Logger) (*Server, error) {
	gql, err := graphql.NewGraphQLEngine(dict, ctl)
	if err != nil {
		return nil, fmt.Errorf("erro ao montar schema GraphQL: %w", err)
	}
	return &Server{
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		ctl:    ctl,
		dict:   dict,
		gql:    gql,
		logger: logger.With().Str("component", "http").Logger(),
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(ObservabilityMiddleware(s.logger))

	r.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	r.HandleFunc("/stress", s.handleStress).Methods(http.MethodPost)
	r.HandleFunc("/close/stress", s.handleCloseStress).Methods(http.MethodGet)
	r.HandleFunc("/graphql", s.handleGraphQL).Methods(http.MethodPost)

	if s.dict != nil {
		r.HandleFunc("/tag_list", s.handleTagList).Methods(http.MethodGet)
		for _, name := range dictionary.Interfaces {
			r.HandleFunc("/"+name, s.handleInterface(name, false)).Methods(http.MethodGet)
			r.HandleFunc("/"+name+"Yaml", s.handleInterface(name, true)).Methods(http.MethodGet)
		}
	}
	return r
}

// Run escuta até o contexto ser cancelado e então encerra o servidor.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("Servidor HTTP ouvindo")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// handlePause: curl -X POST http://127.0.0.1:2025/pause -d '{"flag": true}'
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Flag *bool `json:"flag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Flag == nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("pause: corpo inválido")
		http.Error(w, respInvalid, http.StatusBadRequest)
		return
	}
	s.ctl.Pause(*body.Flag)
	zerolog.Ctx(r.Context()).Info().Bool("pause", *body.Flag).Msg("pausa alterada")
	writeText(w, respSuccess)
}

// handleStress: corpo com uma mensagem por linha, "tag=valor" separados por vírgula.
func (s *Server) handleStress(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	if err != nil {
		http.Error(w, respInvalid, http.StatusBadRequest)
		return
	}
	batch, err := flood.ParseBatch(string(raw))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("stress: lote inválido")
		http.Error(w, respInvalid, http.StatusBadRequest)
		return
	}
	zerolog.Ctx(r.Context()).Info().Int("lines", len(batch)).Msg("stress iniciado")
	s.ctl.StartFlood(batch)
	writeText(w, respSuccess)
}

func (s *Server) handleCloseStress(w http.ResponseWriter, r *http.Request) {
	s.ctl.StopFlood()
	zerolog.Ctx(r.Context()).Info().Msg("stress encerrado")
	writeText(w, respSuccess)
}

func (s *Server) handleTagList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.dict.TagList())
}

func (s *Server) handleInterface(name string, skeleton bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		iface, ok := s.dict.Interface(name)
		if !ok {
			http.Error(w, "interface not found", http.StatusNotFound)
			return
		}
		if skeleton {
			writeText(w, iface.Skeleton())
			return
		}
		writeJSON(w, iface)
	}
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid JSON Body", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.gql.Execute(r.Context(), p.Query, p.Variables))
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// --- MIDDLEWARE DE OBSERVABILIDADE ---

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode  int
	startTime   time.Time
	wroteHeader bool
}

func (rw *responseWriterWrapper) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	duration := time.Since(rw.startTime)
	rw.Header().Set(HeaderLatency, fmt.Sprintf("%d", duration.Milliseconds()))
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

func (rw *responseWriterWrapper) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// ObservabilityMiddleware propaga (ou gera) o x-correlation-id e registra cada requisição.
func ObservabilityMiddleware(base zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			corrID := r.Header.Get(HeaderCorrelationID)
			if corrID == "" {
				corrID = uuid.NewString()
			}
			w.Header().Set(HeaderCorrelationID, corrID)

			logger := base.With().Str("correlation_id", corrID).Logger()
			ctx := logger.WithContext(r.Context())
			ctx = context.WithValue(ctx, ContextKeyCorrID, corrID)

			wrapper := &responseWriterWrapper{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				startTime:      start,
			}

			next.ServeHTTP(wrapper, r.WithContext(ctx))

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapper.statusCode).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Msg("request completed")
		})
	}
}
