package httpctrl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/heatrecovery/internal/plant"
	"github.com/Agrid-Dev/heatrecovery/internal/ports"
	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

type Option func(*Server)

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.log = log.NewEntry(l) }
}

// WithAllowedOrigin sets the CORS origin. The default is "*".
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.origin = origin }
}

type Server struct {
	svc      ports.RecoveryService
	srv      *http.Server
	deviceID string

	metrics http.Handler
	log     *log.Entry
	origin  string
}

// New returns a runnable server.
func New(svc ports.RecoveryService, addr string, deviceID string, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		deviceID: deviceID,
		log:      log.NewEntry(log.StandardLogger()),
		origin:   "*",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(log.Fields{"controller": "http", "device_id": deviceID})

	mux := http.NewServeMux()

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)

	// Stateless calculations
	mux.HandleFunc("POST /v1/calculate/standard", s.handleStandard)
	mux.HandleFunc("POST /v1/calculate/balance", s.handleBalance)
	mux.HandleFunc("POST /v1/calculate/scheme-c", s.handleBalance)
	mux.HandleFunc("POST /v1/calculate/source-potential", s.handleSourcePotential)
	mux.HandleFunc("POST /v1/calculate/economics", s.handleEconomics)
	mux.HandleFunc("POST /v1/calculate/dispatch", s.handleDispatch)

	// Scenario: whole request, or one field at a time
	mux.HandleFunc("PUT /v1/scenario", s.handlePutScenario)
	mux.HandleFunc("POST /v1/scenario/{field}", s.handlePostField)

	mux.HandleFunc("GET /v1/stream", s.handleStream)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.cors(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handleStandard(w http.ResponseWriter, r *http.Request) {
	req := recovery.DefaultStandardRequest()
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.Standard(req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	req := recovery.DefaultSolverRequest()
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.Solve(req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSourcePotential(w http.ResponseWriter, r *http.Request) {
	b := recovery.DefaultBoilerSpec()
	if !decodeBody(w, r, &b) {
		return
	}
	res, err := s.svc.SourcePotential(b)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleEconomics prices a project; omitted fields take the defaults.
func (s *Server) handleEconomics(w http.ResponseWriter, r *http.Request) {
	req := recovery.DefaultEconomicsRequest()
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.Economics(req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req recovery.DispatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.Dispatch(req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handlePutScenario patches the active scenario; omitted fields keep their
// current values.
func (s *Server) handlePutScenario(w http.ResponseWriter, r *http.Request) {
	var patch json.RawMessage
	if !decodeBody(w, r, &patch) {
		return
	}
	_, err := s.svc.UpdateScenario(func(req *recovery.SolverRequest) error {
		if err := json.Unmarshal(patch, req); err != nil {
			return fmt.Errorf("invalid json: %w", err)
		}
		return nil
	})
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondSnapshot(w)
}

// handlePostField takes {"value": ...} with the field's JSON type.
func (s *Server) handlePostField(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	if !plant.IsField(field) {
		writeErr(w, http.StatusNotFound, "unknown scenario field: "+field)
		return
	}

	var body struct {
		Value json.RawMessage `json:"value"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Value) == 0 {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := s.svc.SetField(field, []byte(body.Value)); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondSnapshot(w)
}

// ---- generic helpers ----

func (s *Server) respondSnapshot(w http.ResponseWriter) {
	snap := s.svc.Get()
	snap.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, snap)
}

// decodeBody decodes the request body over v, so fields missing from the
// body keep the values v already holds. It writes the error response itself.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeErr(w, http.StatusBadRequest, "empty body")
			return false
		}
		writeErr(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
