package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/King47-code/safe-ride-backend/internal/auth"
	"github.com/King47-code/safe-ride-backend/internal/geo"
	"github.com/King47-code/safe-ride-backend/internal/hub"
	"github.com/King47-code/safe-ride-backend/internal/identity"
	"github.com/King47-code/safe-ride-backend/internal/ingest"
	"github.com/King47-code/safe-ride-backend/internal/ride"
)

// Server is the HTTP boundary. Collaborators are plain fields so main and
// the handler tests wire them the same way.
type Server struct {
	Rides       *ride.Lifecycle
	Identity    *identity.Service
	Gate        *auth.Gate
	Hub         *hub.Hub
	Drivers     geo.DriverIndex
	Recorder    *ingest.Recorder
	NearbyLimit int
	Logger      *slog.Logger

	mux *mux.Router
}

// NewServer builds the router and middleware around s's collaborators,
// which must be populated first.
func NewServer(s *Server) *Server {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.NearbyLimit <= 0 {
		s.NearbyLimit = 8
	}
	s.mux = mux.NewRouter()
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.mux.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	// trusted-network ingestion path; fronted by infra, not user auth
	s.mux.HandleFunc("/internal/driver/locations", s.handleDriverLocation).Methods(http.MethodPost)

	public := s.mux.PathPrefix("/api/auth").Subrouter()
	public.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	public.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	api := s.mux.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/rides/fare", s.handleFareQuote).Methods(http.MethodPost)
	api.HandleFunc("/rides/request", s.handleRequestRide).Methods(http.MethodPost)
	api.HandleFunc("/rides/accept", s.handleAcceptRide).Methods(http.MethodPost)
	api.HandleFunc("/rides/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/drivers/nearby", s.handleNearbyDrivers).Methods(http.MethodGet)
	api.HandleFunc("/drivers/earnings", s.handleEarnings).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
