package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/King47-code/safe-ride-backend/internal/auth"
	"github.com/King47-code/safe-ride-backend/internal/geo"
	"github.com/King47-code/safe-ride-backend/internal/identity"
	"github.com/King47-code/safe-ride-backend/internal/models"
)

// errorBody is the uniform failure envelope: a human message plus the
// machine-readable kind from the error taxonomy.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type tripRequest struct {
	Pickup  models.Coordinate `json:"pickup"`
	Dropoff string            `json:"dropoff"`
}

type acceptRequest struct {
	RideID string `json:"rideId"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.Identity == nil {
		s.writeError(w, r, fmt.Errorf("%w: identity store not configured", models.ErrUpstreamUnavailable))
		return
	}
	var reg identity.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	session, err := s.Identity.Register(r.Context(), reg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.Identity == nil {
		s.writeError(w, r, fmt.Errorf("%w: identity store not configured", models.ErrUpstreamUnavailable))
		return
	}
	var creds identity.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	session, err := s.Identity.Login(r.Context(), creds)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleFareQuote(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	quote, err := s.Rides.QuoteFare(r.Context(), req.Pickup, req.Dropoff)
	if err != nil {
		s.writeRideError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleRequestRide(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok || id.Role != models.RoleRider {
		s.writeError(w, r, fmt.Errorf("%w: riders only", models.ErrUnauthorized))
		return
	}
	var req tripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	created, err := s.Rides.RequestRide(r.Context(), id.UserID, req.Pickup, req.Dropoff)
	if err != nil {
		s.writeRideError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok || id.Role != models.RoleDriver {
		s.writeError(w, r, fmt.Errorf("%w: drivers only", models.ErrUnauthorized))
		return
	}
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	if err := s.Rides.AcceptRide(r.Context(), id.UserID, req.RideID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		s.writeError(w, r, models.ErrUnauthorized)
		return
	}
	rides, err := s.Rides.History(r.Context(), id.UserID, id.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rides == nil {
		rides = []models.Ride{}
	}
	writeJSON(w, http.StatusOK, rides)
}

func (s *Server) handleNearbyDrivers(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		s.writeError(w, r, fmt.Errorf("%w: lat and lng query params required", models.ErrInvalidInput))
		return
	}
	if err := geo.ValidateCoordinate(models.Coordinate{Lat: lat, Lng: lng}); err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := s.NearbyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", models.ErrInvalidInput))
			return
		}
		if n < limit {
			limit = n
		}
	}
	drivers := s.Drivers.Nearby(lat, lng, limit)
	if drivers == nil {
		drivers = []models.DriverLocation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drivers": drivers})
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok || id.Role != models.RoleDriver {
		s.writeError(w, r, fmt.Errorf("%w: drivers only", models.ErrUnauthorized))
		return
	}
	summary, err := s.Rides.Earnings(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var loc models.DriverLocation
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	if loc.DriverID == "" {
		s.writeError(w, r, fmt.Errorf("%w: driverId required", models.ErrInvalidInput))
		return
	}
	if err := geo.ValidateCoordinate(loc.Loc); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc.Online = true
	loc.Updated = time.Now().UTC()
	s.Recorder.Record(r.Context(), loc)
	w.WriteHeader(http.StatusNoContent)
}

// writeRideError handles the quote/request paths, where an unresolvable
// dropoff is the rider's input problem, not a missing resource: NotFound
// becomes 422 there. Everything else maps through the standard table.
func (s *Server) writeRideError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrNotFound) {
		s.writeErrorStatus(w, r, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeError(w, r, err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorStatus(w, r, statusFromKind(err), err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	kind := models.ErrorKind(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "route", r.URL.Path, "kind", kind, "error", err)
	} else {
		s.Logger.Debug("request rejected", "route", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func statusFromKind(err error) int {
	switch models.ErrorKind(err) {
	case "invalid_input":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "unauthorized":
		return http.StatusUnauthorized
	case "conflict":
		return http.StatusConflict
	case "upstream_unavailable":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
