// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"vila_mar/internal/app"
	"vila_mar/internal/domain"
)

type Handlers struct {
	B *app.BookingService
	S *app.SyncService
	Q *app.QueryService
}

// Options carries the credentials guarding the write/admin surfaces.
type Options struct {
	SyncSecret string
	AdminUser  string
	AdminPass  string
}

type problem struct {
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Status    int             `json:"status"`
	Detail    string          `json:"detail,omitempty"`
	Field     string          `json:"field,omitempty"`
	Conflict  *conflictInfo   `json:"conflict,omitempty"`
	Available []domain.JobRef `json:"available,omitempty"`
}

type conflictInfo struct {
	Day       string `json:"day"`
	Occupied  int    `json:"occupied"`
	Requested int    `json:"requested"`
	Capacity  int    `json:"capacity"`
}

func (s *Server) MountHandlers(h *Handlers, opt Options) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/reservations", h.listReservations)
	s.mux.Post("/v1/reservations", h.createReservation)
	s.mux.Get("/v1/rooms/{room}/calendar", h.roomCalendar)
	s.mux.Post("/v1/sync", h.syncTrigger(opt.SyncSecret))

	s.mux.Route("/admin", func(r chi.Router) {
		r.Use(BasicAuth(opt.AdminUser, opt.AdminPass))
		r.Get("/reservations", h.listReservations)
		r.Get("/sync-runs/latest", h.lastSyncRun)
		r.Post("/sync", h.runSync)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemExt(w, problem{Title: title, Status: status, Detail: detail})
}

func writeProblemExt(w http.ResponseWriter, p problem) {
	p.Type = "about:blank"
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// ---- reservations ----

type reservationDTO struct {
	ID        int64   `json:"id"`
	Room      string  `json:"room"`
	Checkin   string  `json:"checkin"`
	Checkout  string  `json:"checkout"`
	Beds      int     `json:"beds"`
	GuestName string  `json:"guestName"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Source    string  `json:"source"`
	Status    string  `json:"status"`
}

func toDTO(r domain.Reservation) reservationDTO {
	return reservationDTO{
		ID:        r.ID,
		Room:      string(r.Room),
		Checkin:   r.Checkin.Format(time.RFC3339),
		Checkout:  r.Checkout.Format(time.RFC3339),
		Beds:      r.Beds,
		GuestName: r.GuestName,
		Phone:     r.Phone,
		Email:     r.Email,
		Source:    string(r.Source),
		Status:    string(r.Status),
	}
}

func (h *Handlers) listReservations(w http.ResponseWriter, r *http.Request) {
	var q domain.ReservationsQuery
	if v := strings.ToLower(r.URL.Query().Get("room")); v != "" {
		room := domain.Room(v)
		q.Room = &room
	}
	if v := strings.ToLower(r.URL.Query().Get("source")); v != "" {
		source := domain.Source(v)
		q.Source = &source
	}
	if v := r.URL.Query().Get("day"); v != "" {
		day, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid day", "day must be YYYY-MM-DD")
			return
		}
		q.Day = &day
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 1000")
			return
		}
		q.Limit = n
	}

	rs, err := h.Q.ListReservations(r.Context(), q)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not list reservations")
		return
	}
	out := make([]reservationDTO, 0, len(rs))
	for _, res := range rs {
		out = append(out, toDTO(res))
	}
	writeWithETag(w, r, out)
}

func (h *Handlers) createReservation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Room      string `json:"room"`
		Checkin   string `json:"checkin"`
		Checkout  string `json:"checkout"`
		Beds      int    `json:"beds"`
		GuestName string `json:"guestName"`
		Phone     string `json:"phone"`
		Email     string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "request body must be JSON")
		return
	}

	id, err := h.B.Book(r.Context(), app.BookingRequest{
		Room:      domain.Room(strings.ToLower(strings.TrimSpace(in.Room))),
		Checkin:   in.Checkin,
		Checkout:  in.Checkout,
		Beds:      in.Beds,
		GuestName: in.GuestName,
		Phone:     in.Phone,
		Email:     in.Email,
	})
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeProblemExt(w, problem{Title: "Validation Failed", Status: http.StatusUnprocessableEntity, Detail: ve.Error(), Field: ve.Field})
			return
		}
		var ce *domain.CapacityConflictError
		if errors.As(err, &ce) {
			writeProblemExt(w, problem{
				Title:  "No Availability",
				Status: http.StatusConflict,
				Detail: ce.Error(),
				Conflict: &conflictInfo{
					Day:       ce.Day.Format("2006-01-02"),
					Occupied:  ce.Occupied,
					Requested: ce.Requested,
					Capacity:  ce.Capacity,
				},
			})
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not create reservation")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// ---- calendar ----

func (h *Handlers) roomCalendar(w http.ResponseWriter, r *http.Request) {
	room := domain.Room(strings.ToLower(chi.URLParam(r, "room")))

	from := time.Now()
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid from", "from must be YYYY-MM-DD")
			return
		}
		from = t
	}
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 90 {
			writeProblem(w, http.StatusBadRequest, "Invalid days", "days must be an integer between 1 and 90")
			return
		}
		days = n
	}

	cal, err := h.Q.Calendar(r.Context(), room, from, days)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "unknown room")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not build calendar")
		return
	}
	writeWithETag(w, r, cal)
}

// ---- sync ----

// syncTrigger guards the public sync endpoint with the shared secret. An
// unset secret fails closed, same as the admin password.
func (h *Handlers) syncTrigger(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret == "" || !secureEqual(r.Header.Get("X-Sync-Secret"), secret) {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid sync secret")
			return
		}
		h.runSync(w, r)
	}
}

func (h *Handlers) runSync(w http.ResponseWriter, r *http.Request) {
	var filter app.SyncFilter
	if v := strings.ToLower(r.URL.Query().Get("room")); v != "" {
		room := domain.Room(v)
		filter.Room = &room
	}
	if v := strings.ToLower(r.URL.Query().Get("source")); v != "" {
		source := domain.Source(v)
		filter.Source = &source
	}

	summary, err := h.S.Run(r.Context(), filter)
	if err != nil {
		var ce *domain.ConfigurationError
		if errors.As(err, &ce) {
			writeProblemExt(w, problem{
				Title:     "Nothing To Sync",
				Status:    http.StatusBadRequest,
				Detail:    ce.Reason,
				Available: ce.Available,
			})
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "sync failed to start")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) lastSyncRun(w http.ResponseWriter, r *http.Request) {
	view, err := h.Q.LastSyncRun(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "no sync run recorded yet")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not read sync runs")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
