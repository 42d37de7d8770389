package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
)

const dateLayout = "2006-01-02"

type Handlers struct {
	Bookings *app.BookingService
	Rooms    *app.RoomService
	Payments *app.PaymentService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/bookings", func(r chi.Router) {
		r.Post("/", h.createBooking)
		r.Get("/", h.listBookings)
		r.Get("/{reference}", h.getBooking)
		r.Patch("/{id}", h.updateBooking)
	})

	s.mux.Route("/v1/rooms", func(r chi.Router) {
		r.Post("/", h.addRoom)
		r.Get("/", h.listRooms)
		r.Get("/types", h.roomTypes)
		r.Get("/search", h.searchRooms)
		r.Get("/available", h.availableRooms)
		r.Get("/{id}", h.getRoom)
		r.Patch("/{id}", h.updateRoom)
		r.Delete("/{id}", h.deleteRoom)
		r.Get("/{id}/availability", h.roomAvailability)
	})

	s.mux.Route("/v1/payments", func(r chi.Router) {
		r.Post("/intent", h.createPaymentIntent)
		r.Post("/webhook", h.paymentWebhook)
		r.Get("/{reference}", h.paymentHistory)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeError(w http.ResponseWriter, err error) {
	var ge *domain.GatewayError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInvalidBookingState), errors.Is(err, domain.ErrInvalidRoom):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrPaymentAlreadyCompleted), errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrReferenceExhausted):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	case errors.As(err, &ge):
		writeProblem(w, http.StatusBadGateway, "Payment Gateway Error", "payment provider request failed")
	default:
		log.Error().Err(err).Msg("unhandled service error")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
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

func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
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

// currentUserID reads the authenticated identity installed by the upstream
// auth middleware. Credential validation is not this service's job.
func currentUserID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id, err == nil && id > 0
}

func parseDate(s string) (time.Time, error) { return time.Parse(dateLayout, s) }

// ---- DTOs ----

type bookingDTO struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"userId"`
	RoomID           int64  `json:"roomId"`
	CheckInDate      string `json:"checkInDate"`
	CheckOutDate     string `json:"checkOutDate"`
	TotalPrice       string `json:"totalPrice"`
	BookingReference string `json:"bookingReference"`
	BookingStatus    string `json:"bookingStatus"`
	PaymentStatus    string `json:"paymentStatus"`
	CreatedAt        string `json:"createdAt"`
}

func toBookingDTO(b domain.Booking) bookingDTO {
	return bookingDTO{
		ID:               b.ID,
		UserID:           b.UserID,
		RoomID:           b.RoomID,
		CheckInDate:      b.CheckIn.Format(dateLayout),
		CheckOutDate:     b.CheckOut.Format(dateLayout),
		TotalPrice:       b.TotalPrice.String(),
		BookingReference: b.Reference,
		BookingStatus:    string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
}

type roomDTO struct {
	ID            int64   `json:"id"`
	RoomNumber    int     `json:"roomNumber"`
	Type          string  `json:"type"`
	PricePerNight string  `json:"pricePerNight"`
	Capacity      int     `json:"capacity"`
	Description   *string `json:"description,omitempty"`
	ImageURL      *string `json:"imageUrl,omitempty"`
}

func toRoomDTO(r domain.Room) roomDTO {
	return roomDTO{
		ID:            r.ID,
		RoomNumber:    r.Number,
		Type:          string(r.Type),
		PricePerNight: r.PricePerNight.String(),
		Capacity:      r.Capacity,
		Description:   r.Description,
		ImageURL:      r.ImageURL,
	}
}

func toRoomDTOs(rs []domain.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRoomDTO(r))
	}
	return out
}

// ---- booking handlers ----

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing authenticated user")
		return
	}

	var req struct {
		RoomID       int64  `json:"roomId"`
		CheckInDate  string `json:"checkInDate"`
		CheckOutDate string `json:"checkOutDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	checkIn, err := parseDate(req.CheckInDate)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "checkInDate must be YYYY-MM-DD")
		return
	}
	checkOut, err := parseDate(req.CheckOutDate)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "checkOutDate must be YYYY-MM-DD")
		return
	}

	booking, err := h.Bookings.CreateBooking(r.Context(), userID, req.RoomID, checkIn, checkOut)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(booking))
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}

	var req struct {
		BookingStatus *string `json:"bookingStatus"`
		PaymentStatus *string `json:"paymentStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	var patch domain.BookingPatch
	if req.BookingStatus != nil {
		s := domain.BookingStatus(*req.BookingStatus)
		patch.Status = &s
	}
	if req.PaymentStatus != nil {
		s := domain.PaymentStatus(*req.PaymentStatus)
		patch.PaymentStatus = &s
	}

	booking, err := h.Bookings.UpdateBooking(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(booking))
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Bookings.FindByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, toBookingDTO(booking))
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) roomAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	checkIn, err := parseDate(r.URL.Query().Get("checkInDate"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "checkInDate must be YYYY-MM-DD")
		return
	}
	checkOut, err := parseDate(r.URL.Query().Get("checkOutDate"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "checkOutDate must be YYYY-MM-DD")
		return
	}
	available, err := h.Bookings.IsRoomAvailable(r.Context(), id, checkIn, checkOut)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

// ---- room handlers ----

func (h *Handlers) addRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomNumber    int     `json:"roomNumber"`
		Type          string  `json:"type"`
		PricePerNight string  `json:"pricePerNight"`
		Capacity      int     `json:"capacity"`
		Description   *string `json:"description"`
		ImageURL      *string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	price, err := decimal.NewFromString(req.PricePerNight)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Price", "pricePerNight must be a decimal number")
		return
	}

	room, err := h.Rooms.Add(r.Context(), domain.Room{
		Number:        req.RoomNumber,
		Type:          domain.RoomType(req.Type),
		PricePerNight: price,
		Capacity:      req.Capacity,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(room))
}

func (h *Handlers) updateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}

	var req struct {
		RoomNumber    *int    `json:"roomNumber"`
		Type          *string `json:"type"`
		PricePerNight *string `json:"pricePerNight"`
		Capacity      *int    `json:"capacity"`
		Description   *string `json:"description"`
		ImageURL      *string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	patch := domain.RoomPatch{
		Number:      req.RoomNumber,
		Capacity:    req.Capacity,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.Type != nil {
		t := domain.RoomType(*req.Type)
		patch.Type = &t
	}
	if req.PricePerNight != nil {
		price, err := decimal.NewFromString(*req.PricePerNight)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Price", "pricePerNight must be a decimal number")
			return
		}
		patch.PricePerNight = &price
	}

	room, err := h.Rooms.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(room))
}

func (h *Handlers) deleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	if err := h.Rooms.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	room, err := h.Rooms.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, toRoomDTO(room))
}

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Rooms.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, toRoomDTOs(rooms))
}

func (h *Handlers) searchRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Rooms.Search(r.Context(), r.URL.Query().Get("input"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTOs(rooms))
}

func (h *Handlers) availableRooms(w http.ResponseWriter, r *http.Request) {
	checkIn, err := parseDate(r.URL.Query().Get("checkInDate"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "checkInDate must be YYYY-MM-DD")
		return
	}
	checkOut, err := parseDate(r.URL.Query().Get("checkOutDate"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "checkOutDate must be YYYY-MM-DD")
		return
	}
	var roomType *domain.RoomType
	if t := r.URL.Query().Get("roomType"); t != "" {
		rt := domain.RoomType(t)
		roomType = &rt
	}

	rooms, err := h.Rooms.Available(r.Context(), checkIn, checkOut, roomType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTOs(rooms))
}

func (h *Handlers) roomTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Rooms.Types())
}

// ---- payment handlers ----

func (h *Handlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingReference string `json:"bookingReference"`
		Amount           string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeProblem(w, http.StatusBadRequest, "Invalid Amount", "amount must be a positive decimal number")
		return
	}

	secret, err := h.Payments.CreateIntent(r.Context(), req.BookingReference, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": secret})
}

// paymentWebhook applies a gateway outcome. Signature verification happens
// upstream; by the time the request reaches this handler its payload is
// trusted.
func (h *Handlers) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingReference string `json:"bookingReference"`
		Amount           string `json:"amount"`
		TransactionID    string `json:"transactionId"`
		Success          bool   `json:"success"`
		FailureReason    string `json:"failureReason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Amount", "amount must be a decimal number")
		return
	}

	if err := h.Payments.Reconcile(r.Context(), req.BookingReference, amount, req.TransactionID, req.Success, req.FailureReason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) paymentHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Payments.PaymentHistory(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, err)
		return
	}
	type paymentDTO struct {
		ID               int64   `json:"id"`
		BookingReference string  `json:"bookingReference"`
		Amount           string  `json:"amount"`
		TransactionID    string  `json:"transactionId"`
		PaymentStatus    string  `json:"paymentStatus"`
		PaymentDate      string  `json:"paymentDate"`
		FailureReason    *string `json:"failureReason,omitempty"`
		UserID           int64   `json:"userId"`
	}
	out := make([]paymentDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, paymentDTO{
			ID:               rec.ID,
			BookingReference: rec.BookingReference,
			Amount:           rec.Amount.String(),
			TransactionID:    rec.TransactionID,
			PaymentStatus:    string(rec.Status),
			PaymentDate:      rec.PaymentDate.Format(time.RFC3339),
			FailureReason:    rec.FailureReason,
			UserID:           rec.UserID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
