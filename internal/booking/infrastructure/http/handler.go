package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Gym-Booking-System/internal/booking/application"
	"github.com/dmehra2102/Gym-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Gym-Booking-System/pkg/apperr"
	"github.com/dmehra2102/Gym-Booking-System/pkg/httpx"
)

var errInvalidID = apperr.New(apperr.Validation, "booking id must be a positive number")

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("booking-http"),
	}
}

type createBookingReq struct {
	ClassID  int64  `json:"classId"`
	UserName string `json:"userName"`
}

type bookingResp struct {
	ID        int64     `json:"id"`
	ClassID   int64     `json:"classId"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResp(b domain.Booking) bookingResp {
	return bookingResp{ID: b.ID, ClassID: b.ClassID, UserName: b.UserName, CreatedAt: b.CreatedAt}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/bookings", h.createBooking)
	r.Get("/bookings", h.listBookings)
	r.Get("/bookings/{id}", h.getBooking)

	return r
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateBooking")
	defer span.End()

	var req createBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.log, apperr.Wrap(err, apperr.Validation, "invalid request body"))
		return
	}

	b, err := h.service.CreateBooking(ctx, req.ClassID, req.UserName)
	if err != nil {
		span.RecordError(err)
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResp(b))
}

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListBookings(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	out := make([]bookingResp, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toResp(b))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, h.log, errInvalidID)
		return
	}
	b, err := h.service.GetBooking(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResp(b))
}
