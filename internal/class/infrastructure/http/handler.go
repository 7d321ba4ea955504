package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Gym-Booking-System/internal/class/application"
	"github.com/dmehra2102/Gym-Booking-System/internal/class/domain"
	"github.com/dmehra2102/Gym-Booking-System/pkg/apperr"
	"github.com/dmehra2102/Gym-Booking-System/pkg/httpx"
)

var errInvalidID = apperr.New(apperr.Validation, "class id must be a positive number")

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("class-http"),
	}
}

type createClassReq struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type classResp struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TotalCapacity  int    `json:"totalCapacity"`
	AvailableSpots int    `json:"availableSpots"`
}

func toResp(c *domain.GymClass) classResp {
	return classResp{
		ID:             c.ID(),
		Name:           c.Name(),
		TotalCapacity:  c.Capacity().Total(),
		AvailableSpots: c.Capacity().Available(),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/classes", h.createClass)
	r.Get("/classes", h.listClasses)
	r.Get("/classes/{id}", h.getClass)

	return r
}

func (h *Handler) createClass(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateClass")
	defer span.End()

	var req createClassReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.log, apperr.Wrap(err, apperr.Validation, "invalid request body"))
		return
	}

	class, err := h.service.CreateClass(ctx, req.Name, req.Capacity)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResp(class))
}

func (h *Handler) listClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ListClasses(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	out := make([]classResp, 0, len(classes))
	for _, c := range classes {
		out = append(out, toResp(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) getClass(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, h.log, errInvalidID)
		return
	}
	class, err := h.service.GetClass(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResp(class))
}
