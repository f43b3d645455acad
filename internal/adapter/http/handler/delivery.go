package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/delivery-tracking/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

type DeliveryService interface {
	UpdateLocation(ctx context.Context, deliveryID string, pos models.Position) (*models.LocationReceipt, error)
	UpdateStatus(ctx context.Context, deliveryID, rawStatus string) (*models.DeliveryProjection, error)
	Get(ctx context.Context, deliveryID string) (*models.DeliveryProjection, error)
}

type Delivery struct {
	service DeliveryService
	l       logger.Logger
}

func NewDelivery(service DeliveryService, l logger.Logger) *Delivery {
	return &Delivery{
		service: service,
		l:       l,
	}
}

// UpdateLocation godoc
// @Summary      Update driver location
// @Description  Stores the driver's latest position for a delivery and pushes it to live subscribers
// @Tags         Deliveries
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Delivery ID"
// @Param        request  body      dto.UpdateLocationReq  true  "Driver position"
// @Success      200      {object}  models.LocationReceipt
// @Failure      401      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Failure      422      {object}  map[string]any
// @Security     BearerAuth
// @Router       /deliveries/{id}/update-location [post]
func (h *Delivery) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.PathValue("id")
	ctx := wrap.WithDeliveryID(wrap.WithAction(r.Context(), "update_location_handler"), deliveryID)

	var req dto.UpdateLocationReq
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		failedValidationResponse(w, errs)
		return
	}

	receipt, err := h.service.UpdateLocation(ctx, deliveryID, req.ToModel())
	if err != nil {
		h.logServiceError(ctx, "failed to update location", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"delivery_id": receipt.DeliveryID, "updated_at": receipt.UpdatedAt}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// UpdateStatus godoc
// @Summary      Update delivery status
// @Description  Applies a status transition. Accepts legacy spellings such as "Out for delivery".
// @Tags         Deliveries
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Delivery ID"
// @Param        request  body      dto.UpdateStatusReq  true  "Target status"
// @Success      200      {object}  models.DeliveryProjection
// @Failure      401      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      422      {object}  map[string]any
// @Security     BearerAuth
// @Router       /deliveries/{id}/update-status [post]
func (h *Delivery) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.PathValue("id")
	ctx := wrap.WithDeliveryID(wrap.WithAction(r.Context(), "update_status_handler"), deliveryID)

	var req dto.UpdateStatusReq
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		failedValidationResponse(w, errs)
		return
	}

	projection, err := h.service.UpdateStatus(ctx, deliveryID, req.Status)
	if err != nil {
		h.logServiceError(ctx, "failed to update status", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, projectionEnvelope(projection), nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// Get godoc
// @Summary      Get delivery
// @Description  Returns the delivery status and the last known driver location
// @Tags         Deliveries
// @Produce      json
// @Param        id   path      string  true  "Delivery ID"
// @Success      200  {object}  models.DeliveryProjection
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /deliveries/{id} [get]
func (h *Delivery) Get(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.PathValue("id")
	ctx := wrap.WithDeliveryID(wrap.WithAction(r.Context(), "get_delivery_handler"), deliveryID)

	projection, err := h.service.Get(ctx, deliveryID)
	if err != nil {
		h.logServiceError(ctx, "failed to get delivery", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, projectionEnvelope(projection), nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// logServiceError logs client mistakes at warn level and everything else as errors.
func (h *Delivery) logServiceError(ctx context.Context, msg string, err error) {
	if GetCode(err) < http.StatusInternalServerError {
		h.l.Warn(wrap.ErrorCtx(ctx, err), msg, "error", err.Error())
		return
	}
	h.l.Error(wrap.ErrorCtx(ctx, err), msg, err)
}

func projectionEnvelope(p *models.DeliveryProjection) envelope {
	env := envelope{
		"delivery_id": p.DeliveryID,
		"status":      p.Status,
		"updated_at":  p.UpdatedAt,
	}
	if p.LastKnownDriverLocation != nil {
		env["last_known_driver_location"] = p.LastKnownDriverLocation
	}
	return env
}
