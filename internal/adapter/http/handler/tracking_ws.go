package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-tracking/pkg/metrics"
	ws "github.com/Temutjin2k/delivery-tracking/pkg/wsHub"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TrackingWS streams TrackingUpdate frames for one delivery to a subscriber.
type TrackingWS struct {
	service     DeliveryService
	hub         *ws.ConnectionHub
	serviceName string
	l           logger.Logger
}

func NewTrackingWS(service DeliveryService, hub *ws.ConnectionHub, serviceName string, l logger.Logger) *TrackingWS {
	return &TrackingWS{
		service:     service,
		hub:         hub,
		serviceName: serviceName,
		l:           l,
	}
}

// Subscribe godoc
// @Summary      Live delivery tracking
// @Description  Upgrades to a WebSocket that first receives the current state and then every accepted update as a TrackingUpdate JSON frame
// @Tags         Deliveries
// @Param        id   path  string  true  "Delivery ID"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /ws/deliveries/{id} [get]
func (h *TrackingWS) Subscribe(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.PathValue("id")
	ctx := wrap.WithDeliveryID(wrap.WithAction(r.Context(), "tracking_ws"), deliveryID)

	if _, err := h.service.Get(ctx, deliveryID); err != nil {
		serviceErrorResponse(w, err)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	conn := ws.NewConn(ctx, deliveryID, wsConn)
	if err := h.hub.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register websocket connection", err)
		_ = conn.Close()
		return
	}
	metrics.WebSocketConnectionsGauge.WithLabelValues(h.serviceName).Inc()
	defer func() {
		_ = h.hub.Delete(conn.ID())
		metrics.WebSocketConnectionsGauge.WithLabelValues(h.serviceName).Dec()
	}()

	h.l.Debug(ctx, "tracking subscriber connected", "conn_id", conn.ID().String())

	// read the state again now that broadcasts reach this connection
	if snapshot, err := h.service.Get(ctx, deliveryID); err == nil {
		if err := conn.Send(snapshotUpdate(snapshot)); err != nil {
			h.l.Warn(ctx, "failed to send initial snapshot", "error", err.Error())
			return
		}
	}

	if err := conn.Listen(); err != nil {
		h.l.Debug(ctx, "tracking subscriber disconnected", "conn_id", conn.ID().String(), "reason", err.Error())
	}
}

func snapshotUpdate(p *models.DeliveryProjection) models.TrackingUpdate {
	status := p.Status
	return models.TrackingUpdate{
		DeliveryID:     p.DeliveryID,
		Timestamp:      p.UpdatedAt,
		DriverLocation: p.LastKnownDriverLocation,
		Status:         &status,
	}
}
