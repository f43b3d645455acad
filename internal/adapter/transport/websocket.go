package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/livetracking"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

const (
	writeWait = 5 * time.Second
	// the service pings every 54s
	readWait = 75 * time.Second
)

// WebSocket subscribes to /ws/deliveries/{id} of the delivery service.
type WebSocket struct {
	baseURL string
	creds   models.Credentials
	dialer  *websocket.Dialer
	l       logger.Logger
}

// NewWebSocket accepts an http(s) or ws(s) base URL.
func NewWebSocket(baseURL string, creds models.Credentials, l logger.Logger) *WebSocket {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	}

	return &WebSocket{
		baseURL: base,
		creds:   creds,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		l: l,
	}
}

var _ livetracking.Transport = (*WebSocket)(nil)

func (t *WebSocket) Open(ctx context.Context, deliveryID string, sink livetracking.Sink) (io.Closer, error) {
	const op = "WebSocketTransport.Open"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, types.ActionTrackingSubscribe), deliveryID)

	header := http.Header{}
	if !t.creds.Empty() {
		header.Set("Authorization", "Bearer "+t.creds.Token)
	}

	target := t.baseURL + "/ws/deliveries/" + url.PathEscape(deliveryID)
	conn, resp, err := t.dialer.DialContext(ctx, target, header)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, handshakeError(resp, err)))
	}

	s := &wsStream{conn: conn, l: t.l}
	go s.read(ctx, sink)

	return s, nil
}

func handshakeError(resp *http.Response, err error) error {
	if resp == nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: handshake rejected", types.ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("%w: handshake rejected", types.ErrForbidden)
	case http.StatusNotFound:
		return types.ErrDeliveryNotFound
	default:
		return fmt.Errorf("handshake failed with status %d: %w", resp.StatusCode, err)
	}
}

type wsStream struct {
	conn *websocket.Conn
	l    logger.Logger

	mu      sync.Mutex
	closing bool
}

func (s *wsStream) read(ctx context.Context, sink livetracking.Sink) {
	_ = s.conn.SetReadDeadline(time.Now().Add(readWait))
	s.conn.SetPingHandler(func(data string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(readWait))
		err := s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.isClosing() {
				return
			}
			sink.OnError(readError(err))
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(readWait))

		var update models.TrackingUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			s.l.Warn(ctx, "skipping malformed tracking frame", "error", err.Error())
			continue
		}
		sink.OnEvent(update)
	}
}

func readError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return fmt.Errorf("%w: %v", types.ErrChannelClosed, closeErr)
	}
	return err
}

func (s *wsStream) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *wsStream) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return s.conn.Close()
}
