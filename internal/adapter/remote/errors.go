package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

// HTTPStatusError is returned for non-2xx responses. It unwraps to the domain
// error matching the status, if any.
type HTTPStatusError struct {
	Code int
	Body string
	kind error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Body)
}

func (e *HTTPStatusError) Unwrap() error {
	return e.kind
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	body := strings.TrimSpace(string(b))

	e := &HTTPStatusError{Code: resp.StatusCode, Body: body}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		e.kind = types.ErrSessionExpired
	case http.StatusForbidden:
		e.kind = types.ErrForbidden
	case http.StatusNotFound:
		e.kind = types.ErrDeliveryNotFound
	case http.StatusConflict:
		e.kind = types.ErrDeliveryTerminal
	case http.StatusUnprocessableEntity:
		e.kind = unprocessableKind(b)
	}
	return e
}

// unprocessableKind tells the 422 flavours apart by the error payload.
func unprocessableKind(body []byte) error {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	var msg string
	if json.Unmarshal(payload.Error, &msg) == nil {
		for _, target := range []error{types.ErrUnknownStatus, types.ErrInvalidPosition} {
			if msg == target.Error() {
				return target
			}
		}
		return nil
	}

	var detail map[string]any
	if json.Unmarshal(payload.Error, &detail) == nil {
		if _, ok := detail["from"]; ok {
			return types.ErrInvalidTransition
		}
		// field validation errors
		return types.ErrInvalidPosition
	}
	return nil
}
