package api

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/dealflow/internal/events"
)

// streamEvents relays bus events as Server-Sent Events.
// ?types=task.moved,task.created narrows the stream.
func (s *Server) streamEvents(c echo.Context) error {
	if s.svc.Bus == nil {
		return errServiceUnavailable
	}

	var types []events.EventType
	for _, raw := range strings.Split(c.QueryParam("types"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		t := events.EventType(raw)
		if !t.Known() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown event type "+raw)
		}
		types = append(types, t)
	}

	res := c.Response()
	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "stream unsupported")
	}

	sub := s.svc.Bus.Subscribe(types...)
	defer sub.Close()

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write([]byte(": connected\n\n")); err != nil {
		return nil
	}
	flusher.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-ticker.C:
			if _, err := res.Write([]byte(": keep-alive\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			frame, err := sseFrame(event)
			if err != nil {
				s.logger.Error("failed to encode event", "event_type", event.Type, "error", err)
				continue
			}
			if _, err := res.Write(frame); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func sseFrame(event events.Event) ([]byte, error) {
	data, err := sonic.Marshal(event)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString("id: ")
	b.WriteString(strconv.FormatInt(event.SequenceID, 10))
	b.WriteString("\nevent: ")
	b.WriteString(string(event.Type))
	b.WriteString("\ndata: ")
	b.Write(data)
	b.WriteString("\n\n")
	return b.Bytes(), nil
}
