package client

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/thenoetrevino/dealflow/internal/events"
)

const (
	streamBackoffMin = 500 * time.Millisecond
	streamBackoffMax = 30 * time.Second
)

// StreamEvents follows /api/events and republishes every event on pub so a
// local board can refresh from a remote server. It reconnects with backoff
// until ctx is cancelled.
func (c *Client) StreamEvents(ctx context.Context, pub events.Publisher, types ...events.EventType) error {
	backoff := streamBackoffMin
	for {
		connected, err := c.streamOnce(ctx, pub, types)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = streamBackoffMin
		}
		c.logger.Warn("event stream interrupted", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, streamBackoffMax)
	}
}

// streamOnce reads one connection until it ends. connected reports whether
// the server accepted the stream.
func (c *Client) streamOnce(ctx context.Context, pub events.Publisher, types []events.EventType) (connected bool, err error) {
	query := url.Values{}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query.Set("types", strings.Join(names, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/events", query), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, &APIError{StatusCode: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				c.republish(pub, data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return true, err
	}
	return true, fmt.Errorf("stream closed by server")
}

func (c *Client) republish(pub events.Publisher, data string) {
	var event events.Event
	if err := sonic.UnmarshalString(data, &event); err != nil {
		c.logger.Warn("skipping malformed event frame", "error", err)
		return
	}
	if event.Origin == "" {
		event.Origin = c.base.Host
	}
	pub.Publish(event)
}
