package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/internal/realtime"
	"github.com/d60-Lab/skycial/pkg/logger"
)

const eventBuffer = 64

// PostEvents returns the server's post change stream as a realtime.Source.
func (c *Client) PostEvents() realtime.Source {
	return eventSource{c: c, path: "/api/v1/realtime/posts"}
}

type eventSource struct {
	c    *Client
	path string
}

// Subscribe opens the stream and waits for the ready frame. The channel is
// closed when ctx ends or the server drops the connection.
func (s eventSource) Subscribe(ctx context.Context) (<-chan realtime.ChangeEvent, error) {
	u := s.c.baseURL + s.path
	if tok := s.c.Token(); tok != "" {
		u += "?access_token=" + url.QueryEscape(tok)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// 流式连接不能套用普通请求的超时
	hc := *s.c.http
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", s.path, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{Status: resp.StatusCode, Message: resp.Status}
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	name, _, err := readFrame(sc)
	if err != nil || name != "ready" {
		resp.Body.Close()
		if err == nil {
			err = fmt.Errorf("unexpected first event %q", name)
		}
		return nil, fmt.Errorf("subscribe %s: %w", s.path, err)
	}

	out := make(chan realtime.ChangeEvent, eventBuffer)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		for {
			name, data, err := readFrame(sc)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("change stream ended", zap.Error(err))
				}
				return
			}
			if name != "change" {
				continue
			}
			var ev realtime.ChangeEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				logger.Warn("drop malformed change event", zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// readFrame reads one event terminated by a blank line. Multiple data lines
// are joined with newlines; comment lines are skipped.
func readFrame(sc *bufio.Scanner) (name, data string, err error) {
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if name == "" && lines == nil {
				continue
			}
			return name, strings.Join(lines, "\n"), nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			lines = append(lines, value)
		}
	}
	if err := sc.Err(); err != nil {
		return "", "", err
	}
	return "", "", fmt.Errorf("stream closed")
}
