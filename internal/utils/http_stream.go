package utils

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leofalp/agentspace/providers/observability"
)

// HeaderOption is an extra request header applied after the defaults.
type HeaderOption struct {
	Key   string
	Value string
}

// DoPostStream performs an HTTP POST request and returns the raw response with body
// left open for SSE reading. The caller is responsible for closing the response body
// when done reading. On error paths the body is read and closed before returning.
//
// This follows the same pattern as DoPostSync but does not consume the response body,
// enabling streaming consumption via SSEScanner.
func DoPostStream(ctx context.Context, client *http.Client, url string, body any, headers ...HeaderOption) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.stream_request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	requestStart := time.Now()
	response, err := httpClient.Do(req)
	requestDuration := time.Since(requestStart)

	if err != nil {
		if span != nil {
			span.AddEvent("http.stream_request.error",
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, requestDuration),
			)
		}
		return response, fmt.Errorf("error sending stream request: %w", err)
	}

	// For non-2xx responses, read the body and close it before returning the error
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			return response, fmt.Errorf("non-2xx status %d (failed to read body: %v)", response.StatusCode, readErr)
		}
		return response, fmt.Errorf("non-2xx status %d: %s", response.StatusCode, TruncateStringDefault(strings.TrimSpace(string(errorBody))))
	}

	if span != nil {
		span.AddEvent("http.stream_response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration(observability.AttrHTTPDuration, requestDuration),
		)
	}

	return response, nil
}

// maxSSELineSize is the maximum size of a single SSE line (1 MB).
// The default bufio.Scanner limit is 64 KiB, which is too small for
// a final metadata frame carrying a long explanation or many sources.
const maxSSELineSize = 1 * 1024 * 1024

// maxResponseBodySize is the maximum response body size (10 MB). Enforced via
// io.LimitReader to prevent unbounded memory allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// DefaultEventName is the event name of a frame without an "event:" field.
const DefaultEventName = "message"

// DoneSentinel is the literal data payload of the legacy terminal frame.
const DoneSentinel = "[DONE]"

// Frame is one decoded SSE frame.
type Frame struct {
	// Event is the "event:" field, DefaultEventName when absent.
	Event string
	// Data is the "data:" payload. It is either empty or valid JSON, unless
	// Done is set.
	Data string
	// Done reports that Data is the DoneSentinel literal.
	Done bool
}

// SSEScanner reads Server-Sent Events frames from an io.Reader.
//
// Frames are delimited by blank lines; a frame may arrive split across any
// number of network reads. Comment lines are ignored. A frame whose data
// payload is neither empty, the DoneSentinel, nor valid JSON is skipped, and
// an unterminated frame left over at end of stream is discarded.
type SSEScanner struct {
	scanner *bufio.Scanner
	skipped int
}

// NewSSEScanner creates an SSEScanner that reads SSE frames from the given reader.
// The scanner supports individual SSE lines up to maxSSELineSize (1 MB). Lines
// exceeding this limit will cause Next() to return an error wrapping bufio.ErrTooLong.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{
		scanner: scanner,
	}
}

// Next returns the next complete frame.
// Returns io.EOF when the underlying reader is exhausted.
func (sseScanner *SSEScanner) Next() (Frame, error) {
	var pending *frameBuilder

	for sseScanner.scanner.Scan() {
		line := sseScanner.scanner.Text()

		if line == "" {
			if pending == nil {
				continue
			}
			frame, ok := pending.build()
			pending = nil
			if !ok {
				sseScanner.skipped++
				continue
			}
			return frame, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if pending == nil {
			pending = &frameBuilder{}
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		switch field {
		case "event":
			pending.event = value
		case "data":
			pending.data = append(pending.data, value)
		}
		// id: and retry: carry nothing the client uses
	}

	if err := sseScanner.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("SSE scanner error: %w", err)
	}

	return Frame{}, io.EOF
}

// Skipped returns how many frames were dropped because their data payload
// was not valid JSON.
func (sseScanner *SSEScanner) Skipped() int {
	return sseScanner.skipped
}

type frameBuilder struct {
	event string
	data  []string
}

func (builder *frameBuilder) build() (Frame, bool) {
	frame := Frame{
		Event: builder.event,
		Data:  strings.Join(builder.data, "\n"),
	}
	if frame.Event == "" {
		frame.Event = DefaultEventName
	}

	switch {
	case frame.Data == DoneSentinel:
		frame.Done = true
	case frame.Data != "" && !json.Valid([]byte(frame.Data)):
		return Frame{}, false
	}
	return frame, true
}
