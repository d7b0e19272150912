package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Response is the normalized result of one HTTP call. When Error is set the
// status fields are not meaningful and stay at their zero values.
type Response struct {
	StatusCode   int               `json:"status_code"`
	StatusText   string            `json:"status_text"`
	Headers      map[string]string `json:"headers"`
	Body         string            `json:"body"`
	ResponseTime float64           `json:"response_time"`
	Size         int               `json:"size"`
	Timestamp    float64           `json:"timestamp"`
	Error        string            `json:"error,omitempty"`
}

// NewResponse returns a response stamped with the current time.
func NewResponse() *Response {
	return &Response{Headers: map[string]string{}, Timestamp: NowUnix()}
}

// ErrorResponse builds a transport-failure response carrying the elapsed time
// up to the failure point.
func ErrorResponse(message string, elapsedMS float64) *Response {
	resp := NewResponse()
	resp.Error = message
	resp.ResponseTime = elapsedMS
	return resp
}

type responseAlias Response

func (r *Response) UnmarshalJSON(data []byte) error {
	alias := responseAlias{}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = Response(alias)
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	if r.Timestamp == 0 {
		r.Timestamp = NowUnix()
	}
	return nil
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsJSON reports whether the content-type header declares a JSON payload.
func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.headerValue("content-type")), "application/json")
}

// ContentType returns the response content type, defaulting to text/plain.
func (r *Response) ContentType() string {
	if ct := r.headerValue("content-type"); ct != "" {
		return ct
	}
	return "text/plain"
}

// FormattedBody pretty-prints JSON payloads and passes everything else
// through untouched.
func (r *Response) FormattedBody() string {
	if r.Body == "" {
		return ""
	}
	if r.IsJSON() {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(r.Body), "", "  "); err == nil {
			return buf.String()
		}
	}
	return r.Body
}

// FormattedSize renders the payload size for display.
func (r *Response) FormattedSize() string {
	switch {
	case r.Size < 1024:
		return fmt.Sprintf("%d B", r.Size)
	case r.Size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(r.Size)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(r.Size)/(1024*1024))
	}
}

// FormattedTime renders the elapsed time for display.
func (r *Response) FormattedTime() string {
	if r.ResponseTime < 1000 {
		return fmt.Sprintf("%.0f ms", r.ResponseTime)
	}
	return fmt.Sprintf("%.1f s", r.ResponseTime/1000)
}

// headerValue looks a header up case-insensitively; responses keep header
// names exactly as received.
func (r *Response) headerValue(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
