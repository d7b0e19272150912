package model

import "testing"

func TestIsSuccess(t *testing.T) {
	t.Parallel()

	resp := &Response{StatusCode: 204}
	if !resp.IsSuccess() {
		t.Fatalf("204 should be success")
	}
	resp.StatusCode = 500
	if resp.IsSuccess() {
		t.Fatalf("500 should not be success")
	}
	resp.StatusCode = 199
	if resp.IsSuccess() {
		t.Fatalf("199 should not be success")
	}
}

func TestIsJSONCaseInsensitive(t *testing.T) {
	t.Parallel()

	resp := &Response{Headers: map[string]string{"Content-Type": "Application/JSON; charset=utf-8"}}
	if !resp.IsJSON() {
		t.Fatalf("expected JSON content type to be detected")
	}
	resp.Headers = map[string]string{"content-type": "text/html"}
	if resp.IsJSON() {
		t.Fatalf("html is not JSON")
	}
}

func TestFormattedBodyPrettyPrintsJSON(t *testing.T) {
	t.Parallel()

	resp := &Response{
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    `{"a":1}`,
	}
	if got := resp.FormattedBody(); got != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected formatted body %q", got)
	}

	resp.Body = "{broken"
	if got := resp.FormattedBody(); got != "{broken" {
		t.Fatalf("broken JSON must pass through, got %q", got)
	}
}

func TestFormattedSizeAndTime(t *testing.T) {
	t.Parallel()

	resp := &Response{Size: 512, ResponseTime: 250}
	if resp.FormattedSize() != "512 B" || resp.FormattedTime() != "250 ms" {
		t.Fatalf("got %q %q", resp.FormattedSize(), resp.FormattedTime())
	}
	resp.Size = 2048
	resp.ResponseTime = 1500
	if resp.FormattedSize() != "2.0 KB" || resp.FormattedTime() != "1.5 s" {
		t.Fatalf("got %q %q", resp.FormattedSize(), resp.FormattedTime())
	}
	resp.Size = 3 * 1024 * 1024
	if resp.FormattedSize() != "3.0 MB" {
		t.Fatalf("got %q", resp.FormattedSize())
	}
}

func TestErrorResponseKeepsElapsed(t *testing.T) {
	t.Parallel()

	resp := ErrorResponse("Request timed out", 123.4)
	if resp.Error != "Request timed out" || resp.ResponseTime != 123.4 {
		t.Fatalf("unexpected error response %#v", resp)
	}
	if resp.StatusCode != 0 || resp.IsSuccess() {
		t.Fatalf("error responses must not look successful")
	}
}
