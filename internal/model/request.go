package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api_key"
)

type BodyType string

const (
	BodyJSON           BodyType = "json"
	BodyRaw            BodyType = "raw"
	BodyFormData       BodyType = "form-data"
	BodyFormURLEncoded BodyType = "x-www-form-urlencoded"
)

// Request describes one HTTP call as composed by the user. Wire format is
// shared with exports and history entries, so field names and defaults must
// stay stable.
type Request struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	Params      map[string]string `json:"params"`
	Body        string            `json:"body"`
	BodyType    BodyType          `json:"body_type"`
	AuthType    AuthType          `json:"auth_type"`
	AuthData    map[string]string `json:"auth_data"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	CreatedAt   float64           `json:"created_at"`
}

// NewRequest returns a request with the documented defaults applied.
func NewRequest() *Request {
	return &Request{
		Method:    "GET",
		Headers:   map[string]string{},
		Params:    map[string]string{},
		BodyType:  BodyJSON,
		AuthType:  AuthNone,
		AuthData:  map[string]string{},
		CreatedAt: NowUnix(),
	}
}

type requestAlias Request

// UnmarshalJSON decodes a request while tolerating missing optional fields by
// substituting the documented defaults.
func (r *Request) UnmarshalJSON(data []byte) error {
	alias := requestAlias{}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = Request(alias)
	if r.Method == "" {
		r.Method = "GET"
	}
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	if r.Params == nil {
		r.Params = map[string]string{}
	}
	if r.BodyType == "" {
		r.BodyType = BodyJSON
	}
	if r.AuthType == "" {
		r.AuthType = AuthNone
	}
	if r.AuthData == nil {
		r.AuthData = map[string]string{}
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = NowUnix()
	}
	return nil
}

// Clone returns a deep copy so duplicated collection items do not share maps.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Headers = copyMap(r.Headers)
	cp.Params = copyMap(r.Params)
	cp.AuthData = copyMap(r.AuthData)
	return &cp
}

// EffectiveHeaders returns the explicit headers with auth and content-type
// headers injected. Bearer tokens overwrite any explicit Authorization header;
// api-key headers are only added when the key, value, and header placement are
// all present.
func (r *Request) EffectiveHeaders() map[string]string {
	headers := copyMap(r.Headers)
	if headers == nil {
		headers = map[string]string{}
	}

	switch r.AuthType {
	case AuthBearer:
		if token := r.AuthData["token"]; token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	case AuthAPIKey:
		key := r.AuthData["key"]
		value := r.AuthData["value"]
		location := r.AuthData["location"]
		if location == "" {
			location = "header"
		}
		if key != "" && value != "" && location == "header" {
			headers[key] = value
		}
	}

	if r.Body != "" && isBodyMethod(r.Method) {
		switch r.BodyType {
		case BodyJSON:
			headers["Content-Type"] = "application/json"
		case BodyFormURLEncoded:
			headers["Content-Type"] = "application/x-www-form-urlencoded"
		}
	}

	return headers
}

// EffectiveBody returns nil for an empty body, the parsed document for a JSON
// body, and the raw string otherwise. A JSON body that fails to parse falls
// back to the raw string rather than failing the call.
func (r *Request) EffectiveBody() any {
	if r.Body == "" {
		return nil
	}
	if r.BodyType == BodyJSON {
		var parsed any
		if err := json.Unmarshal([]byte(r.Body), &parsed); err == nil {
			return parsed
		}
	}
	return r.Body
}

// Validate runs the ordered advisory checks. The first failing rule wins.
func (r *Request) Validate() (bool, string) {
	if r.URL == "" {
		return false, "URL is required"
	}
	if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
		return false, "URL must start with http:// or https://"
	}
	if r.BodyType == BodyJSON && r.Body != "" {
		var parsed any
		if err := json.Unmarshal([]byte(r.Body), &parsed); err != nil {
			return false, fmt.Sprintf("Invalid JSON in body: %v", err)
		}
	}
	return true, ""
}

// DisplayName is the label used when a request is added to a collection
// without an explicit name.
func (r *Request) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%s %s", r.Method, r.URL)
}

func isBodyMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH":
		return true
	default:
		return false
	}
}

func copyMap(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// NowUnix returns the current time as fractional unix seconds, the timestamp
// representation used across the persisted JSON documents.
func NowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
