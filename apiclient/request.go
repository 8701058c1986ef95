package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"golang.org/x/oauth2"
)

// Request describes one logical backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// JSON is encoded as the request body when set
	JSON any

	// Body and ContentType send a pre-encoded body (e.g., multipart) unchanged
	Body        []byte
	ContentType string

	// Token overrides the client's token source for this request
	Token *oauth2.Token

	// Anonymous sends no bearer header at all
	Anonymous bool
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("[Response Decode] %w: %v", apperrors.ErrMalformedPayload, err)
	}
	return nil
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func (r *Request) mutating() bool {
	switch r.method() {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// encodeBody returns the body to send for this attempt. JSON object bodies
// also carry the anti-forgery token; multipart and other raw bodies do not.
func (r *Request) encodeBody(csrfToken string) ([]byte, string, error) {
	if r.JSON != nil {
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("[apiclient Do] encode body: %w", err)
		}
		return withCSRFField(data, csrfToken), "application/json", nil
	}
	if r.Body == nil {
		return nil, r.ContentType, nil
	}
	if isJSON(r.ContentType) {
		return withCSRFField(r.Body, csrfToken), r.ContentType, nil
	}
	return r.Body, r.ContentType, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func withCSRFField(data []byte, csrfToken string) []byte {
	if csrfToken == "" || !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return data
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return data
	}
	token, _ := json.Marshal(csrfToken)
	fields[csrfBodyField] = token

	out, err := json.Marshal(fields)
	if err != nil {
		return data
	}
	return out
}
