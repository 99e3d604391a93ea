package recognition

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kozaktomas/face-roster/internal/photo"
)

// Response headers.
const (
	HeaderContentType    = "Content-Type"
	HeaderIdentityStatus = "X-Identity-Status"

	StatusCreated = "created"
	StatusMatched = "matched"
)

// Envelope is the transport-neutral response: a status code, headers and a JSON body string.
type Envelope struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// ErrorBody is the body of a failed identification.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ProxyEvent is a gateway-style invocation carrying the request as a JSON string.
type ProxyEvent struct {
	Body            string `json:"body"`
	IsBase64Encoded bool   `json:"isBase64Encoded,omitempty"`
}

// StatusCode maps an error kind to the status code of its envelope.
func StatusCode(kind string) int {
	switch kind {
	case KindDecode:
		return http.StatusBadRequest
	case KindOracle:
		return http.StatusBadGateway
	case KindStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ParseRequest decodes a JSON request body. Malformed JSON is reported as a decode error.
func ParseRequest(body []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, fmt.Errorf("parse request: %w: %w", photo.ErrDecode, err)
	}
	return req, nil
}

// ParseEvent extracts the request carried by a proxy event.
func ParseEvent(raw []byte) (Request, error) {
	var event ProxyEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return Request{}, fmt.Errorf("parse event: %w: %w", photo.ErrDecode, err)
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := photo.Decode(event.Body)
		if err != nil {
			return Request{}, fmt.Errorf("parse event body: %w", err)
		}
		body = decoded
	}
	return ParseRequest(body)
}

// BuildEnvelope renders a Result for a transport.
func BuildEnvelope(res Result) Envelope {
	headers := map[string]string{HeaderContentType: "application/json"}

	if res.Err == nil && res.Identification == nil {
		res.Err = fmt.Errorf("%w: empty result", ErrInternal)
	}

	if res.Err != nil {
		kind := ErrorKind(res.Err)
		message := res.Err.Error()
		if kind == KindInternal {
			message = ErrInternal.Error()
		}
		return Envelope{
			StatusCode: StatusCode(kind),
			Headers:    headers,
			Body:       mustJSON(ErrorBody{Error: message, Kind: kind}),
		}
	}

	headers[HeaderIdentityStatus] = StatusMatched
	if res.Identification.Created {
		headers[HeaderIdentityStatus] = StatusCreated
	}
	return Envelope{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       mustJSON(res.Identification),
	}
}

// mustJSON marshals values whose types cannot fail encoding.
func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal envelope body: %v", err))
	}
	return string(data)
}
