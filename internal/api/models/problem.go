package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, written as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemTypeBase prefixes every problem type URI.
const ProblemTypeBase = "https://routegrade.dev/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation      = ProblemTypeBase + "validation-error"
	ProblemTypeUnauthorized    = ProblemTypeBase + "unauthorized"
	ProblemTypeTLSRequired     = ProblemTypeBase + "tls-required"
	ProblemTypeNotFound        = ProblemTypeBase + "not-found"
	ProblemTypeUnsupportedType = ProblemTypeBase + "unsupported-media-type"
	ProblemTypeTooManyRequests = ProblemTypeBase + "too-many-requests"
	ProblemTypeInternal        = ProblemTypeBase + "internal-error"
	ProblemTypeUnavailable     = ProblemTypeBase + "service-unavailable"
)

type problemKind struct {
	typ   string
	title string
}

// problemKinds maps each status the API emits to its problem type. The only
// 403 the API produces is the plain-HTTP rejection.
var problemKinds = map[int]problemKind{
	http.StatusBadRequest:           {ProblemTypeValidation, "Validation error"},
	http.StatusUnauthorized:         {ProblemTypeUnauthorized, "Unauthorized"},
	http.StatusForbidden:            {ProblemTypeTLSRequired, "TLS required"},
	http.StatusNotFound:             {ProblemTypeNotFound, "Not found"},
	http.StatusUnsupportedMediaType: {ProblemTypeUnsupportedType, "Unsupported media type"},
	http.StatusTooManyRequests:      {ProblemTypeTooManyRequests, "Too many requests"},
	http.StatusInternalServerError:  {ProblemTypeInternal, "Internal server error"},
	http.StatusServiceUnavailable:   {ProblemTypeUnavailable, "Service unavailable"},
}

// NewProblem builds the problem for status. Statuses without a registered
// kind fall back to about:blank and the standard status text.
func NewProblem(status int, traceID, detail string) *Problem {
	kind, ok := problemKinds[status]
	if !ok {
		kind = problemKind{typ: "about:blank", title: http.StatusText(status)}
	}
	return &Problem{
		Type:    kind.typ,
		Title:   kind.title,
		Status:  status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 problem carrying field errors.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(http.StatusBadRequest, traceID, detail)
	p.Errors = errors
	return p
}

func NewUnauthorized(traceID, detail string) *Problem {
	return NewProblem(http.StatusUnauthorized, traceID, detail)
}

func NewNotFound(traceID, detail string) *Problem {
	return NewProblem(http.StatusNotFound, traceID, detail)
}

func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return NewProblem(http.StatusUnsupportedMediaType, traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblem(http.StatusTooManyRequests, traceID, detail)
}

func NewInternalError(traceID, detail string) *Problem {
	return NewProblem(http.StatusInternalServerError, traceID, detail)
}

// NewTLSRequired rejects a request that reached the service over plain HTTP.
func NewTLSRequired(traceID string) *Problem {
	return NewProblem(http.StatusForbidden, traceID, "This endpoint requires HTTPS")
}

func NewServiceUnavailable(traceID, detail string) *Problem {
	return NewProblem(http.StatusServiceUnavailable, traceID, detail)
}
