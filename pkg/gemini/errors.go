package gemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

type apiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type apiErrorResponse struct {
	Error *apiErrorBody `json:"error"`
}

// classifyResponse maps a non-2xx API response onto the closed error-kind
// set. This is the single place classification happens; callers switch on
// the kind and never inspect the message again.
func classifyResponse(statusCode int, body []byte) *domain.APIError {
	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return classify(statusCode, parsed.Error.Status, parsed.Error.Message)
	}

	return classify(statusCode, "", fmt.Sprintf("unexpected status code %d: %s", statusCode, body))
}

func classify(statusCode int, status, message string) *domain.APIError {
	kind := domain.ErrorKindUnknown

	switch {
	case status == "RESOURCE_EXHAUSTED" || statusCode == http.StatusTooManyRequests:
		kind = domain.ErrorKindQuotaExhausted
	case status == "PERMISSION_DENIED" || statusCode == http.StatusForbidden:
		kind = domain.ErrorKindPermissionDenied
	case status == "UNAUTHENTICATED" || statusCode == http.StatusUnauthorized:
		kind = domain.ErrorKindInvalidKey
	case status == "INVALID_ARGUMENT" && strings.Contains(message, "API key"):
		kind = domain.ErrorKindInvalidKey
	}

	return &domain.APIError{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
	}
}
