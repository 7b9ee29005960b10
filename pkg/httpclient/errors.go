package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

// upstreamErrorBody accepts both the {"error":{"code","message"}} envelope
// used by this service and the {"error":{"code","description"}} shape used
// by payment providers.
type upstreamErrorBody struct {
	Error *struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		Description string `json:"description"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// maps it to an AppError. Call it only for error statuses.
//
// Client-side rejections keep their meaning (4xx). Credential
// problems (401, 403) are our misconfiguration, so they become internal
// errors rather than being blamed on the caller. Rate limiting and server
// errors become retryable provider failures.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.ProviderFailure(upstream+" request failed",
			fmt.Errorf("status %d, read body: %w", resp.StatusCode, err))
	}

	code, message := "", string(raw)
	var body upstreamErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Error != nil {
		code = body.Error.Code
		message = body.Error.Message
		if message == "" {
			message = body.Error.Description
		}
	}
	return mapStatus(resp.StatusCode, code, message, upstream)
}

func mapStatus(status int, code, message, upstream string) error {
	qualified := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream+" resource", message)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.Internal(fmt.Errorf("%s rejected credentials (%d %s): %s", upstream, status, code, message))
	case status == http.StatusTooManyRequests, status >= 500:
		return apperrors.ProviderFailure(upstream+" unavailable",
			fmt.Errorf("status %d %s: %s", status, code, message))
	case IsClientError(status):
		return apperrors.InvalidInput(qualified)
	default:
		return apperrors.ProviderFailure(upstream+" request failed",
			fmt.Errorf("unexpected status %d %s: %s", status, code, message))
	}
}

// IsClientError reports whether status is 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
