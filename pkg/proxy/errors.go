package proxy

import (
	"context"
	"errors"
	"net/http"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/types"
	"github.com/MiXaiLL76/auto-ai-router/pkg/routing"
)

// HandleError maps any dispatch error to an OpenAI-shaped error body and
// an HTTP status. Upstream statuses are preserved where possible; in
// particular a 429 passes through as 429.
func HandleError(err error) (*types.ErrorResponse, int) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse(), http.StatusBadRequest
	}

	var unknownModel *routing.UnknownModelError
	if errors.As(err, &unknownModel) {
		return types.NewModelNotFoundError(unknownModel.Error()), http.StatusNotFound
	}

	var noCred *credential.NoEligibleCredentialError
	if errors.As(err, &noCred) {
		return types.NewServiceUnavailableError(noCred.Error()), http.StatusServiceUnavailable
	}

	var adapterErr *providers.AdapterError
	if errors.As(err, &adapterErr) {
		return types.NewInvalidRequestError(adapterErr.Error(), "", types.CodeInvalidValue), http.StatusBadRequest
	}

	var rateLimitErr *providers.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return types.NewErrorResponse(rateLimitErr.Error(), types.ErrorTypeRateLimitExceeded, "", "rate_limit_exceeded"),
			http.StatusTooManyRequests
	}

	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		// Upstream rejected the gateway's credential; the client request
		// itself was fine, so this surfaces as a gateway failure.
		return types.NewBadGatewayError(authErr.Error()), http.StatusBadGateway
	}

	var upstreamErr *providers.UpstreamError
	if errors.As(err, &upstreamErr) {
		if upstreamErr.Transient() {
			return types.NewBadGatewayError(upstreamErr.Error()), http.StatusBadGateway
		}
		// Permanent upstream 4xx: preserve the upstream status.
		return types.NewInvalidRequestError(upstreamErr.Message, "", types.CodeProviderError), upstreamErr.StatusCode
	}

	var parseErr *providers.ParseError
	if errors.As(err, &parseErr) {
		return types.NewBadGatewayError(parseErr.Error()), http.StatusBadGateway
	}

	var netErr *providers.NetworkError
	if errors.As(err, &netErr) {
		return types.NewBadGatewayError(netErr.Error()), http.StatusBadGateway
	}

	var streamErr *providers.StreamError
	if errors.As(err, &streamErr) {
		return types.NewBadGatewayError(streamErr.Error()), http.StatusBadGateway
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewGatewayTimeoutError("Upstream request timed out."), http.StatusGatewayTimeout
	}

	return types.NewServerError("An internal error occurred. Please try again later."), http.StatusInternalServerError
}

func asValidationError(err error, target **types.ValidationError) bool {
	return errors.As(err, target)
}
