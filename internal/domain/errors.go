package domain

import (
	"errors"
	"fmt"
)

// ErrNoData marks an account whose fetch produced zero rows for the
// requested range. Zero rows almost always means a credential, permission
// or date problem rather than genuinely zero activity, so it is an
// operational failure, never a valid empty result.
var ErrNoData = errors.New("no data returned for account")

// ErrPagingDone signals normal cursor exhaustion during page traversal.
var ErrPagingDone = errors.New("paging done")

// retryableCodes are the upstream error codes worth retrying: API-unknown,
// service-unavailable, rate limits and token/session hiccups.
var retryableCodes = map[int]struct{}{
	1:   {},
	2:   {},
	4:   {},
	17:  {},
	32:  {},
	190: {},
	613: {},
}

// GraphError is a structured error returned by the Graph API.
type GraphError struct {
	Code    int    `json:"code"`
	Subcode int    `json:"error_subcode"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api error %d (%s): %s", e.Code, e.Type, e.Message)
}

// Retryable reports whether the error code is on the transient allow-list.
// All other codes (bad request, permission denied, ...) fail immediately.
func (e *GraphError) Retryable() bool {
	_, ok := retryableCodes[e.Code]
	return ok
}
