package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// User-facing fallback messages
const (
	MsgInvalidData        = "invalid data"
	MsgCouldNotSubmit     = "could not submit the order"
	MsgTryAgain           = "something went wrong, please try again"
	MsgNotAuthenticated   = "not authenticated"
	MsgInvalidTransition  = "invalid state transition"
	MsgOrderInFlight      = "order is already being processed"
	MsgRoleNotPermitted   = "operation not permitted for this role"
	MsgEmailAlreadyInUse  = "email already in use"
	MsgResourceNotFound   = "not found"
	MsgInsufficientShares = "requested quantity exceeds the shares held"
)

var (
	// ErrAuthenticationMissing is returned when no acting user is resolvable
	ErrAuthenticationMissing = errors.New(MsgNotAuthenticated)
	// ErrInvalidTransition is the sentinel every TransitionError unwraps to
	ErrInvalidTransition = errors.New(MsgInvalidTransition)
	// ErrOrderInFlight is returned while an accept/reject for the same order is running
	ErrOrderInFlight = errors.New(MsgOrderInFlight)
	// ErrRoleNotPermitted is returned when the session role cannot perform the operation
	ErrRoleNotPermitted = errors.New(MsgRoleNotPermitted)
	// ErrNotFound is returned for unknown resources
	ErrNotFound = errors.New(MsgResourceNotFound)
)

// ValidationError is a local input problem detected before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError is returned when an order is not in a state that allows the action
type TransitionError struct {
	Message string
	From    OrderState
	To      OrderState
	OrderID int64
}

func (e *TransitionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.From != "" && e.To != "" {
		return fmt.Sprintf("%s: order %d cannot move from %s to %s", MsgInvalidTransition, e.OrderID, e.From, e.To)
	}
	return MsgInvalidTransition
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// BackendError is any failed exchange with the external backend.
// Status is zero when no HTTP response was received.
type BackendError struct {
	Err     error
	Op      string
	Message string
	Status  int
}

func (e *BackendError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsClientError reports a 4xx answer from the backend
func (e *BackendError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// UserMessage is the text shown to the user: the backend's own message when it
// sent one, otherwise a generic message chosen by status class.
func (e *BackendError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status == http.StatusBadRequest {
		return MsgInvalidData
	}
	return MsgTryAgain
}

// HTTPStatus maps an error to the status code paperdesk answers with
func HTTPStatus(err error) int {
	var validation *ValidationError
	var transition *TransitionError
	var backend *BackendError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthenticationMissing):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRoleNotPermitted):
		return http.StatusForbidden
	case errors.As(err, &transition), errors.Is(err, ErrOrderInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &backend):
		switch backend.Status {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
			return backend.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage extracts the message meant for the end user
func UserMessage(err error) string {
	var validation *ValidationError
	var transition *TransitionError
	var backend *BackendError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &transition):
		return transition.Error()
	case errors.As(err, &backend):
		return backend.UserMessage()
	}
	for _, sentinel := range []error{ErrAuthenticationMissing, ErrOrderInFlight, ErrRoleNotPermitted, ErrNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return MsgTryAgain
}
