package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusAndUserMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"nil", nil, http.StatusOK, ""},
		{"validation", NewValidationError("quantity", "quantity must be a positive integer"), http.StatusBadRequest, "quantity: quantity must be a positive integer"},
		{"no session", ErrAuthenticationMissing, http.StatusUnauthorized, MsgNotAuthenticated},
		{"wrong role", fmt.Errorf("submit: %w", ErrRoleNotPermitted), http.StatusForbidden, MsgRoleNotPermitted},
		{"in flight", ErrOrderInFlight, http.StatusConflict, MsgOrderInFlight},
		{"transition with backend text", &TransitionError{OrderID: 4, Message: "La orden no está pendiente"}, http.StatusConflict, "La orden no está pendiente"},
		{"not found", ErrNotFound, http.StatusNotFound, MsgResourceNotFound},
		{"backend 400 without text", &BackendError{Op: "submit_order", Status: http.StatusBadRequest}, http.StatusBadRequest, MsgInvalidData},
		{"backend 500", &BackendError{Op: "positions", Status: http.StatusInternalServerError}, http.StatusBadGateway, MsgTryAgain},
		{"backend unreachable", &BackendError{Op: "positions", Err: errors.New("connection refused")}, http.StatusBadGateway, MsgTryAgain},
		{"backend 404 with text", &BackendError{Op: "get_agent", Status: http.StatusNotFound, Message: "Comisionista no encontrado"}, http.StatusNotFound, "Comisionista no encontrado"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, MsgTryAgain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.message, UserMessage(tt.err))
		})
	}
}

func TestTransitionErrorMessage(t *testing.T) {
	err := &TransitionError{OrderID: 9, From: OrderStateExecuted, To: OrderStateAccepted}
	assert.Contains(t, err.Error(), MsgInvalidTransition)
	assert.Contains(t, err.Error(), "EXECUTED")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, MsgInvalidTransition, (&TransitionError{}).Error())
}

func TestBackendErrorUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := &BackendError{Op: "quote", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.IsClientError())
	assert.True(t, (&BackendError{Status: http.StatusConflict}).IsClientError())
}
