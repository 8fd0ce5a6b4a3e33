package response

import (
	"errors"
	"net/http"
	"testing"

	"grievance/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindInvalidTransition, http.StatusUnprocessableEntity},
		{apperr.KindInvalidState, http.StatusUnprocessableEntity},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindAlreadyClosed, http.StatusConflict},
		{apperr.KindForbidden, http.StatusForbidden},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(apperr.New(tc.kind, "boom")))
	}

	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
}

func TestFromError(t *testing.T) {
	status, body := FromError(apperr.New(apperr.KindNotFound, "complaint not found"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "complaint not found", body.Error)
}

func TestFromErrorWrappedCause(t *testing.T) {
	wrapped := apperr.Wrap(apperr.KindConflict, "version check failed", errors.New("stale row"))
	status, body := FromError(wrapped)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body.Error, "version check failed")
}
