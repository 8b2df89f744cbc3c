// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/finscope/internal/platform/apperr"
)

/*
TestAppError_IsMatchesByCode verifies errors.Is semantics across wrapping.
*/
func TestAppError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("signin: %w", apperr.InvalidToken(errors.New("missing sub")))

	assert.True(t, errors.Is(wrapped, apperr.InvalidToken(nil)))
	assert.False(t, errors.Is(wrapped, apperr.OAuthExchangeFailed(nil)))
	assert.True(t, apperr.HasCode(wrapped, apperr.CodeInvalidToken))
}

/*
TestRejected_MapsStatus verifies backend 4xx statuses keep a sensible code.
*/
func TestRejected_MapsStatus(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, apperr.CodeValidation},
		{http.StatusUnauthorized, apperr.CodeInvalidCredentials},
		{http.StatusNotFound, apperr.CodeNotFound},
		{http.StatusConflict, apperr.CodeConflict},
		{http.StatusTooManyRequests, apperr.CodeRateLimited},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := apperr.Rejected(tt.status, "rejected")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.status, err.HTTPStatus)
		})
	}
}
