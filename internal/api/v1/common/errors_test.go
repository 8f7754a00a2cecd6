package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenledger-backend/internal/services"
	"tokenledger-backend/internal/utils"
)

func TestStatusForLedgerError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", services.ErrInvalidInput), http.StatusBadRequest},
		{&services.InsufficientTokensError{Balance: 1, Required: 2}, http.StatusPaymentRequired},
		{services.ErrUserNotFound, http.StatusNotFound},
		{services.ErrTransientConflict, http.StatusConflict},
		{services.ErrResetInProgress, http.StatusConflict},
		{fmt.Errorf("get: %w", services.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForLedgerError(tt.err), tt.err.Error())
	}
}

func TestRespondLedgerError_HidesInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondLedgerError(c, fmt.Errorf("%w: consume: pq: relation missing", services.ErrInternal), nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp.Message)
	assert.NotContains(t, w.Body.String(), "relation missing")
}
