package ledger_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenledger-backend/internal/api/v1/admin/ledger"
	"tokenledger-backend/internal/services"
	"tokenledger-backend/internal/store/memory"
)

type busyLock struct{}

func (busyLock) Acquire(context.Context) (func(), error) {
	return nil, services.ErrResetInProgress
}

func TestReset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	svc := services.NewLedgerService(memory.New(), services.LedgerConfig{DefaultBalance: 0}, nil)
	_, err := svc.RecordPayment(ctx, "u1", 100, "p1")
	require.NoError(t, err)
	_, err = svc.Consume(ctx, "u1", 30, "")
	require.NoError(t, err)

	r := gin.New()
	ledger.RegisterRoutes(r.Group("/admin"), ledger.NewHandler(svc, nil))

	req, _ := http.NewRequest(http.MethodPost, "/admin/ledger/reset", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data services.ResetSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.Balances)
	assert.Equal(t, int64(2), resp.Data.Transactions)

	b, err := svc.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, b.Tokens)
}

func TestReset_AlreadyRunning(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := services.NewLedgerService(memory.New(), services.LedgerConfig{}, nil, services.WithResetLock(busyLock{}))

	r := gin.New()
	ledger.RegisterRoutes(r.Group("/admin"), ledger.NewHandler(svc, nil))

	req, _ := http.NewRequest(http.MethodPost, "/admin/ledger/reset", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}
