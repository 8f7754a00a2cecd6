package services

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"tokenledger-backend/internal/models"
)

func TestGenerateTransactionCSV(t *testing.T) {
	entry := models.TokenTransaction{
		ID:            7,
		CreatedAt:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UserID:        "u1",
		Amount:        -30,
		Type:          models.TokenTransactionAdditionalCharge,
		Description:   "overage, second pass",
		BalanceBefore: 400,
		BalanceAfter:  370,
		Metadata:      datatypes.JSON(`{"requested":30}`),
	}
	entry.Hash = entry.GenerateHash(testHashSecret)
	tampered := entry
	tampered.ID = 8
	tampered.Amount = -1

	data, err := GenerateTransactionCSV([]models.TokenTransaction{entry, tampered}, testHashSecret)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Description", rows[0][7])
	assert.Equal(t, []string{
		"7", "2024-01-02T03:04:05Z", "u1", "additional_charge", "-30",
		"400", "370", "overage, second pass", `{"requested":30}`, entry.Hash, "true",
	}, rows[1])
	assert.Equal(t, "false", rows[2][10])
}
