package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"tokenledger-backend/internal/models"
)

// GenerateTransactionCSV renders ledger entries for the admin export.
// Verified reports whether the stored hash still matches the entry.
func GenerateTransactionCSV(entries []models.TokenTransaction, hashSecret string) ([]byte, error) {
	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{
		"ID", "Time", "User ID", "Type", "Amount",
		"Balance Before", "Balance After", "Description",
		"Metadata", "Hash", "Verified",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, t := range entries {
		record := []string{
			strconv.FormatUint(uint64(t.ID), 10),
			t.CreatedAt.Format(time.RFC3339Nano),
			t.UserID,
			string(t.Type),
			strconv.FormatInt(t.Amount, 10),
			strconv.FormatInt(t.BalanceBefore, 10),
			strconv.FormatInt(t.BalanceAfter, 10),
			t.Description,
			string(t.Metadata),
			t.Hash,
			strconv.FormatBool(t.VerifyHash(hashSecret)),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}
