package handlers

import (
	"strconv"

	"settleup/internal/money"
)

// parseAmountMinor converts a decimal amount string to minor units.
func parseAmountMinor(raw string) (int64, error) {
	return money.ParseMinor(raw)
}

// parseAmountMap converts a member->decimal-string map to minor units.
func parseAmountMap(raw map[string]string) (map[string]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]int64, len(raw))
	for member, value := range raw {
		minor, err := money.ParseMinor(value)
		if err != nil {
			return nil, err
		}
		out[member] = minor
	}
	return out, nil
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
