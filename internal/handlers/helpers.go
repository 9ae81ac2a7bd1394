package handlers

import (
	"strconv"

	"github.com/google/uuid"
)

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
