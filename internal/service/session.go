package service

import (
	"encoding/json"
	"strings"

	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

// requireSession rejects calls made without an authenticated caller.
func requireSession(session *models.JWTClaims) error {
	if session == nil || session.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	return nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func auditPayload(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}
