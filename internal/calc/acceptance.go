package calc

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/xralks/Bancodealimentos/internal/models"
)

// NextAcceptance applies the accept action to a post in state current.
// A post not yet reviewed becomes accepted_institution when its author is an
// institution and accepted otherwise. Accepting an accepted post resets it.
func NextAcceptance(current models.AcceptanceStatus, authorRole string) (models.AcceptanceStatus, error) {
	switch current {
	case models.AcceptanceNotReviewed:
		if IsInstitutionRole(authorRole) {
			return models.AcceptanceAcceptedInstitution, nil
		}
		return models.AcceptanceAccepted, nil
	case models.AcceptanceAccepted, models.AcceptanceAcceptedInstitution:
		return models.AcceptanceNotReviewed, nil
	default:
		return "", fmt.Errorf("unknown acceptance status %q", current)
	}
}

// IsInstitutionRole matches "Institución", "institucion" and the INSTITUCION role code.
func IsInstitutionRole(role string) bool {
	return foldAccents(strings.ToLower(strings.TrimSpace(role))) == "institucion"
}

// foldAccents strips combining marks, so composed and decomposed spellings compare equal.
func foldAccents(s string) string {
	// Transformers keep state, so the chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
