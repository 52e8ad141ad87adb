package vector

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/asteroid-belt/partmatch/internal/models"
)

// maxContentTokens keeps index texts inside remote model input limits.
const maxContentTokens = 8000

// PrepareContent builds the canonical index text of a product: code, name,
// display name, then the code again so exact-code queries weigh more.
// Descriptions are not indexed.
func PrepareContent(p models.Product) string {
	var parts []string
	if p.Code != "" {
		parts = append(parts, p.Code)
	}
	if p.Name != "" {
		parts = append(parts, p.Name)
	}
	if p.DisplayName != "" && p.DisplayName != p.Name {
		parts = append(parts, p.DisplayName)
	}
	if p.Code != "" {
		parts = append(parts, p.Code) // Repeated for emphasis
	}
	return TruncateToTokens(strings.Join(parts, "\n"), maxContentTokens)
}

// ContentHash returns the SHA256 hex digest of content.
func ContentHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// TruncateToTokens truncates content to approximate token limit.
// Uses ~4 bytes per token as rough estimate and never splits a rune.
func TruncateToTokens(content string, maxTokens int) string {
	maxChars := maxTokens * 4
	if len(content) <= maxChars {
		return content
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
