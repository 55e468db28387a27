package model

import (
	"sort"
	"strings"
	"unicode"

	appErrors "wallet_chat/internal/errors"
)

const (
	maxIdentityLength     = 128
	conversationSeparator = ':'
)

// NormalizeIdentity trims and lowercases an address. Empty values, values
// longer than 128 bytes, whitespace, control characters and the conversation
// id separator are rejected.
func NormalizeIdentity(identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || len(identity) > maxIdentityLength {
		return "", appErrors.ErrInvalidIdentity
	}
	for _, r := range identity {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == conversationSeparator {
			return "", appErrors.ErrInvalidIdentity
		}
	}
	return strings.ToLower(identity), nil
}

// ConversationID is the order-independent key shared by two identities.
func ConversationID(a, b string) string {
	pair := []string{strings.ToLower(a), strings.ToLower(b)}
	sort.Strings(pair)
	return pair[0] + string(conversationSeparator) + pair[1]
}

// Participants splits a conversation id back into its two identities.
func Participants(conversationID string) (string, string, bool) {
	a, b, ok := strings.Cut(conversationID, string(conversationSeparator))
	if !ok || a == "" || b == "" || strings.ContainsRune(b, conversationSeparator) {
		return "", "", false
	}
	return a, b, true
}
