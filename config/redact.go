package config

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// isAddressKey reports whether a log attribute key carries a recipient address.
func isAddressKey(key string) bool {
	key = strings.ToLower(key)
	return key == "to" || strings.HasSuffix(key, "_to") || strings.Contains(key, "email")
}
