package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "jane.doe@example.com" → "ja***@example.com"
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

// RedactReference masks an opaque provider reference (payment intent,
// charge id), keeping the prefix and the last 4 characters.
// "pi_3NxyzAbcdEfgh" → "pi_***fgh" style masking.
func RedactReference(ref string) string {
	if len(ref) <= 8 {
		return "***"
	}
	head := ref
	if i := strings.Index(ref, "_"); i > 0 && i < 4 {
		head = ref[:i+1]
	} else {
		head = ref[:3]
	}
	return head + "***" + ref[len(ref)-4:]
}
