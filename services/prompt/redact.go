package prompt

import "regexp"

// secretPatterns covers credentials people paste into questions by accident
var secretPatterns = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\b`), "[JWT_REDACTED]"},
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{20,}\b`), "[API_KEY_REDACTED]"},
	{regexp.MustCompile(`\bgsk_[A-Za-z0-9]{20,}\b`), "[API_KEY_REDACTED]"},
	{regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`), "[API_KEY_REDACTED]"},
	{regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), "[AWS_KEY_REDACTED]"},
	{regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`), "[TOKEN_REDACTED]"},
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-\.]{20,}`), "Bearer [TOKEN_REDACTED]"},
	{regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb|redis)://[^\s'"]+:[^\s'"]+@[^\s'"]+`), "[DATABASE_URL_REDACTED]"},
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd)([:\s=]+)['"]?[^\s'"]{8,}['"]?`), "$1$2[REDACTED]"},
}

// RedactSecrets masks credential-shaped substrings. It is applied to question
// text before it reaches the logs, never to the prompt sent upstream.
func RedactSecrets(text string) string {
	for _, sp := range secretPatterns {
		text = sp.pattern.ReplaceAllString(text, sp.replacement)
	}
	return text
}
