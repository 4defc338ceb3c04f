// redact маскирует чувствительные значения перед записью в лог.
package redact

import "strings"

// Email оставляет первые два символа локальной части и домен.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token оставляет не более четырёх первых символов токена.
// Пустая строка остаётся пустой, чтобы в логе было видно отсутствие токена.
func Token(s string) string {
	if s == "" {
		return ""
	}

	if len(s) <= 8 {
		return "***"
	}

	return s[:4] + "***"
}

// Password всегда полностью скрыт.
func Password() string { return "[REDACTED_PASSWORD]" }
