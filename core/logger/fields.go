package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// knownOutcomes lists values accepted for the "outcome" key; anything else is dropped.
var knownOutcomes = map[string]struct{}{
	"ok":              {},
	"fail":            {},
	"cancelled":       {},
	"rate_limited":    {},
	"invalid_input":   {},
	"unavailable":     {},
	"corrupt":         {},
	"rates_not_found": {},
	"rate_not_found":  {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	if _, ok := knownOutcomes[outcome]; !ok {
		return "", false
	}
	return outcome, true
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"op",
	"cb_key",
	"outcome",
	"duration_ms",
	"phase",
	"next_phase",
	"currency",
	"date",
	"lang",
	"kb",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"err",
	"err_code",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
}
