package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/currencybot/core/config"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newLineWriter([]output{{name: "buf", w: buf}}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	})
	return slog.New(h), func() string {
		require.NoError(t, aw.Flush())
		require.NoError(t, aw.Close())
		return strings.TrimSpace(buf.String())
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", RATES), slog.LevelInfo, "fetch_ok",
		slog.String("status", "ok"),
		slog.String("currency", "USD"),
	)

	tokens := strings.Split(read(), " ")
	expected := []string{"ts=", "level=INFO", "component=rates", "event=fetch_ok", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	log, read := newTestLogger(t, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	LogEvent(ctx, log.With("component", CONV), slog.LevelError, "rate_failed",
		slog.String("status", "fail"),
		slog.Any("err", errors.New("boom")),
		slog.String("err_code", "RATES_UNAVAILABLE"),
	)

	line := read()
	require.True(t, strings.HasPrefix(line, "{"), line)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"conversation"`, `"event":"rate_failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.Greater(t, idx, pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	raw := "123:456:789"

	kvLog, readKV := newTestLogger(t, formatKV)
	LogEvent(WithRID(context.Background(), raw), kvLog, slog.LevelInfo, "rid.test")
	kv := readKV()
	assert.Contains(t, kv, "rid="+CompactRID(raw))
	assert.NotContains(t, kv, "rid_full=")

	jsonLog, readJSON := newTestLogger(t, formatJSON)
	LogEvent(WithRID(context.Background(), raw), jsonLog, slog.LevelInfo, "rid.test")
	js := readJSON()
	assert.Contains(t, js, `"rid":"`+CompactRID(raw)+`"`)
	assert.Contains(t, js, `"rid_full":"`+raw+`"`)
	assert.Contains(t, js, `"ts_unix_nano"`)
}

func TestStructuredHandlerNormalizesValues(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	LogEvent(context.Background(), log, slog.LevelInfo, "lookup",
		slog.Duration("duration", 1499*time.Microsecond),
		slog.String("outcome", "rate_not_found"),
		slog.String("empty", ""),
		slog.String("text", "two words"),
	)
	line := read()
	assert.Contains(t, line, "duration_ms=1")
	assert.Contains(t, line, "outcome=rate_not_found")
	assert.Contains(t, line, `text="two words"`)
	assert.Contains(t, line, "component=app")
	assert.NotContains(t, line, "empty=")
}

func TestStructuredHandlerDropsUnknownOutcome(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	LogEvent(context.Background(), log, slog.LevelInfo, "x", slog.String("outcome", "maybe"))
	assert.NotContains(t, read(), "outcome=")
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "1z.a.1", CompactRID("71:10:1"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:x:3", CompactRID("1:x:3"))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "при", SanitizeLimit("привет", 3))
	assert.Equal(t, "", SanitizeLimit("x", 0))
}

func TestComponentSampler(t *testing.T) {
	s := newComponentSampler(ratio{Keep: 1, Every: 3})
	s.Configure(ratio{Keep: 1, Every: 3}, map[string]ratio{TG: {}, RATES: {Keep: 2, Every: 4}})

	var conv, rates []bool
	for i := 0; i < 4; i++ {
		conv = append(conv, s.Allow(CONV))
		rates = append(rates, s.Allow(RATES))
		assert.True(t, s.Allow(TG))
	}
	assert.Equal(t, []bool{true, false, false, true}, conv)
	assert.Equal(t, []bool{true, true, false, false}, rates)
}

func TestParseRatio(t *testing.T) {
	for in, want := range map[string]ratio{
		"":     {},
		"all":  {},
		"50":   {Keep: 1, Every: 50},
		"2/7":  {Keep: 2, Every: 7},
		" 1/4": {Keep: 1, Every: 4},
	} {
		got, err := parseRatio(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"x", "-3", "1/0", "a/b"} {
		_, err := parseRatio(in)
		assert.Error(t, err, in)
	}
}

func TestSelectSampling(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.DebugSample = "1/10"
	cfg.Logging.DebugSampleComponents = map[string]string{TG: "all", RATES: "bogus"}

	base, overrides := selectSampling(cfg)
	assert.Equal(t, ratio{Keep: 1, Every: 10}, base)
	assert.Equal(t, map[string]ratio{TG: {}}, overrides)

	base, overrides = selectSampling(nil)
	assert.Equal(t, defaultDebugRatio, base)
	assert.Empty(t, overrides)
}
