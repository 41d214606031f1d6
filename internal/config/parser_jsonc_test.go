package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
	require.Equal(t, []any{"one", "two"}, decoded["items"])
}

func TestNormalizeJSONCPreservesLineCount(t *testing.T) {
	input := "{\n/* one\ntwo */\n\"a\": 1 // tail\n}"
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Equal(t, strings.Count(input, "\n"), strings.Count(normalized, "\n"))
	require.Len(t, normalized, len(input))
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text, }",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */ text, }")
}

func TestNormalizeJSONCHandlesEscapedQuotes(t *testing.T) {
	input := `{"value":"say \"hi\" // still string"}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Equal(t, input, normalized)
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8)
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	for _, key := range []string{"clipboard_cmd", "paste_cmd"} {
		_, _, err := parseJSONC(`{"`+key+`":"unterminated ' quote"}`, Default())
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid "+key)
	}

	_, _, err := parseJSONC(`{"tts":{"command":"say \"oops"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid tts.command")
}

func TestParseJSONCNormalizesEnumsAndTrimsStrings(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "paste": {"shortcut": "  CTRL,V  ", "backend": " Keys "},
  "indicator": {
    "backend": " DESKTOP ",
    "desktop_app_name": "  parley-indicator  "
  },
  "log": {"level": "DEBUG"}
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "CTRL,V", cfg.Paste.Shortcut)
	require.Equal(t, "keys", cfg.Paste.Backend)
	require.Equal(t, "desktop", cfg.Indicator.Backend)
	require.Equal(t, "parley-indicator", cfg.Indicator.DesktopAppName)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestParseJSONCUnknownFieldFails(t *testing.T) {
	_, _, err := parseJSONC(`{"relay":{"host":"0.0.0.0"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "relay": {"port": "3847"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "column")
}
