package oracle

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/dgnsrekt/tab_grouper/internal/types"
	"github.com/tidwall/gjson"
)

// replyPaths are tried in order against a JSON reply body after choices.
var replyPaths = []string{
	"content",
	"text",
	"message",
}

// DecodeReply extracts the reply text from a response body. It accepts the
// OpenAI chat and completion shapes, joining the text of every choice, a
// top-level content, text or message
// string, a JSON string, and plain text. Any other JSON is returned as its
// compact encoding. An empty body is an ORACLE_BAD_RESPONSE.
func DecodeReply(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", types.NewError(types.CodeOracleBadResponse, "oracle returned an empty body", nil)
	}
	if !gjson.ValidBytes(trimmed) {
		return string(trimmed), nil
	}

	doc := gjson.ParseBytes(trimmed)
	if doc.Type == gjson.String {
		return doc.String(), nil
	}
	if text, ok := choicesText(doc); ok {
		return text, nil
	}
	for _, path := range replyPaths {
		if v := doc.Get(path); v.Type == gjson.String {
			return v.String(), nil
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed), nil
	}
	return compact.String(), nil
}

// choicesText joins the message content or text of every choice, in order.
func choicesText(doc gjson.Result) (string, bool) {
	var parts []string
	for _, choice := range doc.Get("choices").Array() {
		for _, path := range []string{"message.content", "text"} {
			if v := choice.Get(path); v.Type == gjson.String {
				parts = append(parts, v.String())
				break
			}
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}
