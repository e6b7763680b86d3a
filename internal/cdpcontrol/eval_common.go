package cdpcontrol

import (
	"encoding/json"

	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// jsBridgePreamble fails fast when the evaluation context is not an
// extension context with the required permissions.
const jsBridgePreamble = `
if (typeof chrome === "undefined" || !chrome.tabs || !chrome.tabGroups || !chrome.scripting) {
  return JSON.stringify({ok:false,error_code:"` + types.CodeBridgeNotFound + `",error_message:"bridge context lacks chrome.tabs, chrome.tabGroups or chrome.scripting"});
}`

// jsTabRecord maps a chrome.tabs.Tab to the snake_case record decoded by
// types.Tab.
const jsTabRecord = `
function _tabRecord(t) {
  return {
    id: t.id,
    window_id: t.windowId,
    index: t.index,
    group_id: typeof t.groupId === "number" ? t.groupId : -1,
    title: t.title || "",
    url: t.url || t.pendingUrl || ""
  };
}
`

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func jsJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// buildIIFE wraps body so any thrown error becomes an error envelope.
func buildIIFE(async bool, body string) string {
	head := "(function(){\n"
	if async {
		head = "(async function(){\n"
	}
	return head + "try {\n" + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + types.CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}

func wrapJSEval(body string) string      { return buildIIFE(false, body) }
func wrapJSEvalAsync(body string) string { return buildIIFE(true, body) }
