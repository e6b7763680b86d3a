package cdpcontrol

import (
	"strconv"

	"github.com/dgnsrekt/tab_grouper/internal/extract"
	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// jsListTabs lists one window's tabs in index order. A windowID of zero or
// less selects the last focused normal window.
func jsListTabs(windowID int) string {
	return wrapJSEvalAsync(jsBridgePreamble + jsTabRecord + `
var wid = ` + strconv.Itoa(windowID) + `;
var query = wid > 0 ? {windowId: wid} : {lastFocusedWindow: true, windowType: "normal"};
var tabs = await chrome.tabs.query(query);
tabs.sort(function(a, b) { return a.index - b.index; });
return JSON.stringify({ok:true,data:tabs.map(_tabRecord)});`)
}

// jsExtractMetadata injects the page extractor into one tab and returns its
// record. Browsers refuse injection on protected pages; that surfaces as an
// EVAL_FAILURE envelope.
func jsExtractMetadata(tabID int) string {
	return wrapJSEvalAsync(jsBridgePreamble + `
var results = await chrome.scripting.executeScript({
  target: {tabId: ` + strconv.Itoa(tabID) + `},
  func: ` + extract.FunctionSource() + `
});
if (!results || !results.length || results[0].result == null) {
  return JSON.stringify({ok:false,error_code:"` + types.CodeEvalFailure + `",error_message:"extractor returned no result"});
}
return JSON.stringify({ok:true,data:results[0].result});`)
}

// jsGroupTabs adds tabs to groupID, or to a new group when groupID < 0.
// Without createProperties a new group opens in the last focused window.
func jsGroupTabs(windowID int, tabIDs []int, groupID int) string {
	return wrapJSEvalAsync(jsBridgePreamble + `
var opts = {tabIds: ` + jsJSON(tabIDs) + `};
var gid = ` + strconv.Itoa(groupID) + `;
var wid = ` + strconv.Itoa(windowID) + `;
if (gid >= 0) opts.groupId = gid;
else if (wid > 0) opts.createProperties = {windowId: wid};
var groupId = await chrome.tabs.group(opts);
return JSON.stringify({ok:true,data:{group_id:groupId}});`)
}

func jsLabelGroup(groupID int, title string) string {
	return wrapJSEvalAsync(jsBridgePreamble + `
var g = await chrome.tabGroups.update(` + strconv.Itoa(groupID) + `, {title: ` + jsString(title) + `});
return JSON.stringify({ok:true,data:{group_id:g.id,title:g.title||""}});`)
}

func jsMoveTab(tabID, index int) string {
	return wrapJSEvalAsync(jsBridgePreamble + `
var moved = await chrome.tabs.move(` + strconv.Itoa(tabID) + `, {index: ` + strconv.Itoa(index) + `});
var t = Array.isArray(moved) ? moved[0] : moved;
return JSON.stringify({ok:true,data:{tab_id:t.id,index:t.index}});`)
}

// jsBridgePing reports which extension the session is attached to.
func jsBridgePing() string {
	return wrapJSEval(jsBridgePreamble + `
return JSON.stringify({ok:true,data:{extension_id:chrome.runtime.id,version:chrome.runtime.getManifest().version}});`)
}
