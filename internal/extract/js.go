package extract

import "strconv"

// FunctionSource returns the zero-argument extractor as a JS function
// expression. It is serialized by chrome.scripting.executeScript and runs in
// the tab's document; it reads the DOM only and never throws for missing
// description, headers or body.
func FunctionSource() string {
	return `function() {
  function text(v) { return v == null ? "" : String(v); }
  var meta = document.querySelector('meta[name="description"]');
  var description = meta ? text(meta.getAttribute("content")) : "";
  var headers = [];
  var nodes = document.querySelectorAll("h1, h2, h3");
  for (var i = 0; i < nodes.length && headers.length < ` + strconv.Itoa(MaxHeaders) + `; i++) {
    var h = text(nodes[i].textContent).trim();
    if (h) headers.push(h);
  }
  var body = document.body ? text(document.body.innerText) : "";
  return {
    title: text(document.title),
    description: description,
    headers: headers,
    content: body.substring(0, ` + strconv.Itoa(MaxContentChars) + `),
    url: text(window.location.href)
  };
}`
}
