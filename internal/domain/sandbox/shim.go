package sandbox

import (
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
)

// The shim runs before any script of the entry document. It resolves a
// requested URL against the page, strips the document root, then the files
// root, then the leading slash, and looks the remainder up in the file map.
const shimTemplate = `(function (g) {
  var fileMap = __FILE_MAP__;
  var docRoot = __DOC_ROOT__;
  var filesRoot = __FILES_ROOT__;
  var has = Object.prototype.hasOwnProperty;
  g.SANDBOX_FILE_MAP = fileMap;

  function lookup(resource) {
    var raw = resource && typeof resource === "object" && resource.url ? resource.url : String(resource);
    var path;
    try {
      path = new URL(raw, g.location.href).pathname;
    } catch (e) {
      return null;
    }
    if (path.indexOf(docRoot) === 0) path = path.substring(docRoot.length);
    if (path.indexOf(filesRoot) === 0) path = path.substring(filesRoot.length);
    if (path.charAt(0) === "/") path = path.substring(1);
    if (has.call(fileMap, path)) return fileMap[path];
    try {
      var decoded = decodeURIComponent(path);
      if (has.call(fileMap, decoded)) return fileMap[decoded];
    } catch (e) {}
    return null;
  }

  if (typeof g.fetch === "function") {
    var originalFetch = g.fetch;
    g.fetch = function (resource, options) {
      var ref = lookup(resource);
      return originalFetch.call(g, ref !== null ? ref : resource, options);
    };
  }

  if (typeof g.importScripts === "function") {
    var originalImportScripts = g.importScripts;
    g.importScripts = function () {
      var urls = Array.prototype.map.call(arguments, function (u) {
        var ref = lookup(u);
        return ref !== null ? ref : u;
      });
      return originalImportScripts.apply(g, urls);
    };
  }
})(typeof self !== "undefined" ? self : this);
`

var (
	headOpen = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)
	htmlOpen = regexp.MustCompile(`(?i)<html(\s[^>]*)?>`)
)

// buildShim renders the shim for one bundle
func buildShim(refs map[string]string, docRoot, filesRoot string) (string, error) {
	// ConfigStd escapes <, > and & so no entry name can close the script element
	fileMap, err := sonic.ConfigStd.MarshalToString(refs)
	if err != nil {
		return "", err
	}
	doc, err := sonic.ConfigStd.MarshalToString(docRoot)
	if err != nil {
		return "", err
	}
	files, err := sonic.ConfigStd.MarshalToString(filesRoot)
	if err != nil {
		return "", err
	}

	return strings.NewReplacer(
		"__FILE_MAP__", fileMap,
		"__DOC_ROOT__", doc,
		"__FILES_ROOT__", files,
	).Replace(shimTemplate), nil
}

// inject places script immediately inside the first <head> element. Without
// one, a head carrying the script is added after <html> or at the very start.
func inject(document, script string) string {
	tag := "<script>" + script + "</script>"

	if loc := headOpen.FindStringIndex(document); loc != nil {
		return document[:loc[1]] + tag + document[loc[1]:]
	}
	if loc := htmlOpen.FindStringIndex(document); loc != nil {
		return document[:loc[1]] + "<head>" + tag + "</head>" + document[loc[1]:]
	}
	return "<head>" + tag + "</head>" + document
}
