/*
Package http exposes the browser over a JSON API.

Each visitor is identified by the pike_session cookie and owns a browse
context: unlocked folders, theme, current selection and its sandbox bundles.
Failures are answered as {"error": "...", "kind": "..."} with the status of
the failure kind; a selection overtaken by a newer one answers 409 with kind
stale_selection.

Bundle documents and files are served outside /api under the sandbox prefix.
*/
package http
