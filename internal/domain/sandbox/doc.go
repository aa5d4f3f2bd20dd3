/*
Package sandbox turns a decoded archive into a runnable bundle.

Every file entry is held in memory and served at

	{prefix}/{bundle}/files/{entry}

and the entry document, with an interception shim injected at the top of its
<head>, is served at

	{prefix}/{bundle}/doc/{entry point}

The shim wraps fetch and importScripts so requests whose resolved path names
an archive entry go to that entry's local URL, and publishes the map as
self.SANDBOX_FILE_MAP for workers. It is compiled with goja when the bundle is
built; Store.Probe runs it against a recording fetch to show where a given
reference ends up.

The rewrite is text substitution only. Bundled documents are not sanitised.
*/
package sandbox
