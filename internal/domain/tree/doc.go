// Package tree builds the browsable namespace of the content repository from
// its auto-generated directory index pages, and renders the filtered view the
// browser shows.
package tree
