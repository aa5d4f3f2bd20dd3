// Package browse holds per-visitor browsing state and the page navigation
// contract (zip=, play=, admin, share links).
package browse
