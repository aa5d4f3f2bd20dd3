// Package gate implements per-folder password gating.
//
// A folder is protected when it directly contains _password.txt. Unlocking
// compares the visitor's attempt with the trimmed file content and, on a
// match, adds the folder to the visitor's AccessState for the rest of the
// session.
package gate
