// Package utils holds small validation and hashing helpers shared by the HTTP
// handlers.
package utils
