// Package remote is the byte source for the content repository.
//
// It issues plain GETs for directory listings, sentinel text files
// (_password.txt, notes) and archive bytes. Transport retries come from
// go-retryablehttp underneath resty; a circuit breaker and an optional rate
// limiter sit in front. Deadline expiry is reported as faults.KindTimeout and
// non-2xx answers as *StatusError; callers reclassify everything else into
// their own fault kind.
package remote
