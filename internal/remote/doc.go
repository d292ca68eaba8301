// Package remote fetches a log published over HTTP, such as a log shared
// through a log parser site.
//
// The Client only establishes the connection. It checks the status code and
// hands the response body back unread, so the body is parsed as a stream by
// the same source machinery used for stdin rather than being buffered whole.
//
// URLs without a scheme default to https. Statuses outside 2xx are errors that
// include the status code; transport failures are wrapped with context.
package remote
