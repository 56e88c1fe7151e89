// Package server exposes an engine over HTTP with gin and streams views
// to browsers over a websocket.
//
// Every handler turns a request into one engine intent; the engine stays
// the only writer of the mirror. Kitchen routes require the shared
// passphrase in the X-Kitchen-Passphrase header.
package server
