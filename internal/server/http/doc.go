// Package httpserver exposes the streaming core over HTTP: producer
// ingestion, history fetch, operator status, and the viewer streaming
// surface (WebSocket and SSE). Admission runs through the auth resolver
// before any connection resource is allocated.
package httpserver
