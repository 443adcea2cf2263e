// Package server carries the chat protocol over WebSocket connections.
//
// Each connection gets a Client with one read goroutine, which decodes frames
// and calls the Dispatcher in arrival order, and one write goroutine draining
// its outbound queue. The Hub tracks connected clients by connection id and
// delivers encoded events to explicit recipient sets. Routing, health and
// stats endpoints and the HTTP lifecycle helpers also live here.
package server
