// Package ws streams browse session events to the page over WebSocket.
//
// A page opens GET /api/events with its session cookie and receives JSON
// events for its own session, plus broadcasts that concern every visitor.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established
//   - bundle_released: A bundle the page shows was dropped by the server
//     (expired, capacity); the page should close the view
//   - tree_reloaded: The repository tree was rebuilt
//   - pong: Reply to ping
//   - error: Unknown message
//
// Example Usage:
//
//	hub := ws.NewHub(logger)
//	store.OnRelease(hub.ReleaseHook(sessions))
//	router.GET("/api/events", ws.NewHandler(hub, sessions, logger).HandleConnection)
package ws
