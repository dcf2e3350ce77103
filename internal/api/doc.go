// Package api exposes the platform's outward-facing surface: a
// WebSocket subscription hub for live telemetry and a health endpoint.
//
// # Connection lifecycle
//
// Clients connect to the WebSocket path with a JWT access token in the
// query string or Authorization header. The connection is upgraded
// first; an invalid token is answered with a policy-violation close
// frame (1008) so browser clients see a meaningful close code. After
// authentication the client receives a welcome message and may
// subscribe to topics.
//
// # Topics
//
// Subscription patterns follow a small grammar:
//
//	farm/<farmId>/device/<deviceId>/<dataType>
//	farm/<farmId>/alerts
//	*
//
// Any segment may be the wildcard "*". Patterns are authorized against
// the token's farm grants before they take effect; the global pattern
// and farm wildcards require the admin role.
//
// # Heartbeat
//
// The hub pings each connection on an interval. A connection that
// misses two consecutive pongs is closed, which bounds how long a dead
// peer can hold a slot.
package api
