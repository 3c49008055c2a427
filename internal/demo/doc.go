// Package demo hosts a small HTTP server that shows the binder working the
// way an application would use it.
//
// One root scope owns a clock binder that pumps ticker emissions into a
// shared multicast feed. Every websocket connection gets a child scope with
// its own binder on that feed: connect and ticks stream in, send
// {"cmd":"pause"} and the connection's binder detaches, send
// {"cmd":"resume"} and it reattaches, disconnect and the connection's scope
// disposes the binder exactly once. A snapshot endpoint reads a server-side
// binder on the same feed, and a Prometheus endpoint exposes the lifecycle
// metrics for all of them.
package demo
