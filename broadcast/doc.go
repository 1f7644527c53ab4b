// Package broadcast carries login/logout signals between instances of a
// client session that share one token store (browser tabs, processes on one
// host, replicas behind one Redis).
//
// A [Signal] names its kind, a millisecond timestamp and the origin
// instance. Receivers ignore their own signals; the package does not.
//
// # Implementations
//
//   - [Hub]: in-process fan-out.
//   - [RedisChannel]: Redis Pub/Sub, one channel per signal key.
//   - [FileChannel]: one file per signal key in a shared directory,
//     observed with fsnotify.
package broadcast
