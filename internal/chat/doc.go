// Package chat holds the shared room state of the hub: the configured rooms
// with their message logs, reactions, members and typing sets, and the global
// presence tracker.
//
// Every Room is guarded by its own mutex so rooms never contend with each
// other. Mutating operations return the member snapshot taken under the lock,
// which lets callers fan out to connections after the lock is released.
package chat
