// Package guard binds a value to the lock that protects it. The payload of a
// Guard is reachable only through a scoped Access obtained from a successful
// acquisition, or inside a callback run by the apply helpers, so forgetting to
// take the lock is a compile-time impossibility rather than a race found in
// production.
//
// Guards are generic over the lock type. Any sync.Locker works; lockers that
// additionally implement TryLocker, TimedLocker or ContextLocker unlock the
// non-blocking, timed and context-aware acquisition paths. RWGuard accepts an
// RWLocker and hands out shared read accessors alongside exclusive ones.
package guard
