// Package session provides persistence of authenticated sessions.
//
// Sessions are partitioned by system. Each system owns a namespace of keys
// built as prefix + system + ":" + id, and the default (empty) system uses
// prefix + id. Session ids and system names never contain ":", so two
// different (system, id) pairs never share a key and listing one system
// never returns another system's sessions.
//
// Two Repository implementations are provided:
//
//   - MemoryRepository keeps sessions in process memory. A background
//     scavenger, started with Start, removes expired sessions once per
//     scavenge interval.
//   - RedisRepository stores sessions as JSON strings with a Redis TTL.
//     Round trips are retried on connection errors and guarded by a circuit
//     breaker. Undecodable records are deleted when read.
//
// Not-found is never an error: FindSession returns (nil, nil). Failures to
// reach the backend match ErrBackendUnavailable.
package session
