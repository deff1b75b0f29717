/*
Package session holds the per-learner sequencing state and its lifecycle.

A Session deep-mirrors one course's activity tree into a mutable
ActivityState tree. The navigation engine is the only writer; the Manager
serializes access per session id, keeps the authoritative live copy in
memory, and writes every change through to a persistence store without ever
letting a slow or failed persist block a navigation response.
*/
package session
