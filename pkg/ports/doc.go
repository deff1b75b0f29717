/*
Package ports defines the driven ports (interfaces) for the sequencing
engine.

The navigation engine itself is pure and in-memory; everything with I/O
hides behind an interface here so stores can be swapped (memory, redis,
sqlite) without touching the core.
*/
package ports
