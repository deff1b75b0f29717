/*
Package sequencing implements the SCORM 2004 navigation state machine per
the IMS Simple Sequencing specification.

Process consumes a session, its activity tree, and one navigation request
(start, resume, continue, previous, choice, exit, exitAll, abandon,
abandonAll, suspendAll) and returns a uniform Response carrying a delivery
or termination instruction. Pre-condition rules gate what flow and choice
may deliver; after an attempt ends, status rolls up the cluster chain using
the declared rollup rules, with the SCORM defaults filling the gaps.

The engine is synchronous, CPU-bound, and allocation-light: it validates
before it mutates, so a failed request leaves the session exactly as it
found it.
*/
package sequencing
