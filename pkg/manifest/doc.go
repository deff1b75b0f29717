/*
Package manifest parses IMS SCORM 2004 imsmanifest.xml documents into
activity trees.

Parsing happens once per course upload, on any worker: the resulting
activity.Tree is immutable and shared read-only across all learner sessions
of that course. Missing optional elements fall back to the SCORM defaults;
only a missing <manifest>, <organizations>, or resolvable default
<organization> is an *Error.
*/
package manifest
