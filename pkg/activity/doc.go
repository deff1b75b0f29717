/*
Package activity models the SCORM 2004 activity tree: the immutable,
per-course hierarchy of clusters and leaves annotated with sequencing and
rollup metadata.

A Tree is built once by the manifest parser, cached by the host, and shared
read-only across every learner session for that course. All traversal helpers
are pure and iterative, so arbitrarily deep courses cannot exhaust the stack.

# Key Entities

  - Node: One activity; a cluster (container) or a leaf (launchable content).
  - Tree: The root plus a flat id index; FindByID, FirstLeaf, LastLeaf, Parent.
  - SequencingRule / RollupRule: Declarative rules the navigation engine evaluates.
*/
package activity
