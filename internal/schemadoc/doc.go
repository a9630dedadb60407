// Package schemadoc loads schema documents from YAML and validates
// them before they reach the retrieval engine. Structural problems
// (missing names, duplicate indices) are errors; dangling cross
// references are warnings because the graph build degrades them to
// omitted edges.
package schemadoc
