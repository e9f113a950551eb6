// Package types defines the Store, Registry and Graph interfaces, the entity
// types for classes, objects, link types and links, and the sentinel errors
// shared by every linkgraph backend.
package types
