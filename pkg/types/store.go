package types

import "context"

// Registry manages the classes and objects that link types and links refer
// to. Deleting a class or object cascades into the graph in the same
// transaction.
type Registry interface {
	CreateClass(ctx context.Context, spec ClassSpec) (*Class, error)
	GetClass(ctx context.Context, name string) (*Class, error)
	ListClasses(ctx context.Context) ([]*Class, error)
	// DeleteClass removes the class with its objects, link types and links.
	DeleteClass(ctx context.Context, name string) error

	CreateObject(ctx context.Context, spec ObjectSpec) (*Object, error)
	GetObject(ctx context.Context, key ObjectKey) (*Object, error)
	// ListObjects returns the objects of a class ordered by name.
	ListObjects(ctx context.Context, class string) ([]*Object, error)
	// DeleteObject removes the object and every link touching it.
	DeleteObject(ctx context.Context, key ObjectKey) error
}

// Graph is the link graph engine: mirrored link types, mirrored links with
// a capacity guard, and outbound reachability.
type Graph interface {
	// CreateLinkType registers source→target together with its mirror.
	// Returns ErrNotFound if either class is unknown and ErrConflict if a
	// link type exists for the pair in either direction.
	CreateLinkType(ctx context.Context, spec LinkTypeSpec) (*LinkType, error)

	// UpdateLinkType applies patch to both rows of the pair.
	UpdateLinkType(ctx context.Context, source, target string, patch LinkTypePatch) (*LinkType, error)

	// DeleteLinkType removes both rows and every link of either direction.
	DeleteLinkType(ctx context.Context, source, target string) error

	GetLinkType(ctx context.Context, source, target string) (*LinkType, error)
	ListLinkTypes(ctx context.Context, filter LinkTypeFilter) ([]*LinkType, error)

	// CreateLink inserts source→target and its mirror. Returns ErrNotFound
	// if no link type joins the objects' classes, ErrConflict if the pair is
	// already linked in either direction, and ErrCapacityExceeded if the
	// source already holds max_links links toward the target's class.
	CreateLink(ctx context.Context, spec LinkSpec) (*Link, error)

	// DeleteLink removes source→target and its mirror. Returns ErrNotFound
	// if the forward link is missing and ErrInvariantViolation if only the
	// mirror is missing.
	DeleteLink(ctx context.Context, source, target ObjectKey) error

	GetLink(ctx context.Context, source, target ObjectKey) (*Link, error)
	ListLinks(ctx context.Context, source ObjectKey, filter LinkFilter) ([]*Link, error)

	// FindReachable returns every object reachable from source over
	// outbound links within q.MaxDepth, one shortest path each.
	FindReachable(ctx context.Context, source ObjectKey, q ReachQuery) ([]Reachable, error)

	// Check scans for unpaired or divergent mirror rows.
	Check(ctx context.Context, opts CheckOptions) (*ConsistencyReport, error)
}

// Store is a Registry and Graph bound to a database. Callers attach, use the
// store, and detach when done.
type Store interface {
	Registry
	Graph

	// Attach opens the backend described by config and applies pending
	// migrations. Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrStoreDetached.
	Detach() error

	// Export writes one JSONL file per table into dir.
	Export(ctx context.Context, dir string) error

	// Import loads JSONL files from dir in one transaction and rejects the
	// load with ErrInvariantViolation if the result is inconsistent.
	Import(ctx context.Context, dir string) error
}
