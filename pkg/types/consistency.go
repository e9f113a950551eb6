package types

// Violation kinds reported by Check.
const (
	ViolationLinkTypeUnpaired  = "link_type_unpaired"
	ViolationLinkTypeDivergent = "link_type_divergent"
	ViolationLinkUnpaired      = "link_unpaired"
	ViolationLinkMissing       = "link_mirror_missing"

	// ViolationLinkTypeMismatch marks a link whose type does not join its
	// endpoint classes, or whose mirror is not stored under the mirrored type.
	ViolationLinkTypeMismatch = "link_type_mismatch"

	// ViolationLinkTypeDuplicated marks a class pair registered in both
	// directions.
	ViolationLinkTypeDuplicated = "link_type_duplicated"
)

// Repairable reports whether Check with Repair removes violations of kind.
// Only unpaired halves are deleted; everything else is reported.
func Repairable(kind string) bool {
	return kind == ViolationLinkTypeUnpaired || kind == ViolationLinkUnpaired
}

// CheckOptions controls Check.
type CheckOptions struct {
	// Repair deletes unpaired halves. Divergent, mismatched and duplicated
	// rows are only reported.
	Repair bool
}

// Violation describes one broken pairing.
type Violation struct {
	Kind        string `json:"kind"`
	LinkTypeID  string `json:"link_type_id,omitempty"`
	LinkID      string `json:"link_id,omitempty"`
	SourceClass string `json:"source_class,omitempty"`
	TargetClass string `json:"target_class,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	TargetID    string `json:"target_id,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// ConsistencyReport is the outcome of Check.
type ConsistencyReport struct {
	LinkTypesScanned int         `json:"link_types_scanned"`
	LinksScanned     int         `json:"links_scanned"`
	Violations       []Violation `json:"violations"`
	Repaired         int         `json:"repaired"`
}

// OK reports whether no violation was found.
func (r *ConsistencyReport) OK() bool {
	return len(r.Violations) == 0
}
