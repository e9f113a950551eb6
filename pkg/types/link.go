package types

import "time"

// LinkType is one direction of a registered relationship between two
// classes. Every LinkType row has a mirror with the endpoints swapped and
// Reverse flipped; the two always share MaxLinks and Scope.
type LinkType struct {
	LinkTypeID  string `json:"link_type_id"`
	SourceClass string `json:"source_class"`
	TargetClass string `json:"target_class"`

	// MaxLinks caps the outbound links a source object may hold toward the
	// target class. Zero means unlimited.
	MaxLinks int    `json:"max_links"`
	Scope    string `json:"scope"`

	// Reverse is false for the direction that was registered and true for
	// its mirror. It keeps the two rows of a self-link type apart.
	Reverse bool `json:"reverse"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is one directed edge between two objects. Every Link has a mirror
// running the other way under the mirrored LinkType.
type Link struct {
	LinkID     string    `json:"link_id"`
	Source     ObjectRef `json:"source"`
	Target     ObjectRef `json:"target"`
	LinkTypeID string      `json:"link_type_id"`
	LinkType   LinkTypeRef `json:"link_type"`
	Scope      string      `json:"scope"`
	CreatedAt  time.Time   `json:"created_at"`
}

// LinkTypeRef names the link type row a Link is stored under.
type LinkTypeRef struct {
	SourceClass string `json:"source_class"`
	TargetClass string `json:"target_class"`
	Reverse     bool   `json:"reverse"`
}

// LinkTypeSpec describes a link type to register.
type LinkTypeSpec struct {
	SourceClass string `json:"source_class" validate:"required,max=255"`
	TargetClass string `json:"target_class" validate:"required,max=255"`
	Scope       string `json:"scope" validate:"required,max=255"`
	MaxLinks    int    `json:"max_links" validate:"gte=0"`
}

// LinkTypePatch lists the fields to change on both rows of a link type
// pair. Nil fields are left untouched.
type LinkTypePatch struct {
	Scope    *string `json:"scope,omitempty" validate:"omitempty,min=1,max=255"`
	MaxLinks *int    `json:"max_links,omitempty" validate:"omitempty,gte=0"`
}

// LinkTypeFilter narrows ListLinkTypes. An empty Class lists every row.
type LinkTypeFilter struct {
	Class string `json:"class,omitempty"`
}

// LinkSpec describes a link to create.
type LinkSpec struct {
	Source ObjectKey `json:"source" validate:"required"`
	Target ObjectKey `json:"target" validate:"required"`
	Scope  string    `json:"scope" validate:"required,max=255"`
}

// LinkFilter narrows ListLinks. An empty TargetClass lists every outbound link.
type LinkFilter struct {
	TargetClass string `json:"target_class,omitempty"`
}
