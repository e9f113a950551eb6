package types

import (
	"fmt"
	"strings"
	"time"
)

// Class is a user-defined record type that objects instantiate.
type Class struct {
	ClassID     string    `json:"class_id"`
	Name        string    `json:"name"`
	Scope       string    `json:"scope"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Object is a named instance of a class. Data is an opaque JSON document;
// payload validation happens before the store is called.
type Object struct {
	ObjectID  string         `json:"object_id"`
	ClassID   string         `json:"class_id"`
	ClassName string         `json:"class"`
	Name      string         `json:"name"`
	Scope     string         `json:"scope"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Ref returns the lightweight reference used in links and paths.
func (o *Object) Ref() ObjectRef {
	return ObjectRef{ObjectID: o.ObjectID, Class: o.ClassName, Name: o.Name}
}

// ClassSpec describes a class to create.
type ClassSpec struct {
	Name        string `json:"name" validate:"required,max=255"`
	Scope       string `json:"scope" validate:"required,max=255"`
	Description string `json:"description" validate:"max=4096"`
}

// ObjectSpec describes an object to create.
type ObjectSpec struct {
	Class string         `json:"class" validate:"required,max=255"`
	Name  string         `json:"name" validate:"required,max=255"`
	Scope string         `json:"scope" validate:"required,max=255"`
	Data  map[string]any `json:"data"`
}

// ObjectKey addresses an object by class name and object name.
type ObjectKey struct {
	Class string `json:"class" validate:"required,max=255"`
	Name  string `json:"name" validate:"required,max=255"`
}

// String renders the key as "class/name".
func (k ObjectKey) String() string {
	return k.Class + "/" + k.Name
}

// ParseObjectKey parses "class/name". The class is everything before the
// first slash, so object names may themselves contain slashes.
func ParseObjectKey(s string) (ObjectKey, error) {
	class, name, ok := strings.Cut(s, "/")
	if !ok || class == "" || name == "" {
		return ObjectKey{}, fmt.Errorf("object key %q must have the form class/name: %w", s, ErrInvalidArgument)
	}
	return ObjectKey{Class: class, Name: name}, nil
}

// ObjectRef identifies an object in link and traversal results.
type ObjectRef struct {
	ObjectID string `json:"object_id"`
	Class    string `json:"class"`
	Name     string `json:"name"`
}

// Key returns the name-based key for the referenced object.
func (r ObjectRef) Key() ObjectKey {
	return ObjectKey{Class: r.Class, Name: r.Name}
}
