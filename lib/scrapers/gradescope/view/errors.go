package view

import "fmt"

// FieldError is a row/field scoped extraction failure. Listing operations
// collect these alongside successfully extracted entities instead of
// aborting the whole listing on one malformed row.
type FieldError struct {
	Resource string
	Row      int
	Field    string
	Err      error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s row %d: field %q: %v", e.Resource, e.Row, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// PageError means a listing's continuation signal was ambiguous or
// malformed. The walk fails closed instead of silently truncating results.
type PageError struct {
	Path   string
	Page   int
	Reason string
}

func (e *PageError) Error() string {
	return fmt.Sprintf("pagination failed at %s (page %d): %s", e.Path, e.Page, e.Reason)
}

// MappingError is a referential failure: an entity references an id that is
// not part of the current scrape context.
type MappingError struct {
	Kind string
	Ref  string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s references unknown id %q", e.Kind, e.Ref)
}

// ShapeError means a structural anchor the parser relies on is absent from
// the markup, which usually means the source changed shape.
type ShapeError struct {
	Anchor string
	Path   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("missing structural anchor %q at %s", e.Anchor, e.Path)
}
