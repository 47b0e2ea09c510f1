// Package category maintains the hierarchical product category tree.
//
// The tree is stored as an adjacency list with a materialized slug path and
// depth, recomputed on insert, so "self plus all descendants" is a single
// prefix range scan instead of a recursive traversal.
package category

import (
	"context"

	"github.com/go-faster/errors"
)

// Sentinel errors for category operations.
var (
	// ErrNotFound is returned when no category matches the given slug or id.
	ErrNotFound = errors.New("category not found")
	// ErrParentNotFound is returned when a new category names a missing parent.
	ErrParentNotFound = errors.New("parent category not found")
	// ErrExists is returned when the name or slug is already taken.
	ErrExists = errors.New("category name or slug already taken")
)

// Category is a node in the tree. Path is the slash-delimited slug chain from
// the root, with leading and trailing separators ('/electronics/phones/');
// Depth is 0 for root categories.
type Category struct {
	ID       string
	Name     string
	Slug     string
	ParentID string // empty for root categories
	Path     string
	Depth    int
	IsActive bool
}

// Repository defines persistence operations for the category tree.
// Implementations must keep Path and Depth consistent on every insert.
type Repository interface {
	// Create inserts a new category under ParentID (or as a root when empty),
	// computing its materialized path and depth.
	Create(ctx context.Context, c *Category) error
	// TopLevel returns root categories (no parent) ordered by name.
	TopLevel(ctx context.Context) ([]Category, error)
	// All returns every category, parents before children.
	All(ctx context.Context) ([]Category, error)
	// DescendantsInclusive returns the category with the given slug plus every
	// category transitively beneath it, ordered by depth then name.
	DescendantsInclusive(ctx context.Context, slug string) ([]Category, error)
}
