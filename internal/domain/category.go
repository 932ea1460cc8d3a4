package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PathSeparator joins ancestor names in a category's display path.
const PathSeparator = " > "

var ErrCategoryCycle = errors.New("category parent chain contains a cycle")

// Category represents a node in the product category tree
type Category struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Slug      string     `json:"slug" db:"slug"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// NewCategory returns an unsaved category with a fresh time-ordered ID.
func NewCategory(name string, parentID *uuid.UUID) *Category {
	return &Category{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryTree indexes categories by ID so parent links can be walked
// without further queries.
type CategoryTree struct {
	nodes map[uuid.UUID]*Category
}

// NewCategoryTree builds a tree from any set of categories. Parents missing
// from the set terminate a walk as if the category were a root.
func NewCategoryTree(categories []*Category) *CategoryTree {
	nodes := make(map[uuid.UUID]*Category, len(categories))
	for _, c := range categories {
		nodes[c.ID] = c
	}
	return &CategoryTree{nodes: nodes}
}

// AncestorPath returns the names from the root down to the category itself.
func (t *CategoryTree) AncestorPath(id uuid.UUID) ([]string, error) {
	current, ok := t.nodes[id]
	if !ok {
		return nil, nil
	}

	visited := make(map[uuid.UUID]struct{})
	path := []string{}
	for current != nil {
		if _, seen := visited[current.ID]; seen {
			return nil, ErrCategoryCycle
		}
		visited[current.ID] = struct{}{}
		path = append(path, current.Name)

		if current.ParentID == nil {
			break
		}
		current = t.nodes[*current.ParentID]
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Display renders the ancestor path, e.g. "Electronics > Phones > Accessories".
func (t *CategoryTree) Display(id uuid.UUID) (string, error) {
	path, err := t.AncestorPath(id)
	if err != nil {
		return "", err
	}
	return strings.Join(path, PathSeparator), nil
}
