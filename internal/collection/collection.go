package collection

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dev-hans-programmer/postman-clone/internal/model"
)

type ItemType string

const (
	TypeFolder  ItemType = "folder"
	TypeRequest ItemType = "request"
)

// Item is one node of a collection's flat, parent-linked forest. The Type
// discriminant decides whether Request is populated; folders never carry one.
type Item struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedAt   float64        `json:"created_at"`
	ModifiedAt  float64        `json:"modified_at"`
	ParentID    string         `json:"parent_id,omitempty"`
	Type        ItemType       `json:"type"`
	Request     *model.Request `json:"request,omitempty"`
}

func (i *Item) IsFolder() bool {
	return i.Type == TypeFolder
}

type itemAlias Item

// UnmarshalJSON tolerates documents written by older versions: missing ids are
// regenerated, the type defaults to request, and request items with no name
// inherit the request's own name.
func (i *Item) UnmarshalJSON(data []byte) error {
	alias := itemAlias{}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*i = Item(alias)
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Type == "" {
		i.Type = TypeRequest
	}
	if i.CreatedAt == 0 {
		i.CreatedAt = model.NowUnix()
	}
	if i.ModifiedAt == 0 {
		i.ModifiedAt = i.CreatedAt
	}
	if i.Type == TypeRequest {
		if i.Request == nil {
			i.Request = model.NewRequest()
		}
		if i.Name == "" && i.Request.Name != "" {
			i.Name = i.Request.Name
		}
	}
	return nil
}

// Collection is a named set of folders and requests. Items are stored flat;
// the tree shape lives entirely in the parent ids.
type Collection struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CreatedAt   float64 `json:"created_at"`
	ModifiedAt  float64 `json:"modified_at"`
	Items       []*Item `json:"items"`
}

func New(name, description string) *Collection {
	now := model.NowUnix()
	return &Collection{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		ModifiedAt:  now,
		Items:       []*Item{},
	}
}

type collectionAlias Collection

func (c *Collection) UnmarshalJSON(data []byte) error {
	alias := collectionAlias{}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*c = Collection(alias)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = model.NowUnix()
	}
	if c.ModifiedAt == 0 {
		c.ModifiedAt = c.CreatedAt
	}
	if c.Items == nil {
		c.Items = []*Item{}
	}
	return nil
}

// AddFolder appends a folder under parentID (empty for root) and bumps the
// collection's modified time.
func (c *Collection) AddFolder(name, parentID, description string) *Item {
	now := model.NowUnix()
	folder := &Item{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		ModifiedAt:  now,
		ParentID:    parentID,
		Type:        TypeFolder,
	}
	c.Items = append(c.Items, folder)
	c.ModifiedAt = now
	return folder
}

// AddRequest appends a request item. The name defaults to the request's own
// name, falling back to "<METHOD> <url>".
func (c *Collection) AddRequest(req *model.Request, parentID, name string) *Item {
	if name == "" {
		name = req.DisplayName()
	}
	now := model.NowUnix()
	item := &Item{
		ID:         uuid.NewString(),
		Name:       name,
		CreatedAt:  now,
		ModifiedAt: now,
		ParentID:   parentID,
		Type:       TypeRequest,
		Request:    req,
	}
	c.Items = append(c.Items, item)
	c.ModifiedAt = now
	return item
}

// Item returns the item with the given id, or nil.
func (c *Collection) Item(id string) *Item {
	for _, item := range c.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Children returns the direct children of parentID; an empty parentID returns
// the root items.
func (c *Collection) Children(parentID string) []*Item {
	var children []*Item
	for _, item := range c.Items {
		if item.ParentID == parentID {
			children = append(children, item)
		}
	}
	return children
}

// RemoveItem deletes an item and, transitively, all of its descendants.
// Returns false when the id is unknown.
func (c *Collection) RemoveItem(id string) bool {
	if c.Item(id) == nil {
		return false
	}
	c.removeChildren(id)
	for i, item := range c.Items {
		if item.ID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			break
		}
	}
	c.ModifiedAt = model.NowUnix()
	return true
}

func (c *Collection) removeChildren(parentID string) {
	for _, child := range c.Children(parentID) {
		c.removeChildren(child.ID)
		for i, item := range c.Items {
			if item.ID == child.ID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				break
			}
		}
	}
}

// MoveItem reparents an item. The move is rejected when the item is unknown,
// the target is not an existing folder, or the target sits inside the item's
// own subtree (which would orphan the whole branch as an unreachable cycle).
func (c *Collection) MoveItem(id, newParentID string) bool {
	item := c.Item(id)
	if item == nil {
		return false
	}
	if newParentID != "" {
		parent := c.Item(newParentID)
		if parent == nil || !parent.IsFolder() {
			return false
		}
		if id == newParentID || c.isDescendant(newParentID, id) {
			return false
		}
	}
	item.ParentID = newParentID
	now := model.NowUnix()
	item.ModifiedAt = now
	c.ModifiedAt = now
	return true
}

// isDescendant reports whether candidate sits below ancestorID by walking the
// parent links upward.
func (c *Collection) isDescendant(candidate, ancestorID string) bool {
	seen := map[string]bool{}
	for current := c.Item(candidate); current != nil && current.ParentID != ""; current = c.Item(current.ParentID) {
		if seen[current.ID] {
			return false
		}
		seen[current.ID] = true
		if current.ParentID == ancestorID {
			return true
		}
	}
	return false
}

// TreeNode is the recursive display view of a collection.
type TreeNode struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        ItemType   `json:"type"`
	Description string     `json:"description"`
	CreatedAt   float64    `json:"created_at"`
	ModifiedAt  float64    `json:"modified_at"`
	Method      string     `json:"method,omitempty"`
	URL         string     `json:"url,omitempty"`
	Children    []TreeNode `json:"children,omitempty"`
}

// Tree builds the nested view, sorting siblings folders first and then by
// case-sensitive name.
func (c *Collection) Tree() []TreeNode {
	return c.buildTree("")
}

func (c *Collection) buildTree(parentID string) []TreeNode {
	children := c.Children(parentID)
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].Type != children[j].Type {
			return children[i].Type < children[j].Type
		}
		return children[i].Name < children[j].Name
	})

	tree := make([]TreeNode, 0, len(children))
	for _, child := range children {
		node := TreeNode{
			ID:          child.ID,
			Name:        child.Name,
			Type:        child.Type,
			Description: child.Description,
			CreatedAt:   child.CreatedAt,
			ModifiedAt:  child.ModifiedAt,
		}
		if child.Type == TypeRequest && child.Request != nil {
			node.Method = child.Request.Method
			node.URL = child.Request.URL
		}
		if child.IsFolder() {
			node.Children = c.buildTree(child.ID)
		}
		tree = append(tree, node)
	}
	return tree
}

// Search returns all items whose name or description contain the query,
// case-insensitively; request items also match on URL and method.
func (c *Collection) Search(query string) []*Item {
	query = strings.ToLower(query)
	var results []*Item
	for _, item := range c.Items {
		switch {
		case strings.Contains(strings.ToLower(item.Name), query),
			strings.Contains(strings.ToLower(item.Description), query):
			results = append(results, item)
		case item.Type == TypeRequest && item.Request != nil &&
			(strings.Contains(strings.ToLower(item.Request.URL), query) ||
				strings.Contains(strings.ToLower(item.Request.Method), query)):
			results = append(results, item)
		}
	}
	return results
}

// Duplicate deep-copies an item. Folders recursively duplicate every
// descendant under a fresh folder; request items are copied as a new sibling
// with a copy of the request data. Returns the new root item's id, or empty
// when the source id is unknown. The default name is "<original> Copy".
func (c *Collection) Duplicate(id, newName string) string {
	item := c.Item(id)
	if item == nil {
		return ""
	}
	if newName == "" {
		newName = item.Name + " Copy"
	}

	if item.IsFolder() {
		clone := c.AddFolder(newName, item.ParentID, item.Description)
		for _, child := range c.Children(id) {
			c.duplicateSubtree(child, clone.ID)
		}
		return clone.ID
	}

	clone := c.AddRequest(item.Request.Clone(), item.ParentID, newName)
	return clone.ID
}

func (c *Collection) duplicateSubtree(item *Item, newParentID string) {
	if item.IsFolder() {
		clone := c.AddFolder(item.Name, newParentID, item.Description)
		for _, child := range c.Children(item.ID) {
			c.duplicateSubtree(child, clone.ID)
		}
		return
	}
	c.AddRequest(item.Request.Clone(), newParentID, item.Name)
}

// Stats summarizes the collection contents.
type Stats struct {
	TotalItems int            `json:"total_items"`
	Folders    int            `json:"folders"`
	Requests   int            `json:"requests"`
	Methods    map[string]int `json:"methods"`
}

func (c *Collection) Stats() Stats {
	stats := Stats{TotalItems: len(c.Items), Methods: map[string]int{}}
	for _, item := range c.Items {
		if item.IsFolder() {
			stats.Folders++
			continue
		}
		stats.Requests++
		if item.Request != nil {
			stats.Methods[item.Request.Method]++
		}
	}
	return stats
}
