package activity

// Tree is the parsed, read-only course structure. It owns every node in a
// flat index keyed by id, so parent links stay non-owning and lookups never
// recurse.
type Tree struct {
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	Root     *Node  `json:"root"`

	index map[string]*Node
}

// NewTree builds the id index for a fully linked root. It is called once by
// the manifest parser; the tree must not be mutated afterwards.
func NewTree(courseID, title string, root *Node) *Tree {
	t := &Tree{
		CourseID: courseID,
		Title:    title,
		Root:     root,
		index:    make(map[string]*Node),
	}
	// Iterative pre-order walk; course trees can be arbitrarily deep.
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		t.index[n.ID] = n
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return t
}

// FindByID resolves an activity anywhere in the tree, or nil.
func (t *Tree) FindByID(id string) *Node {
	return t.index[id]
}

// Parent returns the parent activity of id, or nil for the root or an
// unknown id.
func (t *Tree) Parent(id string) *Node {
	n := t.index[id]
	if n == nil || n.ParentID == "" {
		return nil
	}
	return t.index[n.ParentID]
}

// FirstLeaf returns the first deliverable descendant of n in document
// (pre-order) order, or nil when the subtree has no leaf.
func (t *Tree) FirstLeaf(n *Node) *Node {
	if n == nil {
		return nil
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.IsLeaf() {
			return cur
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return nil
}

// LastLeaf returns the last deliverable descendant of n in document order.
func (t *Tree) LastLeaf(n *Node) *Node {
	if n == nil {
		return nil
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.IsLeaf() {
			return cur
		}
		// Push in document order so the last child is popped first.
		for _, c := range cur.Children {
			stack = append(stack, c)
		}
	}
	return nil
}

// Count returns the number of activities in the tree, root included.
func (t *Tree) Count() int {
	return len(t.index)
}

// Leaves returns every deliverable activity in document order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	stack := []*Node{t.Root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil {
			continue
		}
		if cur.IsLeaf() {
			out = append(out, cur)
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return out
}

// NextSibling returns the sibling immediately after n, or nil.
func (t *Tree) NextSibling(n *Node) *Node {
	parent := t.Parent(n.ID)
	if parent == nil {
		return nil
	}
	for i, c := range parent.Children {
		if c.ID == n.ID && i+1 < len(parent.Children) {
			return parent.Children[i+1]
		}
	}
	return nil
}

// PreviousSibling returns the sibling immediately before n, or nil.
func (t *Tree) PreviousSibling(n *Node) *Node {
	parent := t.Parent(n.ID)
	if parent == nil {
		return nil
	}
	for i, c := range parent.Children {
		if c.ID == n.ID && i > 0 {
			return parent.Children[i-1]
		}
	}
	return nil
}
