package node

// Ref is a ring entry's handle on a node. The Ref returned by Own is the
// single owner; Refs from Borrow share the node without owning it.
type Ref struct {
	node  *Node
	owner bool
}

// Own returns the owning Ref of n.
func Own(n *Node) Ref {
	return Ref{node: n, owner: true}
}

// Borrow returns a non-owning Ref to the same node.
func (r Ref) Borrow() Ref {
	r.node.borrowed++
	return Ref{node: r.node}
}

// Node returns the referenced node.
func (r Ref) Node() *Node {
	return r.node
}

// Owner reports whether r owns the node.
func (r Ref) Owner() bool {
	return r.owner
}

// Release drops r. Only the owning Ref destroys the node.
func (r Ref) Release() error {
	if !r.owner {
		if r.node.borrowed > 0 {
			r.node.borrowed--
		}
		return nil
	}
	return r.node.Close()
}
