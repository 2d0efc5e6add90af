package ivtree

// update recomputes n's augmented fields from its children. Must be
// called bottom-up after any change to n's children or n's own range.
func update(n *Node) {
	n.height = 1 + maxInt(height(n.left), height(n.right))
	n.subtreeMaxLen = maxU64(n.Len, maxU64(maxLen(n.left), maxLen(n.right)))
	n.subtreeMaxEnd = maxU64(n.End(), maxU64(maxEnd(n.left), maxEnd(n.right)))
}

// rebalance restores the AVL property at n, assuming both children are
// already balanced, and returns the (possibly new) subtree root.
func rebalance(n *Node) *Node {
	if n == nil {
		return nil
	}
	update(n)

	switch balance := height(n.left) - height(n.right); {
	case balance <= -2:
		if height(n.right.left) > height(n.right.right) {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	case balance >= 2:
		if height(n.left.right) > height(n.left.left) {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	default:
		return n
	}
}

func rotateLeft(n *Node) *Node {
	newRoot := n.right
	n.right = newRoot.left
	newRoot.left = n

	update(n)
	update(newRoot)
	return newRoot
}

func rotateRight(n *Node) *Node {
	newRoot := n.left
	n.left = newRoot.right
	newRoot.right = n

	update(n)
	update(newRoot)
	return newRoot
}

func findSmallest(n *Node) *Node {
	for n.left != nil {
		n = n.left
	}
	return n
}
