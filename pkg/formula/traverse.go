package formula

// PostOrder visits every distinct node reachable from root once, children
// before parents. A visit error stops the walk.
func PostOrder(root *Node, visit func(*Node) error) error {
	visited := make(map[*Node]bool)

	var dfs func(n *Node) error
	dfs = func(n *Node) error {
		if visited[n] {
			return nil
		}
		visited[n] = true
		for _, a := range n.args {
			if err := dfs(a); err != nil {
				return err
			}
		}
		return visit(n)
	}
	return dfs(root)
}

// FreeSymbols returns the symbols occurring in root, in first-visit order.
func FreeSymbols(root *Node) []*Node {
	var out []*Node
	_ = PostOrder(root, func(n *Node) error {
		if n.IsSymbol() {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// DAGSize returns the number of distinct nodes reachable from root.
func DAGSize(root *Node) int {
	count := 0
	_ = PostOrder(root, func(*Node) error {
		count++
		return nil
	})
	return count
}

// TreeSize returns the size of root counted as a tree, shared subterms
// counted once per occurrence.
func TreeSize(root *Node) int {
	sizes := make(map[*Node]int)
	_ = PostOrder(root, func(n *Node) error {
		s := 1
		for _, a := range n.args {
			s += sizes[a]
		}
		sizes[n] = s
		return nil
	})
	return sizes[root]
}

// Depth returns the height of root; leaves have depth 1.
func Depth(root *Node) int {
	depths := make(map[*Node]int)
	_ = PostOrder(root, func(n *Node) error {
		d := 0
		for _, a := range n.args {
			if depths[a] > d {
				d = depths[a]
			}
		}
		depths[n] = d + 1
		return nil
	})
	return depths[root]
}
