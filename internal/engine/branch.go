package engine

// MarkovNode repeatedly runs the first child that can make progress. It
// finishes when no child can.
type MarkovNode struct {
	Children []Node
}

// SequenceNode runs its children in order, each until it stops making
// progress.
type SequenceNode struct {
	Children []Node

	n int
}

// NewMarkov creates a MarkovNode.
func NewMarkov(children ...Node) *MarkovNode {
	return &MarkovNode{Children: children}
}

// NewSequence creates a SequenceNode.
func NewSequence(children ...Node) *SequenceNode {
	return &SequenceNode{Children: children}
}

func (m *MarkovNode) run(ctx *Context) bool {
	ctx.NextTurn()
	for _, c := range m.Children {
		if Go(c, ctx) {
			return true
		}
	}
	m.reset()
	return false
}

func (m *MarkovNode) reset() {
	for _, c := range m.Children {
		Reset(c)
	}
}

func (s *SequenceNode) run(ctx *Context) bool {
	if runSequence(s.Children, &s.n, ctx) {
		return true
	}
	s.reset()
	return false
}

func (s *SequenceNode) reset() {
	s.n = 0
	for _, c := range s.Children {
		Reset(c)
	}
}

// runSequence runs children[*n] and moves on when it stops. It returns
// false once every child has stopped.
func runSequence(children []Node, n *int, ctx *Context) bool {
	for *n < len(children) {
		if Go(children[*n], ctx) {
			return true
		}
		*n++
		if *n < len(children) {
			Reset(children[*n])
		}
	}
	return false
}
