package engine

import "fmt"

// Node is one element of a program tree. The set of node kinds is closed:
// *OneNode, *AllNode, *ParallelNode, *MarkovNode, *SequenceNode, *MapNode,
// *PathNode, *ConvolutionNode and *WFCNode.
type Node interface {
	Kind() string
	node()
}

func (*OneNode) node()      {}
func (*AllNode) node()      {}
func (*ParallelNode) node() {}
func (*MarkovNode) node()   {}
func (*SequenceNode) node() {}
func (*MapNode) node()      {}
func (*WFCNode) node()      {}
func (*PathNode) node()     {}

func (*ConvolutionNode) node() {}

func (*OneNode) Kind() string      { return "one" }
func (*AllNode) Kind() string      { return "all" }
func (*ParallelNode) Kind() string { return "prl" }
func (*MarkovNode) Kind() string   { return "markov" }
func (*SequenceNode) Kind() string { return "sequence" }
func (*MapNode) Kind() string      { return "map" }
func (*WFCNode) Kind() string      { return "wfc" }
func (*PathNode) Kind() string     { return "path" }

func (*ConvolutionNode) Kind() string { return "convolution" }

// Go runs n once. It returns false when n made no progress.
func Go(n Node, ctx *Context) bool {
	switch n := n.(type) {
	case *OneNode:
		return n.run(ctx)
	case *AllNode:
		return n.run(ctx)
	case *ParallelNode:
		return n.run(ctx)
	case *MarkovNode:
		return n.run(ctx)
	case *SequenceNode:
		return n.run(ctx)
	case *MapNode:
		return n.run(ctx)
	case *WFCNode:
		return n.run(ctx)
	case *PathNode:
		return n.run(ctx)
	case *ConvolutionNode:
		return n.run(ctx)
	}
	panic(fmt.Sprintf("engine: unknown node %T", n))
}

// Reset returns n and its subtree to the state before its first Go.
func Reset(n Node) {
	switch n := n.(type) {
	case *OneNode:
		n.reset()
	case *AllNode:
		n.reset()
	case *ParallelNode:
		n.reset()
	case *MarkovNode:
		n.reset()
	case *SequenceNode:
		n.reset()
	case *MapNode:
		n.reset()
	case *WFCNode:
		n.reset()
	case *PathNode:
		n.reset()
	case *ConvolutionNode:
		n.reset()
	default:
		panic(fmt.Sprintf("engine: unknown node %T", n))
	}
}

// Walk visits n and its descendants depth first.
func Walk(n Node, visit func(Node)) {
	visit(n)
	for _, c := range children(n) {
		Walk(c, visit)
	}
}

func children(n Node) []Node {
	switch n := n.(type) {
	case *MarkovNode:
		return n.Children
	case *SequenceNode:
		return n.Children
	case *MapNode:
		return n.Children
	case *WFCNode:
		return n.Children
	}
	return nil
}

// validate checks that the tree can run.
func validate(n Node) error {
	if n == nil {
		return NewInvalidNodeError("", "nil node")
	}
	var err error
	Walk(n, func(c Node) {
		if err != nil {
			return
		}
		switch c := c.(type) {
		case nil:
			err = NewInvalidNodeError("", "nil child")
		case *OneNode:
			err = c.validate()
		case *AllNode:
			err = c.validate()
		case *ParallelNode:
			err = c.validate()
		case *PathNode:
			err = c.validate()
		case *ConvolutionNode:
			err = c.validate()
		case *MapNode:
			if c.Grid == nil {
				err = NewInvalidNodeError(c.Kind(), "map has no target grid")
			} else if len(c.Rules) == 0 {
				err = NewInvalidNodeError(c.Kind(), "map has no rules")
			}
		case *WFCNode:
			if c.Model == nil || c.Grid == nil {
				err = NewInvalidNodeError(c.Kind(), "wfc node is missing its model or grid")
			}
		}
	})
	return err
}
