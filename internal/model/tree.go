package model

import (
	"errors"
	"fmt"
)

// Node is one node of a dumped regression tree. Leaves carry Leaf; split nodes route
// to Yes when value < SplitCondition, to No otherwise, and to Missing when the
// feature has no value.
type Node struct {
	NodeID         int      `json:"nodeid" yaml:"nodeid"`
	Depth          int      `json:"depth,omitempty" yaml:"depth,omitempty"`
	Split          string   `json:"split,omitempty" yaml:"split,omitempty"`
	SplitCondition float64  `json:"split_condition,omitempty" yaml:"split_condition,omitempty"`
	Yes            int      `json:"yes,omitempty" yaml:"yes,omitempty"`
	No             int      `json:"no,omitempty" yaml:"no,omitempty"`
	Missing        int      `json:"missing,omitempty" yaml:"missing,omitempty"`
	Children       []*Node  `json:"children,omitempty" yaml:"children,omitempty"`
	Leaf           *float64 `json:"leaf,omitempty" yaml:"leaf,omitempty"`

	byID map[int]*Node
}

// index builds the id lookup on the root and checks that every split node
// references existing children.
func (n *Node) index() error {
	if n == nil {
		return errors.New("nil tree")
	}
	n.byID = map[int]*Node{}
	var walk func(*Node) error
	walk = func(c *Node) error {
		if c == nil {
			return errors.New("nil node")
		}
		if _, dup := n.byID[c.NodeID]; dup {
			return fmt.Errorf("duplicate nodeid %d", c.NodeID)
		}
		n.byID[c.NodeID] = c
		for _, ch := range c.Children {
			if err := walk(ch); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(n); err != nil {
		return err
	}
	for id, c := range n.byID {
		if c.Leaf != nil {
			continue
		}
		if c.Split == "" {
			return fmt.Errorf("node %d has neither leaf nor split", id)
		}
		for _, ref := range []int{c.Yes, c.No, c.Missing} {
			if _, ok := n.byID[ref]; !ok || ref == id {
				return fmt.Errorf("node %d references unknown child %d", id, ref)
			}
		}
	}
	return nil
}

// eval walks from the root to a leaf.
func (n *Node) eval(value func(string) (float64, bool)) float64 {
	cur := n
	for steps := 0; steps <= len(n.byID); steps++ {
		if cur.Leaf != nil {
			return *cur.Leaf
		}
		next := cur.Missing
		if x, ok := value(cur.Split); ok {
			if x < cur.SplitCondition {
				next = cur.Yes
			} else {
				next = cur.No
			}
		}
		cur = n.byID[next]
	}
	// unreachable for validated trees; a cycle contributes nothing
	return 0
}
