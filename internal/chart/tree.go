package chart

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var (
	// ErrUnknownAccount is returned when an id is not part of the tree.
	ErrUnknownAccount = errors.New("chart: unknown account")
	// ErrUnknownParent is returned when a node references a missing parent.
	ErrUnknownParent = errors.New("chart: unknown parent account")
	// ErrLevelMismatch is returned when level != parent.level+1 or a root is not level 1.
	ErrLevelMismatch = errors.New("chart: level does not follow parent")
	// ErrPostableParent is returned when an account permitting postings has children.
	ErrPostableParent = errors.New("chart: postable account cannot have children")
	// ErrCycle is returned when the parent chain loops.
	ErrCycle = errors.New("chart: parent chain forms a cycle")
)

type node struct {
	account  Account
	children []int64
}

// Tree is an arena of accounts indexed by id. Parent links are ids, never pointers.
type Tree struct {
	nodes map[int64]*node
	roots []int64
}

// BuildTree indexes accounts and validates the structural invariants.
func BuildTree(accounts []Account) (*Tree, error) {
	t := &Tree{nodes: make(map[int64]*node, len(accounts))}
	for _, a := range accounts {
		if _, dup := t.nodes[a.ID]; dup {
			return nil, fmt.Errorf("chart: duplicate account %d", a.ID)
		}
		t.nodes[a.ID] = &node{account: a}
	}
	for _, a := range accounts {
		if a.ParentID == nil {
			t.roots = append(t.roots, a.ID)
			continue
		}
		parent, ok := t.nodes[*a.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: account %d parent %d", ErrUnknownParent, a.ID, *a.ParentID)
		}
		parent.children = append(parent.children, a.ID)
	}
	for id := range t.nodes {
		if _, err := t.ancestors(id); err != nil {
			return nil, err
		}
	}
	for _, n := range t.nodes {
		if err := t.checkNode(n); err != nil {
			return nil, err
		}
	}
	t.sortChildren()
	return t, nil
}

func (t *Tree) checkNode(n *node) error {
	a := n.account
	if a.PermitsPostings && len(n.children) > 0 {
		return fmt.Errorf("%w: account %d", ErrPostableParent, a.ID)
	}
	want := 1
	if a.ParentID != nil {
		want = t.nodes[*a.ParentID].account.Level + 1
	}
	if a.Level != want {
		return fmt.Errorf("%w: account %d has level %d, want %d", ErrLevelMismatch, a.ID, a.Level, want)
	}
	return nil
}

// ancestors returns the parent chain of id, nearest first.
func (t *Tree) ancestors(id int64) ([]int64, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccount, id)
	}
	var chain []int64
	for n.account.ParentID != nil {
		pid := *n.account.ParentID
		if pid == id || len(chain) >= len(t.nodes) {
			return nil, fmt.Errorf("%w: account %d", ErrCycle, id)
		}
		chain = append(chain, pid)
		n = t.nodes[pid]
	}
	return chain, nil
}

// Len returns the number of accounts.
func (t *Tree) Len() int { return len(t.nodes) }

// Account looks up an account by id.
func (t *Tree) Account(id int64) (Account, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Account{}, false
	}
	return n.account, true
}

// Children returns the direct children of id ordered by code.
func (t *Tree) Children(id int64) []Account {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	out := make([]Account, 0, len(n.children))
	for _, cid := range n.children {
		out = append(out, t.nodes[cid].account)
	}
	return out
}

// Path returns the chain from the root down to id.
func (t *Tree) Path(id int64) ([]Account, error) {
	chain, err := t.ancestors(id)
	if err != nil {
		return nil, err
	}
	path := make([]Account, 0, len(chain)+1)
	for i := len(chain) - 1; i >= 0; i-- {
		path = append(path, t.nodes[chain[i]].account)
	}
	return append(path, t.nodes[id].account), nil
}

// IsDescendant reports whether id sits below ancestor.
func (t *Tree) IsDescendant(id, ancestor int64) bool {
	chain, err := t.ancestors(id)
	if err != nil {
		return false
	}
	for _, a := range chain {
		if a == ancestor {
			return true
		}
	}
	return false
}

// Reparent moves id under newParent (nil makes it a root) and recomputes the
// levels of the moved subtree. The tree is left untouched when the move is rejected.
func (t *Tree) Reparent(id int64, newParent *int64) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAccount, id)
	}
	level := 1
	if newParent != nil {
		if *newParent == id || t.IsDescendant(*newParent, id) {
			return fmt.Errorf("%w: moving %d under %d", ErrCycle, id, *newParent)
		}
		parent, ok := t.nodes[*newParent]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownParent, *newParent)
		}
		if parent.account.PermitsPostings {
			return fmt.Errorf("%w: account %d", ErrPostableParent, *newParent)
		}
		level = parent.account.Level + 1
	}

	if old := n.account.ParentID; old != nil {
		t.nodes[*old].children = removeID(t.nodes[*old].children, id)
	} else {
		t.roots = removeID(t.roots, id)
	}
	if newParent != nil {
		pid := *newParent
		n.account.ParentID = &pid
		t.nodes[pid].children = append(t.nodes[pid].children, id)
	} else {
		n.account.ParentID = nil
		t.roots = append(t.roots, id)
	}
	t.relevel(id, level)
	t.sortChildren()
	return nil
}

func (t *Tree) relevel(id int64, level int) {
	n := t.nodes[id]
	n.account.Level = level
	for _, cid := range n.children {
		t.relevel(cid, level+1)
	}
}

// Walk visits every account depth first, roots and siblings ordered by code.
func (t *Tree) Walk(fn func(a Account, depth int)) {
	var visit func(id int64, depth int)
	visit = func(id int64, depth int) {
		n := t.nodes[id]
		fn(n.account, depth)
		for _, cid := range n.children {
			visit(cid, depth+1)
		}
	}
	for _, id := range t.roots {
		visit(id, 0)
	}
}

func (t *Tree) sortChildren() {
	byCode := func(ids []int64) {
		sort.Slice(ids, func(i, j int) bool {
			return t.nodes[ids[i]].account.Code < t.nodes[ids[j]].account.Code
		})
	}
	byCode(t.roots)
	for _, n := range t.nodes {
		byCode(n.children)
	}
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func formatLabel(id int64, description string) string {
	return strconv.FormatInt(id, 10) + " - " + description
}
