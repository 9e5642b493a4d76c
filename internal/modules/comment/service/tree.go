package service

import (
	"anoa.com/karmaforum/internal/entity"
	"github.com/google/uuid"
)

// CommentNode is a comment with its direct replies, serialized as the comment's
// own fields plus "replies".
type CommentNode struct {
	*entity.Comment
	Replies []*CommentNode `json:"replies"`
}

// BuildTree groups a flat comment list into one forest per post. Siblings keep
// the order they had in comments. A comment whose parent is missing from the
// input, or belongs to another post, becomes a root of its own post, as does
// every comment on a parent cycle.
func BuildTree(comments []*entity.Comment) map[uuid.UUID][]*CommentNode {
	byID := make(map[uuid.UUID]*CommentNode, len(comments))
	nodes := make([]*CommentNode, 0, len(comments))
	forests := make(map[uuid.UUID][]*CommentNode)

	for _, c := range comments {
		if c == nil {
			continue
		}
		node := &CommentNode{Comment: c, Replies: []*CommentNode{}}
		if _, seen := byID[c.ID]; !seen {
			byID[c.ID] = node
		}
		nodes = append(nodes, node)
		if _, ok := forests[c.PostID]; !ok {
			forests[c.PostID] = []*CommentNode{}
		}
	}

	cut := cycleMembers(nodes, byID)
	for _, node := range nodes {
		if parent := linkedParent(node, byID); parent != nil && !cut[node] {
			parent.Replies = append(parent.Replies, node)
			continue
		}
		forests[node.PostID] = append(forests[node.PostID], node)
	}

	return forests
}

// cycleMembers returns the nodes that sit on a parent cycle. Each node is
// walked at most once: a walk stops at the first node already finished, and a
// walk that runs into its own path has found a cycle.
func cycleMembers(nodes []*CommentNode, byID map[uuid.UUID]*CommentNode) map[*CommentNode]bool {
	const (
		unvisited = iota
		walking
		done
	)

	state := make(map[*CommentNode]int, len(nodes))
	onCycle := make(map[*CommentNode]bool)
	var path []*CommentNode

	for _, start := range nodes {
		path = path[:0]
		n := start
		for n != nil && state[n] == unvisited {
			state[n] = walking
			path = append(path, n)
			n = linkedParent(n, byID)
		}

		if n != nil && state[n] == walking {
			for i := len(path) - 1; i >= 0; i-- {
				onCycle[path[i]] = true
				if path[i] == n {
					break
				}
			}
		}

		for _, p := range path {
			state[p] = done
		}
	}
	return onCycle
}

func linkedParent(node *CommentNode, byID map[uuid.UUID]*CommentNode) *CommentNode {
	if node.ParentID == nil {
		return nil
	}
	parent, ok := byID[*node.ParentID]
	if !ok || parent.PostID != node.PostID {
		return nil
	}
	return parent
}
