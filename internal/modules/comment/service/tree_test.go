package service

import (
	"encoding/json"
	"testing"
	"time"

	"anoa.com/karmaforum/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func comment(post uuid.UUID, parent *entity.Comment) *entity.Comment {
	c := &entity.Comment{ID: uuid.New(), PostID: post, CreatedAt: time.Now()}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	return c
}

func ids(nodes []*CommentNode) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuildTree_Nesting(t *testing.T) {
	post := uuid.New()
	a := comment(post, nil)
	b := comment(post, a)
	c := comment(post, b)
	d := comment(post, nil)

	forests := BuildTree([]*entity.Comment{a, b, c, d})
	require.Len(t, forests, 1)

	roots := forests[post]
	assert.Equal(t, []uuid.UUID{a.ID, d.ID}, ids(roots))
	assert.Equal(t, []uuid.UUID{b.ID}, ids(roots[0].Replies))
	assert.Equal(t, []uuid.UUID{c.ID}, ids(roots[0].Replies[0].Replies))
	assert.Empty(t, roots[0].Replies[0].Replies[0].Replies)
	assert.NotNil(t, roots[1].Replies)
}

func TestBuildTree_PreservesInputOrder(t *testing.T) {
	post := uuid.New()
	root := comment(post, nil)
	r1 := comment(post, root)
	r2 := comment(post, root)
	r3 := comment(post, root)

	forests := BuildTree([]*entity.Comment{root, r3, r1, r2})
	assert.Equal(t, []uuid.UUID{r3.ID, r1.ID, r2.ID}, ids(forests[post][0].Replies))
}

func TestBuildTree_ChildBeforeParent(t *testing.T) {
	post := uuid.New()
	a := comment(post, nil)
	b := comment(post, a)

	forests := BuildTree([]*entity.Comment{b, a})
	require.Len(t, forests[post], 1)
	assert.Equal(t, a.ID, forests[post][0].ID)
	assert.Equal(t, []uuid.UUID{b.ID}, ids(forests[post][0].Replies))
}

func TestBuildTree_OrphanBecomesRoot(t *testing.T) {
	post := uuid.New()
	missing := comment(post, nil)
	orphan := comment(post, missing)
	root := comment(post, nil)

	forests := BuildTree([]*entity.Comment{orphan, root})
	assert.Equal(t, []uuid.UUID{orphan.ID, root.ID}, ids(forests[post]))
}

func TestBuildTree_ParentOnAnotherPost(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	foreign := comment(p1, nil)
	stray := comment(p2, foreign)

	forests := BuildTree([]*entity.Comment{foreign, stray})
	require.Len(t, forests, 2)
	assert.Equal(t, []uuid.UUID{foreign.ID}, ids(forests[p1]))
	assert.Empty(t, forests[p1][0].Replies)
	assert.Equal(t, []uuid.UUID{stray.ID}, ids(forests[p2]))
}

func TestBuildTree_CyclesDegradeToRoots(t *testing.T) {
	post := uuid.New()
	a := comment(post, nil)
	b := comment(post, a)
	a.ParentID = &b.ID
	self := comment(post, nil)
	self.ParentID = &self.ID

	forests := BuildTree([]*entity.Comment{a, b, self})
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, self.ID}, ids(forests[post]))
}

func TestBuildTree_RepliesUnderACycleStayAttached(t *testing.T) {
	post := uuid.New()
	a := comment(post, nil)
	b := comment(post, a)
	a.ParentID = &b.ID
	c := comment(post, a)
	d := comment(post, c)

	forests := BuildTree([]*entity.Comment{d, c, a, b})
	roots := forests[post]
	require.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(roots))
	assert.Equal(t, []uuid.UUID{c.ID}, ids(roots[0].Replies))
	assert.Equal(t, []uuid.UUID{d.ID}, ids(roots[0].Replies[0].Replies))
	assert.Empty(t, roots[1].Replies)
}

func TestBuildTree_DeepChain(t *testing.T) {
	const depth = 100000
	post := uuid.New()

	chain := make([]*entity.Comment, depth)
	for i := range chain {
		var parent *entity.Comment
		if i > 0 {
			parent = chain[i-1]
		}
		chain[i] = comment(post, parent)
	}

	// Deepest first, so every child is seen before its parent.
	input := make([]*entity.Comment, depth)
	for i, c := range chain {
		input[depth-1-i] = c
	}

	roots := BuildTree(input)[post]
	require.Len(t, roots, 1)

	node := roots[0]
	for i := 0; i < depth-1; i++ {
		require.Equal(t, chain[i].ID, node.ID)
		require.Len(t, node.Replies, 1)
		node = node.Replies[0]
	}
	assert.Equal(t, chain[depth-1].ID, node.ID)
	assert.Empty(t, node.Replies)
}

func TestBuildTree_CoversEveryComment(t *testing.T) {
	post := uuid.New()
	var all []*entity.Comment
	var parent *entity.Comment
	for i := 0; i < 50; i++ {
		var c *entity.Comment
		if i%3 == 0 {
			c = comment(post, nil)
		} else {
			c = comment(post, parent)
		}
		all = append(all, c)
		parent = c
	}

	seen := map[uuid.UUID]int{}
	var walk func([]*CommentNode)
	walk = func(nodes []*CommentNode) {
		for _, n := range nodes {
			seen[n.ID]++
			walk(n.Replies)
		}
	}
	walk(BuildTree(all)[post])

	assert.Len(t, seen, len(all))
	for _, c := range all {
		assert.Equal(t, 1, seen[c.ID])
	}
}

func TestBuildTree_Empty(t *testing.T) {
	assert.Empty(t, BuildTree(nil))
}

func TestCommentNode_JSON(t *testing.T) {
	post := uuid.New()
	a := comment(post, nil)
	a.Content = "root"

	raw, err := json.Marshal(BuildTree([]*entity.Comment{a})[post][0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "root", decoded["content"])
	assert.Equal(t, []any{}, decoded["replies"])
}
