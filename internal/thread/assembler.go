// Package thread assembles a post's flat comment collection into an ordered
// reply forest. It is a pure projection: no side effects, and assembling the
// same collection twice yields an identical tree.
package thread

import (
	"fmt"
	"sort"

	"github.com/ripplefeed/ripple/internal/entities"
)

// Node is a comment with its direct replies materialized. The wire format
// nests replies the same way, so handlers serialize nodes directly.
type Node struct {
	entities.Comment
	Replies []*Node `json:"replies"`
}

// Assemble builds the reply forest for one post's comments. Roots are the
// comments without a parent, ordered oldest first (conversational reading
// order) with ties broken by ascending id; each node's replies follow the
// same rule recursively, regardless of the input collection's order.
//
// A comment whose parent is not present in the collection indicates a
// corrupted store: Assemble fails with an integrity error rather than
// silently dropping the comment.
func Assemble(comments []entities.Comment) ([]*Node, error) {
	nodes := make(map[int64]*Node, len(comments))
	for i := range comments {
		c := comments[i]
		nodes[c.ID] = &Node{Comment: c, Replies: []*Node{}}
	}

	roots := make([]*Node, 0)
	for i := range comments {
		c := comments[i]
		if c.ParentID == nil {
			roots = append(roots, nodes[c.ID])
			continue
		}

		parent, ok := nodes[*c.ParentID]
		if !ok {
			return nil, fmt.Errorf("comment %d on post %d references missing parent %d: %w",
				c.ID, c.PostID, *c.ParentID, entities.ErrIntegrity)
		}
		parent.Replies = append(parent.Replies, nodes[c.ID])
	}

	sortForest(roots)
	return roots, nil
}

// sortForest orders siblings oldest first, id ascending on ties, recursively
func sortForest(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if !nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortForest(n.Replies)
	}
}

// Count returns the total number of comments in a forest
func Count(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Replies)
	}
	return total
}
