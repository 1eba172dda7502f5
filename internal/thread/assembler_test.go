package thread

import (
	"errors"
	"testing"
	"time"

	"github.com/ripplefeed/ripple/internal/entities"
)

func ptr(id int64) *int64 {
	return &id
}

func testComment(id int64, parent *int64, at time.Time) entities.Comment {
	return entities.Comment{
		ID:        id,
		PostID:    1,
		ParentID:  parent,
		Author:    entities.User{ID: 1, Username: "alice"},
		Content:   "c",
		CreatedAt: at,
	}
}

// flatten walks a forest depth-first and returns comment ids in render order.
func flatten(nodes []*Node) []int64 {
	var ids []int64
	for _, n := range nodes {
		ids = append(ids, n.ID)
		ids = append(ids, flatten(n.Replies)...)
	}
	return ids
}

func TestAssemble(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Two roots, the first with a reply chain: R1(t0) <- A(t2) <- B(t3),
	// second root R2 at t1.
	comments := []entities.Comment{
		{ID: 1, PostID: 1, CreatedAt: base},
		{ID: 2, PostID: 1, CreatedAt: base.Add(time.Minute)},
		{ID: 3, PostID: 1, ParentID: ptr(1), CreatedAt: base.Add(2 * time.Minute)},
		{ID: 4, PostID: 1, ParentID: ptr(3), CreatedAt: base.Add(3 * time.Minute)},
	}

	forest, err := Assemble(comments)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if len(forest) != 2 {
		t.Fatalf("Expected 2 roots, got %d", len(forest))
	}
	if forest[0].ID != 1 || forest[1].ID != 2 {
		t.Errorf("Unexpected root order: %d, %d", forest[0].ID, forest[1].ID)
	}
	if len(forest[0].Replies) != 1 || forest[0].Replies[0].ID != 3 {
		t.Fatalf("Expected comment 3 under comment 1: %+v", forest[0].Replies)
	}
	if len(forest[0].Replies[0].Replies) != 1 || forest[0].Replies[0].Replies[0].ID != 4 {
		t.Errorf("Expected comment 4 under comment 3")
	}
	if Count(forest) != 4 {
		t.Errorf("Count() = %d, want 4", Count(forest))
	}
}

func TestAssembleInputOrderIndependent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	comments := []entities.Comment{
		testComment(1, nil, base),
		testComment(2, ptr(1), base.Add(time.Minute)),
		testComment(3, ptr(1), base.Add(2*time.Minute)),
		testComment(4, nil, base.Add(3*time.Minute)),
	}

	permutations := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
	}

	want := []int64{1, 2, 3, 4}
	for _, perm := range permutations {
		shuffled := make([]entities.Comment, len(comments))
		for i, j := range perm {
			shuffled[i] = comments[j]
		}
		forest, err := Assemble(shuffled)
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		got := flatten(forest)
		if len(got) != len(want) {
			t.Fatalf("Permutation %v: expected %d comments, got %d", perm, len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Permutation %v: position %d = %d, want %d", perm, i, got[i], want[i])
			}
		}
	}
}

func TestAssembleTieBreakByID(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Identical timestamps fall back to id order at every level.
	comments := []entities.Comment{
		testComment(5, nil, at),
		testComment(2, nil, at),
		testComment(9, ptr(2), at),
		testComment(7, ptr(2), at),
	}

	forest, err := Assemble(comments)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	got := flatten(forest)
	want := []int64{2, 7, 9, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Render order %v, want %v", got, want)
		}
	}
}

func TestAssembleIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	comments := []entities.Comment{
		testComment(1, nil, base),
		testComment(2, ptr(1), base.Add(time.Minute)),
	}

	first, err := Assemble(comments)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	second, err := Assemble(comments)
	if err != nil {
		t.Fatalf("Assemble() second call error = %v", err)
	}

	a, b := flatten(first), flatten(second)
	if len(a) != len(b) {
		t.Fatalf("Repeated assembly differs in size: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Repeated assembly differs at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestAssembleOrphanParent(t *testing.T) {
	comments := []entities.Comment{
		testComment(1, ptr(99), time.Now()),
	}

	_, err := Assemble(comments)
	if !errors.Is(err, entities.ErrIntegrity) {
		t.Errorf("Expected integrity error for missing parent, got %v", err)
	}
}

func TestAssembleEmpty(t *testing.T) {
	forest, err := Assemble(nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(forest) != 0 {
		t.Errorf("Expected empty forest, got %d roots", len(forest))
	}
}
