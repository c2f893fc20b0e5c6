package spatial

import "testing"

func TestSkipListOrdersByScoreDescending(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("p01", 50)
	sl.Insert("p02", 80)
	sl.Insert("p03", 10)

	top := sl.GetByRank(1)
	if top == nil || top.Key != "p02" {
		t.Fatalf("expected p02 to rank first, got %v", top)
	}
	if rank := sl.GetRank("p01"); rank != 2 {
		t.Fatalf("expected p01 at rank 2, got %d", rank)
	}
	if rank := sl.GetRank("p03"); rank != 3 {
		t.Fatalf("expected p03 at rank 3, got %d", rank)
	}
}

func TestSkipListTieBreaksByKeyAscending(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("p02", 50)
	sl.Insert("p01", 50)

	if rank := sl.GetRank("p01"); rank != 1 {
		t.Fatalf("expected p01 (lower key, tied score) at rank 1, got %d", rank)
	}
	if rank := sl.GetRank("p02"); rank != 2 {
		t.Fatalf("expected p02 at rank 2, got %d", rank)
	}
}

func TestSkipListRemoveByKeyAfterHigherScoreInsert(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("p01", 50)
	sl.Insert("p02", 80)
	sl.Insert("p03", 10)

	if !sl.Remove("p01") {
		t.Fatal("expected p01 to be removed")
	}
	if sl.Length() != 2 {
		t.Fatalf("expected 2 entries remaining, got %d", sl.Length())
	}
	if _, ok := sl.GetScore("p01"); ok {
		t.Fatal("p01 should no longer be found")
	}
	if rank := sl.GetRank("p02"); rank != 1 {
		t.Fatalf("expected p02 still at rank 1, got %d", rank)
	}
	if rank := sl.GetRank("p03"); rank != 2 {
		t.Fatalf("expected p03 to shift up to rank 2, got %d", rank)
	}
}

func TestSkipListRemoveUnknownKeyReturnsFalse(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("p01", 50)

	if sl.Remove("ghost") {
		t.Fatal("expected removal of unknown key to fail")
	}
	if sl.Length() != 1 {
		t.Fatalf("expected length unchanged, got %d", sl.Length())
	}
}

func TestSkipListReinsertUpdatesRank(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("p01", 50)
	sl.Insert("p02", 80)

	sl.Insert("p01", 100)

	if rank := sl.GetRank("p01"); rank != 1 {
		t.Fatalf("expected p01 to move to rank 1 after rescoring, got %d", rank)
	}
	score, ok := sl.GetScore("p01")
	if !ok || score != 100 {
		t.Fatalf("expected p01 score 100, got %v (ok=%v)", score, ok)
	}
	if sl.Length() != 2 {
		t.Fatalf("expected length to stay at 2 across reinsert, got %d", sl.Length())
	}
}

func TestSkipListGetScoreUnknownKey(t *testing.T) {
	sl := NewSkipList()
	if _, ok := sl.GetScore("ghost"); ok {
		t.Fatal("expected ok=false for unknown key")
	}
}

func TestSkipListGetRangeHonorsOrdering(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("p01", 50)
	sl.Insert("p02", 80)
	sl.Insert("p03", 10)
	sl.Insert("p04", 30)

	top2 := sl.GetRange(1, 2)
	if len(top2) != 2 || top2[0].Key != "p02" || top2[1].Key != "p01" {
		t.Fatalf("expected [p02 p01] for top 2, got %v", top2)
	}
}

func TestSkipListClearResetsState(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("p01", 50)
	sl.Insert("p02", 80)

	sl.Clear()

	if sl.Length() != 0 {
		t.Fatalf("expected length 0 after clear, got %d", sl.Length())
	}
	if _, ok := sl.GetScore("p01"); ok {
		t.Fatal("expected p01 gone after clear")
	}
	sl.Insert("p03", 5)
	if rank := sl.GetRank("p03"); rank != 1 {
		t.Fatalf("expected fresh insert after clear to rank 1, got %d", rank)
	}
}
