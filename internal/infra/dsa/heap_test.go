package dsa

import (
	"math/rand"
	"sort"
	"sync"
	"testing"
)

func keys(items []RankItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}

func TestTopK_KeepsBest(t *testing.T) {
	tk := NewTopK(3)
	for i, s := range []float64{5, 1, 9, 3, 7, 2} {
		tk.Offer(RankItem{Key: string(rune('a' + i)), Score: s})
	}

	got := keys(tk.Sorted())
	want := []string{"c", "e", "a"} // 9, 7, 5
	if len(got) != len(want) {
		t.Fatalf("Sorted() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sorted()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	weakest, ok := tk.Min()
	if !ok || weakest.Score != 5 {
		t.Errorf("Min() = %v, %v; want score 5", weakest.Score, ok)
	}
}

func TestTopK_OfferReportsKept(t *testing.T) {
	tk := NewTopK(1)
	if !tk.Offer(RankItem{Key: "a", Score: 1}) {
		t.Error("first offer should be kept")
	}
	if tk.Offer(RankItem{Key: "b", Score: 0.5}) {
		t.Error("weaker offer should be rejected")
	}
	if !tk.Offer(RankItem{Key: "c", Score: 2}) {
		t.Error("stronger offer should be kept")
	}
	if tk.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tk.Len())
	}
}

func TestTopK_TiesKeepEarlier(t *testing.T) {
	tk := NewTopK(2)
	tk.Offer(RankItem{Key: "first", Score: 1})
	tk.Offer(RankItem{Key: "second", Score: 1})
	tk.Offer(RankItem{Key: "third", Score: 1})

	got := keys(tk.Sorted())
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("Sorted() = %v, want [first second]", got)
	}
}

func TestTopK_ZeroCapacity(t *testing.T) {
	for _, k := range []int{0, -3} {
		tk := NewTopK(k)
		if tk.Offer(RankItem{Key: "a", Score: 1}) {
			t.Errorf("k=%d: Offer() kept an item", k)
		}
		if _, ok := tk.Min(); ok {
			t.Errorf("k=%d: Min() ok on empty selector", k)
		}
		if len(tk.Sorted()) != 0 {
			t.Errorf("k=%d: Sorted() not empty", k)
		}
	}
}

func TestTopK_MatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	scores := make([]float64, 500)
	for i := range scores {
		scores[i] = rng.Float64() * 1000
	}

	tk := NewTopK(10)
	for _, s := range scores {
		tk.Offer(RankItem{Score: s})
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	got := tk.Sorted()
	for i := range got {
		if got[i].Score != scores[i] {
			t.Errorf("rank %d = %v, want %v", i, got[i].Score, scores[i])
		}
	}
}

func TestTopK_Concurrent(t *testing.T) {
	tk := NewTopK(5)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tk.Offer(RankItem{Score: float64(base*100 + i)})
			}
		}(g)
	}
	wg.Wait()

	got := tk.Sorted()
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[0].Score != 799 || got[4].Score != 795 {
		t.Errorf("scores = [%v .. %v], want [799 .. 795]", got[0].Score, got[4].Score)
	}
}
