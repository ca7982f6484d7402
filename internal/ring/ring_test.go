package ring

import (
	"reflect"
	"testing"
)

// TestRingEviction is scenario S1 from spec.md §8: capacity 3, append
// [A,B,C,D], expect Items() == [B,C,D] and Size() == 3.
func TestRingEviction(t *testing.T) {
	r := New[string](3)
	for _, id := range []string{"A", "B", "C", "D"} {
		r.Append(id)
	}
	if got, want := r.Items(), []string{"B", "C", "D"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Items() = %v, want %v", got, want)
	}
	if r.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", r.Size())
	}
	if r.TotalAppended() != 4 {
		t.Fatalf("TotalAppended() = %d, want 4", r.TotalAppended())
	}
}

func TestRingSizeInvariant(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 10, 11} {
		r := New[int](5)
		for i := 0; i < n; i++ {
			r.Append(i)
		}
		want := n
		if want > 5 {
			want = 5
		}
		if r.Size() != want {
			t.Fatalf("n=%d: Size() = %d, want %d", n, r.Size(), want)
		}
		items := r.Items()
		if len(items) != want {
			t.Fatalf("n=%d: len(Items()) = %d, want %d", n, len(items), want)
		}
		// retained items are exactly the last min(n,capacity) appended, in order
		for i, v := range items {
			expected := n - want + i
			if v != expected {
				t.Fatalf("n=%d: Items()[%d] = %d, want %d", n, i, v, expected)
			}
		}
	}
}

func TestRingNewestFirst(t *testing.T) {
	r := New[int](3)
	r.Append(1)
	r.Append(2)
	r.Append(3)
	if got, want := r.ItemsNewestFirst(), []int{3, 2, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ItemsNewestFirst() = %v, want %v", got, want)
	}
}

func TestRingClear(t *testing.T) {
	r := New[int](3)
	r.Append(1)
	r.Append(2)
	r.Clear()
	if r.Size() != 0 {
		t.Fatalf("Size() after Clear() = %d, want 0", r.Size())
	}
	if len(r.Items()) != 0 {
		t.Fatalf("Items() after Clear() should be empty")
	}
}
