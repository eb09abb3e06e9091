package schedule

import (
	"errors"
	"testing"

	"github.com/ifarias/examsched/internal/model"
)

func catalog(n int) []model.Module {
	modules := make([]model.Module, 0, n)
	for i := 1; i <= n; i++ {
		modules = append(modules, model.Module{ID: int64(i * 10), Order: i})
	}
	return modules
}

func TestSpanOrders(t *testing.T) {
	span := Span{Start: 3, Length: 2}

	orders := span.Orders()
	if len(orders) != 2 || orders[0] != 3 || orders[1] != 4 {
		t.Fatalf("unexpected orders %v", orders)
	}

	if !span.Contains(3) || !span.Contains(4) {
		t.Fatal("span should contain its own orders")
	}
	if span.Contains(2) || span.Contains(5) {
		t.Fatal("span should not contain neighbouring orders")
	}
}

func TestResolve(t *testing.T) {
	ix := NewModuleIndex(catalog(8))

	ids, err := ix.Resolve(Span{Start: 2, Length: 3})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []int64{20, 30, 40}
	for i, id := range ids {
		if id != want[i] {
			t.Fatalf("resolved ids %v, want %v", ids, want)
		}
	}

	if _, err := ix.Resolve(Span{Start: 7, Length: 3}); !errors.Is(err, ErrOrderOutOfRange) {
		t.Fatalf("span past the catalog should be out of range, got %v", err)
	}
	if _, err := ix.Resolve(Span{Start: 1, Length: 0}); err == nil {
		t.Fatal("zero-length span should be rejected")
	}
}

func TestSpanFromModuleIDs(t *testing.T) {
	ix := NewModuleIndex(catalog(8))

	tests := []struct {
		name    string
		ids     []int64
		want    Span
		wantErr error
	}{
		{name: "contiguous", ids: []int64{40, 20, 30}, want: Span{Start: 2, Length: 3}},
		{name: "single", ids: []int64{50}, want: Span{Start: 5, Length: 1}},
		{name: "empty", ids: nil, wantErr: ErrNoModuleData},
		{name: "gap", ids: []int64{20, 40}, wantErr: ErrNonContiguous},
		{name: "duplicate", ids: []int64{20, 20}, wantErr: ErrNonContiguous},
		{name: "unknown id", ids: []int64{999}, wantErr: ErrOrderOutOfRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			span, err := ix.SpanFromModuleIDs(tc.ids)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got error %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if span != tc.want {
				t.Fatalf("got span %+v, want %+v", span, tc.want)
			}
		})
	}
}

func TestSpanOf(t *testing.T) {
	res := &model.Reservation{
		ID:         1,
		StartOrder: 4,
		Modules: []model.Module{
			{ID: 40, Order: 4},
			{ID: 50, Order: 5},
		},
	}

	span, err := SpanOf(res)
	if err != nil {
		t.Fatalf("span of: %v", err)
	}
	if span != (Span{Start: 4, Length: 2}) {
		t.Fatalf("got span %+v", span)
	}
}

func TestSpanOfFallsBackToModuleOrders(t *testing.T) {
	res := &model.Reservation{
		ID: 2,
		Modules: []model.Module{
			{ID: 30, Order: 3},
			{ID: 20, Order: 2},
		},
	}

	span, err := SpanOf(res)
	if err != nil {
		t.Fatalf("span of: %v", err)
	}
	if span != (Span{Start: 2, Length: 2}) {
		t.Fatalf("got span %+v", span)
	}
}

func TestSpanOfWithoutModulesFails(t *testing.T) {
	_, err := SpanOf(&model.Reservation{ID: 3})
	if !errors.Is(err, ErrNoModuleData) {
		t.Fatalf("got %v, want ErrNoModuleData", err)
	}
}
