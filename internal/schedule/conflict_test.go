package schedule

import (
	"errors"
	"testing"
)

func TestCheckSpan(t *testing.T) {
	ix := NewModuleIndex(catalog(8))

	// R1/D1 holds an exam on modules {2,3}
	occupied := []int{2, 3}

	tests := []struct {
		name    string
		span    Span
		wantErr error
	}{
		{name: "overlap at head", span: Span{Start: 2, Length: 2}, wantErr: ErrSlotTaken},
		{name: "overlap at tail", span: Span{Start: 1, Length: 2}, wantErr: ErrSlotTaken},
		{name: "full cover", span: Span{Start: 1, Length: 4}, wantErr: ErrSlotTaken},
		{name: "free before", span: Span{Start: 1, Length: 1}},
		{name: "free after", span: Span{Start: 4, Length: 2}},
		{name: "past catalog", span: Span{Start: 8, Length: 2}, wantErr: ErrOrderOutOfRange},
		{name: "zero order", span: Span{Start: 0, Length: 2}, wantErr: ErrOrderOutOfRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckSpan(ix, occupied, tc.span)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("placement should be allowed, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCheckSpanIgnoresExcludedOrders(t *testing.T) {
	ix := NewModuleIndex(catalog(8))

	// resize scenario: the occupied set excludes the reservation's own
	// modules, so regrowing over them succeeds while a neighbour still blocks
	if err := CheckSpan(ix, []int{6}, Span{Start: 2, Length: 3}); err != nil {
		t.Fatalf("regrow over own freed cells should pass, got %v", err)
	}
	if err := CheckSpan(ix, []int{6}, Span{Start: 4, Length: 3}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("neighbour at order 6 should still block, got %v", err)
	}
}

func TestCheckSpanRejectsZeroLength(t *testing.T) {
	ix := NewModuleIndex(catalog(8))
	if err := CheckSpan(ix, nil, Span{Start: 1, Length: 0}); err == nil {
		t.Fatal("zero-length span should be rejected")
	}
}
