package schedule

import (
	"errors"
	"testing"

	"github.com/ifarias/examsched/internal/model"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    model.StatusCode
		to      model.StatusCode
		wantErr error
	}{
		{name: "confirm scheduled", from: model.StatusProgramado, to: model.StatusConfirmado},
		{name: "reject scheduled", from: model.StatusProgramado, to: model.StatusRechazado},
		{name: "flag scheduled for review", from: model.StatusProgramado, to: model.StatusRequiereRevision},
		{name: "confirm after review", from: model.StatusRequiereRevision, to: model.StatusConfirmado},
		{name: "reconsider rejection", from: model.StatusRechazado, to: model.StatusConfirmado},
		{name: "reject confirmed", from: model.StatusConfirmado, to: model.StatusRechazado},
		{name: "discard confirmed", from: model.StatusConfirmado, to: model.StatusDescartado},
		{name: "repeat response is a no-op", from: model.StatusConfirmado, to: model.StatusConfirmado},
		{name: "discarded is terminal", from: model.StatusDescartado, to: model.StatusProgramado, wantErr: ErrTerminalStatus},
		{name: "discarded cannot be confirmed", from: model.StatusDescartado, to: model.StatusConfirmado, wantErr: ErrTerminalStatus},
		{name: "nothing returns to scheduled", from: model.StatusConfirmado, to: model.StatusProgramado, wantErr: ErrInvalidTransition},
		{name: "unknown target", from: model.StatusProgramado, to: model.StatusCode("OTRO"), wantErr: ErrInvalidTransition},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition(tc.from, tc.to)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("transition %s -> %s should be allowed, got %v", tc.from, tc.to, err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("transition %s -> %s: got %v, want %v", tc.from, tc.to, err, tc.wantErr)
			}
		})
	}
}

func TestCanRemove(t *testing.T) {
	for _, code := range []model.StatusCode{
		model.StatusProgramado,
		model.StatusConfirmado,
		model.StatusRechazado,
		model.StatusRequiereRevision,
	} {
		if !CanRemove(code) {
			t.Fatalf("reservation in %s should be removable", code)
		}
	}
	if CanRemove(model.StatusDescartado) {
		t.Fatal("discarded reservation should not be removable again")
	}
}
