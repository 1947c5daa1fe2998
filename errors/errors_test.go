package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "phase and kind only",
			err:  &Error{Phase: PhaseEnqueue, Kind: KindOverflow},
			want: "[enqueue] overflow",
		},
		{
			name: "with site and detail",
			err: &Error{
				Phase:  PhaseDispatch,
				Kind:   KindBadSlot,
				Site:   "Acme.Widget.Poke",
				Detail: "slot 9 out of range",
			},
			want: "[dispatch] bad_slot at Acme.Widget.Poke: slot 9 out of range",
		},
		{
			name: "with cause",
			err: &Error{
				Phase:  PhaseResolve,
				Kind:   KindNoInterface,
				Detail: "resolve failed",
				Cause:  stderrors.New("boom"),
			},
			want: "[resolve] no_interface: resolve failed (caused by: boom)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_IsMatchesPhaseAndKind(t *testing.T) {
	err := Overflow(PhaseEnqueue, "capacity overflow")

	if !stderrors.Is(err, &Error{Phase: PhaseEnqueue, Kind: KindOverflow}) {
		t.Fatal("Is failed for matching phase and kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseDrain, Kind: KindOverflow}) {
		t.Fatal("Is matched a different phase")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(PhaseResolve, KindNoInterface, cause, "query failed")

	if !stderrors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable through Unwrap")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseDispatch, KindNotFound).
		Site("Lib.Thing.Do").
		Detail("slot %d holds no target", 3).
		Value(3).
		Build()

	if err.Phase != PhaseDispatch || err.Kind != KindNotFound {
		t.Fatalf("built error = %+v", err)
	}
	if err.Detail != "slot 3 holds no target" {
		t.Fatalf("Detail = %q", err.Detail)
	}
	if err.Site != "Lib.Thing.Do" {
		t.Fatalf("Site = %q", err.Site)
	}
	if err.Value != 3 {
		t.Fatalf("Value = %v", err.Value)
	}
}

func TestForeignError(t *testing.T) {
	err := ForeignError(-2147467259, "Acme.Widget.Read", "device unplugged")

	if err.Kind != KindForeignError {
		t.Fatalf("Kind = %s", err.Kind)
	}
	if !strings.Contains(err.Detail, "0x80004005") {
		t.Fatalf("Detail %q missing hex code", err.Detail)
	}
	if !strings.Contains(err.Detail, "device unplugged") {
		t.Fatalf("Detail %q missing extra info", err.Detail)
	}
}

func TestBadSlot(t *testing.T) {
	err := BadSlot(5, 9, 2)

	if err.Kind != KindBadSlot || err.Phase != PhaseDispatch {
		t.Fatalf("BadSlot = %+v", err)
	}
	if !strings.Contains(err.Detail, "slot 9") || !strings.Contains(err.Detail, "2 slots") {
		t.Fatalf("Detail = %q", err.Detail)
	}
}

func TestAbort_String(t *testing.T) {
	a := &Abort{Code: FatalExecutionEngine, Message: "detected managed heap corruption"}

	s := a.String()
	if !strings.Contains(s, "0x80131506") {
		t.Fatalf("String() = %q missing fatal code", s)
	}
	if !strings.Contains(s, "detected managed heap corruption") {
		t.Fatalf("String() = %q missing message", s)
	}
}
