package usecase

import "testing"

func TestMachineTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		path  []State
		valid bool
	}{
		{
			name:  "refresh happy path",
			path:  []State{StateFetching, StateValidating, StatePersisting, StateLogging, StateDone},
			valid: true,
		},
		{
			name:  "generation happy path",
			path:  []State{StateFetching, StateValidating, StateComposing, StatePublishing, StateLogging, StateDone},
			valid: true,
		},
		{
			name:  "fetch failure",
			path:  []State{StateFetching, StateFailed},
			valid: true,
		},
		{
			name:  "validation failure",
			path:  []State{StateFetching, StateValidating, StateFailed},
			valid: true,
		},
		{
			name:  "publish failure",
			path:  []State{StateFetching, StateValidating, StateComposing, StatePublishing, StateFailed},
			valid: true,
		},
		{
			name:  "cannot skip fetching",
			path:  []State{StateValidating},
			valid: false,
		},
		{
			name:  "cannot publish without composing",
			path:  []State{StateFetching, StateValidating, StatePublishing},
			valid: false,
		},
		{
			name:  "cannot leave done",
			path:  []State{StateFetching, StateValidating, StatePersisting, StateLogging, StateDone, StateFetching},
			valid: false,
		},
		{
			name:  "cannot fail straight from persisting",
			path:  []State{StateFetching, StateValidating, StatePersisting, StateFailed},
			valid: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMachine("test_op")
			var err error
			for _, next := range tt.path {
				if err = m.To(next); err != nil {
					break
				}
			}
			if tt.valid && err != nil {
				t.Fatalf("path rejected: %v", err)
			}
			if !tt.valid && err == nil {
				t.Fatalf("invalid path accepted, ended at %s", m.State())
			}
		})
	}
}

func TestMachineTerminal(t *testing.T) {
	t.Parallel()

	m := NewMachine("op")
	if m.Terminal() {
		t.Fatal("idle run must not be terminal")
	}
	for _, s := range []State{StateFetching, StateFailed} {
		if err := m.To(s); err != nil {
			t.Fatal(err)
		}
	}
	if !m.Terminal() {
		t.Fatal("failed run must be terminal")
	}
}
