package sync

import "testing"

func TestAssessUpdate(t *testing.T) {
	tests := []struct {
		name        string
		kind        Kind
		local       int
		remote      int
		exerciseIDs []string
		wantAllow   bool
		wantChild   bool
		wantReason  BlockReason
	}{
		{
			name:  "normal update syncs children",
			kind:  KindTemplate,
			local: 3, remote: 2,
			exerciseIDs: []string{"a", "b", "c"},
			wantAllow:   true, wantChild: true,
		},
		{
			name:  "empty local over populated remote degrades to metadata only",
			kind:  KindTemplate,
			local: 0, remote: 4,
			wantAllow: true, wantChild: false,
			wantReason: ReasonEmptyLocalOverwrite,
		},
		{
			name:  "empty local over empty remote allows without child sync",
			kind:  KindSession,
			local: 0, remote: 0,
			wantAllow: true, wantChild: false,
		},
		{
			name:  "oversized collection blocks entirely",
			kind:  KindTemplate,
			local: 51, remote: 10,
			wantAllow: false, wantChild: false,
			wantReason: ReasonOversizedCollection,
		},
		{
			name:  "exercise repeated four times blocks entirely",
			kind:  KindTemplate,
			local: 4, remote: 4,
			exerciseIDs: []string{"a", "a", "a", "a"},
			wantAllow:   false, wantChild: false,
			wantReason: ReasonDuplicateCorruption,
		},
		{
			name:  "exercise repeated three times is tolerated",
			kind:  KindTemplate,
			local: 4, remote: 4,
			exerciseIDs: []string{"a", "a", "a", "b"},
			wantAllow:   true, wantChild: true,
		},
		{
			name:  "session shrink below half blocks entirely",
			kind:  KindSession,
			local: 2, remote: 5,
			exerciseIDs: []string{"a", "b"},
			wantAllow:   false, wantChild: false,
			wantReason: ReasonSuspiciousShrink,
		},
		{
			name:  "session at exactly half is allowed",
			kind:  KindSession,
			local: 3, remote: 6,
			exerciseIDs: []string{"a", "b", "c"},
			wantAllow:   true, wantChild: true,
		},
		{
			name:  "template shrink below half is allowed",
			kind:  KindTemplate,
			local: 2, remote: 5,
			exerciseIDs: []string{"a", "b"},
			wantAllow:   true, wantChild: true,
		},
		{
			name:  "empty rule wins over shrink rule for sessions",
			kind:  KindSession,
			local: 0, remote: 10,
			wantAllow: true, wantChild: false,
			wantReason: ReasonEmptyLocalOverwrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AssessUpdate(tt.kind, tt.local, tt.remote, tt.exerciseIDs)
			if a.Allow != tt.wantAllow {
				t.Errorf("Allow = %v, want %v", a.Allow, tt.wantAllow)
			}
			if a.ChildSync != tt.wantChild {
				t.Errorf("ChildSync = %v, want %v", a.ChildSync, tt.wantChild)
			}
			if a.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", a.Reason, tt.wantReason)
			}
		})
	}
}

func TestAssessInsert(t *testing.T) {
	if a := AssessInsert(3, []string{"a", "b", "c"}); !a.Allow || !a.ChildSync {
		t.Errorf("normal insert should be allowed with child sync, got %+v", a)
	}

	if a := AssessInsert(51, nil); a.Allow {
		t.Errorf("oversized insert should be blocked, got %+v", a)
	}

	dup := []string{"a", "a", "a", "a"}
	if a := AssessInsert(4, dup); a.Allow {
		t.Errorf("duplicate-corrupted insert should be blocked, got %+v", a)
	}

	// No remote row exists yet, so the empty and shrink rules don't apply.
	if a := AssessInsert(0, nil); !a.Allow {
		t.Errorf("empty insert should pass the guard, got %+v", a)
	}
}
