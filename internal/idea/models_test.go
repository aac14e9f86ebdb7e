package idea

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseStage(t *testing.T) {
	cases := []struct {
		in   string
		want Stage
		ok   bool
	}{
		{"draft", StageDraft, true},
		{"  Suggested ", StageSuggested, true},
		{"DEEP_DIVE", StageDeepDive, true},
		{"closed", StageClosed, true},
		{"", "", false},
		{"published", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStage(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseStage(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAllStagesIsCopy(t *testing.T) {
	stages := AllStages()
	if len(stages) != 7 {
		t.Fatalf("expected 7 stages, got %d", len(stages))
	}
	stages[0] = "mutated"
	if AllStages()[0] != StageDraft {
		t.Fatal("AllStages must return a defensive copy")
	}
}

func TestActorPermissions(t *testing.T) {
	creator := uuid.New()
	other := uuid.New()
	private := &Idea{CreatorID: creator}
	public := &Idea{CreatorID: creator, IsPublic: true}

	owner := Actor{ID: creator}
	stranger := Actor{ID: other}
	admin := Actor{ID: other, Admin: true}

	if !owner.CanEdit(private) || !owner.CanView(private) {
		t.Fatal("creator should edit and view own idea")
	}
	if stranger.CanEdit(private) || stranger.CanView(private) {
		t.Fatal("stranger should not access a private idea")
	}
	if !stranger.CanView(public) {
		t.Fatal("public ideas are viewable by anyone")
	}
	if stranger.CanEdit(public) {
		t.Fatal("public ideas are still not editable by strangers")
	}
	if !admin.CanEdit(private) || !admin.CanView(private) {
		t.Fatal("admin should access everything")
	}
	if owner.CanView(nil) {
		t.Fatal("nil idea is never viewable")
	}
}
