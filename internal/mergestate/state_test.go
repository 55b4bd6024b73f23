package mergestate

import (
	"path/filepath"
	"testing"
)

func TestCanAdvanceLegalTable(t *testing.T) {
	cases := []struct {
		from, to Phase
		want     bool
	}{
		{Prepare, Build, true},
		{Build, Validate, true},
		{Validate, Commit, true},
		{Commit, Cleanup, true},
		{Cleanup, Complete, true},
		{Prepare, Aborted, true},
		{Validate, Aborted, true},
		{Cleanup, Aborted, true},
		{Complete, Aborted, false},
		{Aborted, Build, false},
		{Prepare, Validate, false}, // skipping a phase is illegal
		{Build, Commit, false},
	}
	for _, c := range cases {
		if got := CanAdvance(c.from, c.to); got != c.want {
			t.Errorf("CanAdvance(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestAdvanceRejectsIllegalTransition(t *testing.T) {
	s := &State{Phase: Prepare}
	if err := s.Advance(Commit, 100); err == nil {
		t.Fatalf("expected an error skipping Build")
	}
	if s.Phase != Prepare {
		t.Errorf("Phase changed to %s despite rejected transition", s.Phase)
	}
	if err := s.Advance(Build, 100); err != nil {
		t.Fatalf("Advance(Build): %v", err)
	}
	if s.Phase != Build || s.UpdatedAt != 100 {
		t.Errorf("state = %+v", s)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merge-state.json")

	s2 := &State{Phase: Validate, EpochBefore: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", StartedAt: 5, UpdatedAt: 6}
	if err := s2.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.Phase != Validate || loaded.EpochBefore != s2.EpochBefore {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestLoadAbsentFileReturnsNilNil(t *testing.T) {
	dir := t.TempDir()
	loaded, err := Load(filepath.Join(dir, "does-not-exist.json"))
	if err != nil || loaded != nil {
		t.Fatalf("Load(absent) = %+v, %v; want nil, nil", loaded, err)
	}
}

func TestDecideRecoveryTable(t *testing.T) {
	cases := []struct {
		phase Phase
		want  RecoveryAction
	}{
		{Prepare, RecoveryAbortDeleteState},
		{Build, RecoveryAbortDeleteState},
		{Validate, RecoveryRerunValidate},
		{Commit, RecoveryInspectCommitRefs},
		{Cleanup, RecoveryRerunCleanup},
		{Complete, RecoveryDeleteState},
		{Aborted, RecoveryDeleteState},
	}
	for _, c := range cases {
		if got := Decide(c.phase); got != c.want {
			t.Errorf("Decide(%s) = %v, want %v", c.phase, got, c.want)
		}
	}
}
