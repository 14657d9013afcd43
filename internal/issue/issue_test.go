// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	// Verify all IDs are unique
	ids := []Id{
		EngineNotFoundId,
		ManifestNotFoundId,
		ScriptsDirNotFoundId,
		ContextDirNotFoundId,
		DockerfileNotFoundId,
		StagedFileConflictId,
		BuildFailedId,
		ConfigLoadFailedId,
		InvalidImageNameId,
		HookFailedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// Verify IDs start at 1 (iota + 1)
	if EngineNotFoundId != 1 {
		t.Errorf("EngineNotFoundId = %d, want 1", EngineNotFoundId)
	}
}

func TestGet(t *testing.T) {
	for _, id := range []Id{EngineNotFoundId, ManifestNotFoundId, BuildFailedId} {
		issue := Get(id)
		if issue == nil {
			t.Fatalf("Get(%d) returned nil", id)
		}
		if issue.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, issue.Id())
		}
		if issue.MarkdownMsg() == "" {
			t.Errorf("issue %d has empty markdown message", id)
		}
	}

	if Get(Id(9999)) != nil {
		t.Error("Get(unknown) should return nil")
	}
}

func TestValues(t *testing.T) {
	values := Values()
	if len(values) != len(issues) {
		t.Errorf("Values() returned %d issues, want %d", len(values), len(issues))
	}
}

func TestIssue_Render(t *testing.T) {
	// Stub the renderer so the test does not depend on terminal detection
	origRender := render
	defer func() { render = origRender }()
	render = func(in, stylePath string) (string, error) {
		return in, nil
	}

	out, err := Get(StagedFileConflictId).Render("dark")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "Staged files already present!") {
		t.Errorf("Render() output missing title: %q", out)
	}
}
