package version

import "testing"

func TestStrings(t *testing.T) {
	oldVersion, oldCommit, oldBuild := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuild })

	Version, Commit, BuildTime = "1.2.3", "abc123", "2024-01-15T10:00:00Z"

	if got, want := String(), "1.2.3 (abc123) built 2024-01-15T10:00:00Z"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := UserAgent(), "stockfeed/1.2.3"; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
	if got := Get(); got.Commit != "abc123" {
		t.Errorf("Get().Commit = %q, want abc123", got.Commit)
	}
}
