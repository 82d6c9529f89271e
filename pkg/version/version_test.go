package version

import "testing"

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	if info.Version != Version || info.GitCommit != GitCommit || info.BuildDate != BuildDate {
		t.Fatalf("info does not mirror build variables: %+v", info)
	}
}

func TestGetShortCommit(t *testing.T) {
	orig := GitCommit
	defer func() { GitCommit = orig }()

	GitCommit = "0123456789abcdef"
	if got := GetShortCommit(); got != "0123456" {
		t.Fatalf("GetShortCommit() = %q, want %q", got, "0123456")
	}

	GitCommit = "abc"
	if got := GetShortCommit(); got != "abc" {
		t.Fatalf("short hashes pass through, got %q", got)
	}
}
