package version

import (
	"runtime/debug"
	"testing"
)

func TestResolveFromBuildInfo(t *testing.T) {
	t.Parallel()

	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v0.3.1"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			},
		}, true
	}
	info := resolve(read)
	if info.Name != Name || info.Version != "v0.3.1" {
		t.Fatalf("info = %+v", info)
	}
	if info.String() != "v0.3.1 (0123456789ab)" {
		t.Fatalf("String() = %q", info.String())
	}
	if info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Fatalf("build time = %q", info.BuildTime)
	}
}

func TestResolveDevelFallsBackToBuildTime(t *testing.T) {
	t.Parallel()

	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main:     debug.Module{Version: "(devel)"},
			Settings: []debug.BuildSetting{{Key: "vcs.time", Value: "2026-05-06T07:08:09Z"}},
		}, true
	}
	info := resolve(read)
	if info.Version != "2026-05-06T07:08:09Z" || info.Commit != "" {
		t.Fatalf("info = %+v", info)
	}
	if info.String() != info.Version {
		t.Fatalf("String() = %q", info.String())
	}
}

func TestResolveWithoutBuildInfo(t *testing.T) {
	t.Parallel()

	info := resolve(func() (*debug.BuildInfo, bool) { return nil, false })
	if info.Version == "" || info.GoVersion == "" {
		t.Fatalf("info = %+v", info)
	}
}
