package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()
	if !strings.Contains(info, "SubnetSweep") {
		t.Errorf("Info() should contain 'SubnetSweep', got: %s", info)
	}
	if !strings.Contains(info, runtime.Version()) {
		t.Errorf("Info() should contain Go version, got: %s", info)
	}
	if !strings.Contains(info, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Info() should contain platform, got: %s", info)
	}
}

func TestShort(t *testing.T) {
	if got := Short(); got != "dev" {
		t.Errorf("Short() = %q, want %q (default)", got, "dev")
	}
}

func TestFields(t *testing.T) {
	got := make(map[string]string)
	for _, f := range Fields() {
		got[f.Key] = f.String
	}

	requiredKeys := []string{"version", "git_commit", "build_date", "go_version", "os", "arch"}
	for _, key := range requiredKeys {
		if _, ok := got[key]; !ok {
			t.Errorf("Fields() missing key %q", key)
		}
	}

	if got["version"] != "dev" {
		t.Errorf("Fields()[\"version\"] = %q, want %q", got["version"], "dev")
	}
	if got["go_version"] != runtime.Version() {
		t.Errorf("Fields()[\"go_version\"] = %q, want %q", got["go_version"], runtime.Version())
	}
}
