package app

import (
	"testing"
)

func TestCommands_Registered(t *testing.T) {
	want := []string{"report", "coverage", "suggest", "review", "track", "watch", "mcp", "doctor"}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("%s subcommand not registered on rootCmd", name)
		}
	}
}

func TestSetVersion(t *testing.T) {
	old := appVersion
	defer SetVersion(old)

	SetVersion("1.2.3")
	if appVersion != "1.2.3" || rootCmd.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q / %q", appVersion, rootCmd.Version)
	}
}
