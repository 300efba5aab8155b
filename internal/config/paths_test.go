package config

import (
	"strings"
	"testing"
)

func TestResolveConfigPath(t *testing.T) {
	tests := []struct {
		name        string
		goos        string
		home        string
		programData string
		want        string
	}{
		{name: "linux", goos: "linux", home: "/home/user", want: "/etc/promptrelay/server.yaml"},
		{name: "darwin", goos: "darwin", home: "/Users/test", want: "/Users/test/Library/Application Support/promptrelay/server.yaml"},
		{name: "windows", goos: "windows", programData: "C:\\ProgramData\\", want: "C:/ProgramData/promptrelay/server.yaml"},
		{name: "windows default ProgramData", goos: "windows", want: "C:/ProgramData/promptrelay/server.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.ReplaceAll(ResolveConfigPath(tt.goos, tt.home, tt.programData, "server.yaml"), "\\", "/")
			if got != tt.want {
				t.Errorf("config path: got %q want %q", got, tt.want)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("PROMPTRELAY_TEST_SET", "v")
	t.Setenv("PROMPTRELAY_TEST_EMPTY", "")
	if got := GetEnv("PROMPTRELAY_TEST_SET", "d"); got != "v" {
		t.Fatalf("set: got %q", got)
	}
	if got := GetEnv("PROMPTRELAY_TEST_EMPTY", "d"); got != "d" {
		t.Fatalf("empty: got %q", got)
	}
	if got := GetEnv("PROMPTRELAY_TEST_UNSET_XYZ", "d"); got != "d" {
		t.Fatalf("unset: got %q", got)
	}
}
