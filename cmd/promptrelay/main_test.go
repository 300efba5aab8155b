package main

import "testing"

func TestConfigFileArg(t *testing.T) {
	tests := []struct {
		args []string
		want string
		ok   bool
	}{
		{[]string{"--port", "9000"}, "", false},
		{[]string{"--config", "/tmp/a.yaml"}, "/tmp/a.yaml", true},
		{[]string{"--port=1", "--config=/tmp/b.yaml"}, "/tmp/b.yaml", true},
		{[]string{"--config"}, "", false},
	}
	for _, tt := range tests {
		got, ok := configFileArg(tt.args)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("configFileArg(%v) = %q, %v; want %q, %v", tt.args, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRedisPassword(t *testing.T) {
	if got := redisPassword("redis://:hunter2@localhost:6379/0"); got != "hunter2" {
		t.Fatalf("got %q", got)
	}
	if got := redisPassword("localhost:6379"); got != "" {
		t.Fatalf("got %q", got)
	}
}
