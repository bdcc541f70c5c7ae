package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindUserConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  string
		want string
	}{
		{"none", []string{"run"}, "", ""},
		{"equals", []string{"run", "--config=a.toml"}, "", "a.toml"},
		{"separate", []string{"--config", "b.yaml", "run"}, "", "b.yaml"},
		{"dangling", []string{"run", "--config"}, "", ""},
		{"env", []string{"run"}, "c.json", "c.json"},
		{"flag beats env", []string{"--config=d.json"}, "c.json", "d.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STEAMTARGET_CONFIG", tt.env)
			assert.Equal(t, tt.want, findUserConfig(tt.args))
		})
	}
}
