package cmd

import (
	"testing"

	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/bsamaha/docker-registry/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestInitializeCommands_RegistersAllSubcommands(t *testing.T) {
	a := &cli.App{Config: &common.Config{}}
	InitializeCommands(a)

	names := make([]string, 0)
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{"list", "tags", "delete", "gc", "show", "ping", "version"} {
		assert.Contains(t, names, want)
	}
}
