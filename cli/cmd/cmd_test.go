package cmd

import (
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}

	commands := rootCmd.Commands()
	expectedCommands := map[string]bool{
		"worker": false,
		"events": false,
		"dlq":    false,
		"seed":   false,
	}

	for _, cmd := range commands {
		cmdName := cmd.Use
		for key := range expectedCommands {
			if len(cmdName) >= len(key) && cmdName[:len(key)] == key {
				expectedCommands[key] = true
				break
			}
		}
	}

	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("expected command '%s' to be registered with root command", cmdName)
		}
	}
}

func TestWorkerCommandHasRunSubcommand(t *testing.T) {
	if workerCmd == nil {
		t.Fatal("workerCmd should not be nil")
	}

	found := false
	for _, cmd := range workerCmd.Commands() {
		if cmd.Use == "run" {
			found = true
			break
		}
	}
	if !found {
		t.Error("worker command should have a run subcommand")
	}
}

func TestDLQSubcommands(t *testing.T) {
	expected := map[string]bool{
		"tail":  false,
		"list":  false,
		"stats": false,
		"purge": false,
	}

	for _, cmd := range dlqCmd.Commands() {
		if _, ok := expected[cmd.Use]; ok {
			expected[cmd.Use] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("dlq command should have a %s subcommand", name)
		}
	}
}

func TestDLQPurgeRequiresForce(t *testing.T) {
	if dlqPurgeCmd.Flags().Lookup("force") == nil {
		t.Fatal("dlq purge should have a --force flag")
	}

	dlqForce = false
	if err := dlqPurgeCmd.RunE(dlqPurgeCmd, nil); err == nil {
		t.Error("dlq purge without --force should refuse to run")
	}
}

func TestWorkerRunFlags(t *testing.T) {
	for _, name := range []string{"site-id", "limit", "rounds"} {
		if workerRunCmd.Flags().Lookup(name) == nil {
			t.Errorf("worker run should have a --%s flag", name)
		}
	}
}

func TestSeedHasScriptIDFlag(t *testing.T) {
	if seedCmd.Flags().Lookup("script-id") == nil {
		t.Fatal("seed should have a --script-id flag")
	}
}

func TestPersistentFlags(t *testing.T) {
	urlFlag := rootCmd.PersistentFlags().Lookup("collector-url")
	if urlFlag == nil {
		t.Fatal("root command should have a --collector-url flag")
	}
	// Must point at the collector's default listen port out of the box.
	if urlFlag.DefValue != "http://localhost:8098" {
		t.Errorf("--collector-url default = %q, want http://localhost:8098", urlFlag.DefValue)
	}
	if rootCmd.PersistentFlags().Lookup("json") == nil {
		t.Error("root command should have a --json flag")
	}
}
