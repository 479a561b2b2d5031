package main

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestLogfRespectsVerbosity(t *testing.T) {
	oldOut := log.Writer()
	oldFlags := log.Flags()
	oldVerbosity := verbosity
	defer func() {
		log.SetOutput(oldOut)
		log.SetFlags(oldFlags)
		verbosity = oldVerbosity
	}()
	log.SetFlags(0)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	verbosity = 0

	logf(0, "always printed")
	logf(1, "suppressed at verbosity 0")
	out := buf.String()
	if !strings.Contains(out, "always printed") {
		t.Errorf("level-0 message should print regardless of verbosity, got %q", out)
	}
	if strings.Contains(out, "suppressed at verbosity 0") {
		t.Errorf("level-1 message should be suppressed at verbosity 0, got %q", out)
	}

	buf.Reset()
	verbosity = 1
	logf(1, "now printed")
	if !strings.Contains(buf.String(), "now printed") {
		t.Errorf("level-1 message should print once verbosity is raised, got %q", buf.String())
	}
}

func TestReadVerbosityEnvDefaultsToZero(t *testing.T) {
	t.Setenv("MADAG_VERBOSE", "")
	if got := readVerbosityEnv(); got != 0 {
		t.Errorf("readVerbosityEnv() with unset env = %d, want 0", got)
	}
}

func TestReadVerbosityEnvParsesInt(t *testing.T) {
	t.Setenv("MADAG_VERBOSE", "2")
	if got := readVerbosityEnv(); got != 2 {
		t.Errorf("readVerbosityEnv() = %d, want 2", got)
	}
}

func TestReadVerbosityEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("MADAG_VERBOSE", "not-a-number")
	if got := readVerbosityEnv(); got != 0 {
		t.Errorf("readVerbosityEnv() with garbage value = %d, want 0", got)
	}
}
