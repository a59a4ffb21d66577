package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_DIR", t.TempDir())
	t.Setenv("APP_CONFIG_FILE", "")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "nutrictl", cmd.Use)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"migrate", "seed", "resolve", "vital", "targets"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("output"))
}

func TestVitalCommand(t *testing.T) {
	out, err := run(t, "vital", "bp", "150", "95")
	require.NoError(t, err)
	assert.Contains(t, out, "blood_pressure")
	assert.Contains(t, out, "high")

	out, err = run(t, "-o", "json", "vital", "glucose", "130", "--context", "fasting")
	require.NoError(t, err)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "high", status["level"])

	_, err = run(t, "vital", "pulse", "70")
	assert.Error(t, err)

	_, err = run(t, "vital", "hdl", "abc")
	assert.Error(t, err)
}

func TestTargetsCommand(t *testing.T) {
	out, err := run(t, "-o", "json", "targets", "--condition", "hypertension", "--condition", "ckd:4", "--weight", "70")
	require.NoError(t, err)

	var set map[string]struct {
		Value      float64 `json:"value"`
		Provenance string  `json:"provenance"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &set))
	assert.Equal(t, 1500.0, set["sodium"].Value)
	assert.Equal(t, 42.0, set["protein"].Value)
	assert.Equal(t, "default", set["energy"].Provenance)

	out, err = run(t, "targets")
	require.NoError(t, err)
	assert.Contains(t, out, "NUTRIENT")
	assert.Contains(t, out, "protein")

	_, err = run(t, "targets", "--condition", "scurvy")
	assert.Error(t, err)
}

func TestPrint_TextTable(t *testing.T) {
	o := &RootOptions{Output: "text"}
	var out bytes.Buffer
	err := o.print(&out, nil, []string{"nutrient", "value"}, [][]string{{"sodium", "1500 mg"}, {"protein", "42 g"}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Greater(t, len(lines), 3)
	var sodium string
	for _, l := range lines {
		if strings.Contains(l, "sodium") {
			sodium = l
		}
	}
	assert.Contains(t, sodium, "1500 mg", "cells of a row share one line")
	assert.Contains(t, out.String(), "NUTRIENT")
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := run(t, "-o", "xml", "vital", "hdl", "50")
	assert.Error(t, err)
}

func TestSeedRequiresFileAndCorpus(t *testing.T) {
	_, err := run(t, "seed")
	assert.Error(t, err)

	_, err = run(t, "seed", "--corpus", "imaginary", "--file", "x.yaml")
	assert.Error(t, err)
}
