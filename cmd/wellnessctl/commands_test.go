package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestQuestionsLists(t *testing.T) {
	out, err := run(t, "questions")
	require.NoError(t, err)
	assert.Contains(t, out, "personality_profiler\tPersonality Profiler (48 questions)")
	assert.Contains(t, out, "self_efficacy_scale\t")
}

func TestQuestionsByPhrase(t *testing.T) {
	out, err := run(t, "questions", "self-efficacy")
	require.NoError(t, err)
	assert.Contains(t, out, "10. ")
	assert.Contains(t, out, "Scale: 1 = Not at all true")

	_, err = run(t, "questions", "enneagram")
	assert.ErrorContains(t, err, `unknown assessment "enneagram"`)
}

func TestScoreJSON(t *testing.T) {
	path := writeFile(t, "answers.json", `[4,4,4,4,4,4,4,4,4,4]`)
	out, err := run(t, "score", "self_efficacy_scale", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total Score: 40 out of 40")
	assert.NotContains(t, out, "warning:")
}

func TestScoreFreeText(t *testing.T) {
	path := writeFile(t, "answers.txt", "1. 3\n2) 3\n3. 2\n4. 2\n5. 3")
	out, err := run(t, "score", "self_efficacy_scale", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "warning: read 5 of 10 answers"), out)
	assert.Contains(t, out, "Total Score: 13 out of 40")
}

func TestScoreUnreadable(t *testing.T) {
	path := writeFile(t, "answers.txt", "no idea")
	_, err := run(t, "score", "personality_profiler", path)
	assert.ErrorContains(t, err, "no answers found")
}

func TestMigrateNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := run(t, "migrate")
	assert.ErrorIs(t, err, errNoDatabase)
}
