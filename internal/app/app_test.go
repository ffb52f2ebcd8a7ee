package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"quiz-tex/internal/config"
	"quiz-tex/internal/domain"
	"quiz-tex/internal/latex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Parser: config.ParserConfig{
			HeaderWindow: 400,
			RulesFile:    filepath.Join(t.TempDir(), "rules.yaml"),
		},
	}
}

func TestNew_WithoutBackends(t *testing.T) {
	a, err := New(testConfig(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Cache)
	require.NotNil(t, a.Documents)

	result, err := a.Documents.Parse(context.Background(), `\begin{ex}Tính $1+1$.\end{ex}`)
	require.NoError(t, err)
	assert.Len(t, result.Questions, 1)
}

func TestNew_RequireDatabase(t *testing.T) {
	_, err := New(testConfig(t), Options{RequireDatabase: true})
	assert.ErrorContains(t, err, "database is not configured")
}

func TestReloadRules(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	src := `\begin{ex}$x\in\RR$\end{ex}`
	before, err := a.Documents.Parse(ctx, src)
	require.NoError(t, err)
	require.Len(t, before.Questions, 1)
	assert.Contains(t, before.Questions[0].Content, `\RR`)

	rules := "rules:\n  - pattern: '\\\\RR'\n    replacement: '\\mathbb{R}'\n"
	require.NoError(t, os.WriteFile(cfg.Parser.RulesFile, []byte(rules), 0o644))
	require.NoError(t, a.ReloadRules())

	after, err := a.Documents.Parse(ctx, src)
	require.NoError(t, err)
	require.Len(t, after.Questions, 1)
	assert.Contains(t, after.Questions[0].Content, `\mathbb{R}`)
}

func TestLoadRules_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [\n"), 0o644))

	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestInvalidRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - pattern: '(unclosed'\n    replacement: x\n"), 0o644))

	rules, ruleErrs, err := latex.LoadRules(path)
	require.NoError(t, err)
	require.Len(t, ruleErrs, 1)
	assert.Zero(t, rules.Len())

	converted := invalidRule(ruleErrs[0])
	assert.Equal(t, domain.CodeInvalidRule, domain.CodeOf(converted))
}
