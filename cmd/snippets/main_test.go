package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/snippets/internal/config"
)

func TestIsSQLite(t *testing.T) {
	assert.True(t, isSQLite("sqlite:///tmp/snippets.db"))
	assert.True(t, isSQLite("sqlite:relative.db"))
	assert.False(t, isSQLite("postgres://user@localhost/snippets"))
	assert.False(t, isSQLite(""))
}

func TestPipelineConfig_FallsBackToChatModel(t *testing.T) {
	cfg := config.NewAppConfig().Apply(
		config.WithChatEndpoint(config.NewEndpoint("https://api.example/v1", "chat-model", "key", 0)),
	)

	p := pipelineConfig(cfg)
	assert.Equal(t, "chat-model", p.TopicModel())
	assert.Equal(t, "chat-model", p.SnippetModel())
}

func TestPipelineConfig_KeepsStageModels(t *testing.T) {
	cfg := config.NewAppConfig().Apply(
		config.WithChatEndpoint(config.NewEndpoint("https://api.example/v1", "chat-model", "key", 0)),
	)
	cfg = cfg.Apply(config.WithPipeline(cfg.Pipeline().WithModels("small", "")))

	p := pipelineConfig(cfg)
	assert.Equal(t, "small", p.TopicModel())
	assert.Equal(t, "chat-model", p.SnippetModel())
}

func TestProviderOptions_OnlyConfiguredEndpoints(t *testing.T) {
	cfg := config.NewAppConfig()
	assert.Empty(t, providerOptions(cfg))

	cfg = cfg.Apply(
		config.WithChatEndpoint(config.NewEndpoint("https://api.example/v1", "chat-model", "key", 0)),
		config.WithSearch("serper-key", ""),
	)
	assert.Len(t, providerOptions(cfg), 2)
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "snippets version "+version)
}

func TestGenerateCommand_RequiresUser(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"generate", "why is the sky blue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}
