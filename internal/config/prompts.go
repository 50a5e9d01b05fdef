package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PromptProfile is the YAML document named by PROMPTS_FILE. It lets operators
// tune the generation prompts and source filtering without long environment
// variables. Fields left empty keep the current value; environment variables
// take precedence over the profile.
type PromptProfile struct {
	TopicModel      string   `yaml:"topic_model"`
	TopicPrompt     string   `yaml:"topic_prompt"`
	SnippetModel    string   `yaml:"snippet_model"`
	SnippetPrompt   string   `yaml:"snippet_prompt"`
	ExcludedDomains []string `yaml:"excluded_domains"`
	UserAgents      []string `yaml:"user_agents"`
}

// LoadPromptProfile reads and parses a YAML prompt profile.
func LoadPromptProfile(path string) (PromptProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PromptProfile{}, fmt.Errorf("read prompt profile: %w", err)
	}
	return ParsePromptProfile(data)
}

// ParsePromptProfile parses a YAML prompt profile.
func ParsePromptProfile(data []byte) (PromptProfile, error) {
	var p PromptProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return PromptProfile{}, fmt.Errorf("parse prompt profile: %w", err)
	}
	return p, nil
}

// ApplyTo fills the pipeline fields the environment left unset.
func (p PromptProfile) ApplyTo(cfg PipelineConfig) PipelineConfig {
	if cfg.topicModel == "" {
		cfg.topicModel = p.TopicModel
	}
	if cfg.topicPrompt == "" {
		cfg.topicPrompt = p.TopicPrompt
	}
	if cfg.snippetModel == "" {
		cfg.snippetModel = p.SnippetModel
	}
	if cfg.snippetPrompt == "" {
		cfg.snippetPrompt = p.SnippetPrompt
	}
	if len(cfg.excludedDomains) == 0 && len(p.ExcludedDomains) > 0 {
		cfg.excludedDomains = copyStrings(p.ExcludedDomains)
	}
	if len(cfg.userAgents) == 0 && len(p.UserAgents) > 0 {
		cfg.userAgents = copyStrings(p.UserAgents)
	}
	return cfg
}
