package project

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// parsedCompose mirrors the generated document shape for unmarshalling in
// assertions. Environment and labels decode as plain maps.
type parsedCompose struct {
	Name     string `yaml:"name"`
	Services map[string]struct {
		Image         string            `yaml:"image"`
		ContainerName string            `yaml:"container_name"`
		Ports         []string          `yaml:"ports"`
		Volumes       []string          `yaml:"volumes"`
		Environment   map[string]string `yaml:"environment"`
		Labels        map[string]string `yaml:"labels"`
		Restart       string            `yaml:"restart"`
	} `yaml:"services"`
}

// TestGenerateCompose verifies the generated YAML is valid and carries the
// port mapping, data mount, environment and labels from the configuration.
func TestGenerateCompose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Env = map[string]string{"OPENAI_API_KEY": "sk-test"}
	labels := map[string]string{"rqdash.managed-by": "rqdash"}

	data, err := GenerateCompose(cfg, labels)
	require.NoError(t, err)

	var doc parsedCompose
	require.NoError(t, yaml.Unmarshal(data, &doc), "generated YAML must parse")

	assert.Equal(t, "related-queries-dashboard", doc.Name)

	svc, ok := doc.Services["dashboard"]
	require.True(t, ok, "the dashboard service must exist")

	assert.Equal(t, "related-queries-dashboard:latest", svc.Image)
	assert.Equal(t, "related-queries-dashboard", svc.ContainerName)
	assert.Equal(t, []string{"8501:8501"}, svc.Ports)
	assert.Equal(t, []string{"./data:/app/data"}, svc.Volumes)
	assert.Equal(t, "sk-test", svc.Environment["OPENAI_API_KEY"])
	assert.Equal(t, "rqdash", svc.Labels["rqdash.managed-by"])
	assert.Equal(t, "unless-stopped", svc.Restart)
}

// TestGenerateCompose_Header verifies the generated-file warning header,
// since `rqdash compose` overwrites the file wholesale.
func TestGenerateCompose_Header(t *testing.T) {
	data, err := GenerateCompose(DefaultConfig(), nil)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "# Auto-generated by rqdash"),
		"output should start with the generation header")
	assert.Contains(t, text, "DO NOT EDIT")
}

// TestGenerateCompose_CustomPorts verifies non-default ports and data
// locations flow through.
func TestGenerateCompose_CustomPorts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 9000
	cfg.ContainerPort = 8501
	cfg.DataDir = "exports"
	cfg.DataMount = "/srv/exports"

	data, err := GenerateCompose(cfg, nil)
	require.NoError(t, err)

	var doc parsedCompose
	require.NoError(t, yaml.Unmarshal(data, &doc))

	svc := doc.Services["dashboard"]
	assert.Equal(t, []string{"9000:8501"}, svc.Ports)
	assert.Equal(t, []string{"./exports:/srv/exports"}, svc.Volumes)

	// Empty env and labels stay omitted rather than rendering as "{}".
	assert.Empty(t, svc.Environment)
	assert.Empty(t, svc.Labels)
}
