// scaffold.go renders the files `rqdash init` writes into a project:
// the Dockerfile, a .dockerignore, and a commented starter configuration.
//
// The Dockerfile is the contract the rest of the tool relies on: a
// python:3.9-slim base, /app as the working directory, a pip install from
// the dependency manifest, an EXPOSEd dashboard port, and a CMD that starts
// Streamlit bound to 0.0.0.0 so the published port actually reaches it.
// Changing the template changes what `rqdash build` produces, so the
// template is pinned by tests.
package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// dockerfileTemplate is the image definition written by init. The CMD uses
// the exec form so Streamlit runs as PID 1 and receives stop signals
// directly instead of through a shell.
const dockerfileTemplate = `FROM {{.BaseImage}}

WORKDIR /app

COPY {{.RequirementsFile}} .
RUN pip install --no-cache-dir -r {{.RequirementsFile}}

COPY . .

EXPOSE {{.ContainerPort}}

CMD ["streamlit", "run", "{{.Entrypoint}}", "--server.port={{.ContainerPort}}", "--server.address=0.0.0.0"]
`

// dockerignoreTemplate keeps the build context small. The data directory is
// excluded because dev mode bind-mounts it at run time; baking a snapshot of
// it into the image would only bloat layers and go stale.
const dockerignoreTemplate = `.git
.gitignore
__pycache__/
*.pyc
.venv/
venv/
{{.DataDir}}/
docker-compose.yml
{{.ConfigFile}}
`

// configTemplate is the starter rqdash.jsonc. It deliberately carries
// comments and a trailing comma: the loader accepts JSONC, and the sample
// doubles as a demonstration of that.
const configTemplate = `// rqdash project configuration.
// Comments and trailing commas are fine here; unknown fields are ignored.
{
  // Image name and tag the dashboard is built as.
  "image": "{{.Image}}",
  "tag": "{{.Tag}}",

  // Host port the dashboard publishes on. The container side stays on
  // {{.ContainerPort}}, which is what the Dockerfile EXPOSEs.
  "port": {{.Port}},

  // Directory bind-mounted into the container at {{.DataMount}} by
  // ` + "`rqdash dev`" + `.
  "dataDir": "{{.DataDir}}",

  // Environment passed to the container, e.g. API keys the dashboard reads.
  "env": {},
}
`

// scaffoldData is the template input: the resolved configuration plus the
// name of the config file being generated (needed by the .dockerignore).
type scaffoldData struct {
	*Config
	ConfigFile string
}

// renderTemplate executes one of the scaffold templates against the
// resolved configuration.
func renderTemplate(name, text string, cfg *Config) ([]byte, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, scaffoldData{Config: cfg, ConfigFile: ConfigFileJSONC}); err != nil {
		return nil, fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.Bytes(), nil
}

// RenderDockerfile produces the Dockerfile contents for the configuration.
func RenderDockerfile(cfg *Config) ([]byte, error) {
	return renderTemplate("Dockerfile", dockerfileTemplate, cfg)
}

// RenderDockerignore produces the .dockerignore contents for the configuration.
func RenderDockerignore(cfg *Config) ([]byte, error) {
	return renderTemplate(".dockerignore", dockerignoreTemplate, cfg)
}

// RenderConfigTemplate produces the commented starter configuration file.
func RenderConfigTemplate(cfg *Config) ([]byte, error) {
	return renderTemplate(ConfigFileJSONC, configTemplate, cfg)
}

// WriteGeneratedFile writes a generated file, creating parent directories
// as needed. Generated files are world-readable (0644): they contain no
// secrets, only project structure.
func WriteGeneratedFile(outputPath string, data []byte) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}

// ScaffoldResult reports what WriteScaffold did, for the command output.
type ScaffoldResult struct {
	// Written lists the files created or overwritten, project-relative.
	Written []string `json:"written"`

	// Skipped lists files left untouched because they already existed
	// and force was not set.
	Skipped []string `json:"skipped,omitempty"`
}

// WriteScaffold writes the scaffold files into projectDir: the Dockerfile,
// the .dockerignore, the starter config, and the (empty) data directory.
//
// Existing files are skipped unless force is set; a hand-edited
// Dockerfile is never overwritten by a plain init.
func WriteScaffold(projectDir string, cfg *Config, force bool) (*ScaffoldResult, error) {
	files := []struct {
		name   string
		render func(*Config) ([]byte, error)
	}{
		{"Dockerfile", RenderDockerfile},
		{".dockerignore", RenderDockerignore},
		{ConfigFileJSONC, RenderConfigTemplate},
	}

	result := &ScaffoldResult{}
	for _, f := range files {
		target := filepath.Join(projectDir, f.name)

		if _, err := os.Stat(target); err == nil && !force {
			result.Skipped = append(result.Skipped, f.name)
			continue
		}

		data, err := f.render(cfg)
		if err != nil {
			return nil, err
		}
		if err := WriteGeneratedFile(target, data); err != nil {
			return nil, err
		}
		result.Written = append(result.Written, f.name)
	}

	// The data directory is the dev-mode mount source; create it up front
	// so the first `rqdash dev` has a valid bind source.
	dataDir := filepath.Join(projectDir, cfg.DataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	return result, nil
}
