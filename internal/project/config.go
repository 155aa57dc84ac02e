// Package project handles the rqdash project configuration file and the
// generated project files (Dockerfile, .dockerignore, docker-compose.yml).
//
// The configuration file is JSONC (JSON with Comments), so this package uses
// github.com/tidwall/jsonc to strip comments before parsing with the standard
// encoding/json library. Every field is optional: an absent file, or an empty
// one, resolves to the stock related-queries-dashboard setup.
//
// Key responsibilities:
//   - Locate and load rqdash.jsonc / rqdash.json (with JSONC support)
//   - Fill unset fields with the dashboard defaults
//   - Validate image references, ports and paths
//   - Render the scaffolded files written by `rqdash init`
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/distribution/reference"
	"github.com/tidwall/jsonc"

	"github.com/trendops/rqdash/internal/model"
)

// Dashboard defaults. These mirror the constants baked into the shell
// scripts and Dockerfile that rqdash replaces, so a project with no config
// file behaves exactly like the original setup.
const (
	// DefaultImageName is the image the dashboard is built as.
	DefaultImageName = "related-queries-dashboard"

	// DefaultTag is the image tag used when none is configured.
	DefaultTag = "latest"

	// DefaultPort is the host port the dashboard publishes on.
	DefaultPort = 8501

	// DefaultContainerPort is the port Streamlit listens on inside the
	// container. The Dockerfile EXPOSEs this port.
	DefaultContainerPort = 8501

	// DefaultDataDir is the project-relative directory bind-mounted into
	// ephemeral (dev) containers.
	DefaultDataDir = "data"

	// DefaultDataMount is the in-container mount point for the data directory.
	DefaultDataMount = "/app/data"

	// DefaultBaseImage is the base image of the generated Dockerfile.
	DefaultBaseImage = "python:3.9-slim"

	// DefaultRequirementsFile is the Python dependency manifest installed
	// during the image build.
	DefaultRequirementsFile = "requirements.txt"

	// DefaultEntrypoint is the Streamlit application file the container runs.
	DefaultEntrypoint = "src/app.py"
)

// Configuration file names searched in the project directory, in priority
// order. The .jsonc extension is preferred since the file usually carries
// comments; plain .json is accepted for tooling that dislikes the extension.
const (
	ConfigFileJSONC = "rqdash.jsonc"
	ConfigFileJSON  = "rqdash.json"
)

// Config is the parsed project configuration. Zero values mean "use the
// default"; ApplyDefaults resolves them. Unknown fields in the file are
// silently ignored during parsing.
type Config struct {
	// Name is the project name. It becomes the container name and the
	// Compose service prefix. Defaults to the image name.
	Name string `json:"name,omitempty"`

	// Image is the repository name the dashboard image is built as,
	// without a tag.
	Image string `json:"image,omitempty"`

	// Tag is the image tag applied on build.
	Tag string `json:"tag,omitempty"`

	// Port is the host port the dashboard publishes on in run mode.
	Port int `json:"port,omitempty"`

	// ContainerPort is the port Streamlit listens on inside the container.
	ContainerPort int `json:"containerPort,omitempty"`

	// DataDir is the project-relative directory that dev mode bind-mounts
	// into the container.
	DataDir string `json:"dataDir,omitempty"`

	// DataMount is the absolute in-container path the data directory is
	// mounted at.
	DataMount string `json:"dataMount,omitempty"`

	// BaseImage is the base image for the generated Dockerfile.
	BaseImage string `json:"baseImage,omitempty"`

	// RequirementsFile is the dependency manifest installed during build.
	RequirementsFile string `json:"requirementsFile,omitempty"`

	// Entrypoint is the Streamlit application file, relative to the
	// project root.
	Entrypoint string `json:"entrypoint,omitempty"`

	// Env is passed into the container at run time. Typical entries are
	// API keys the dashboard reads from its environment.
	Env map[string]string `json:"env,omitempty"`
}

// DefaultConfig returns the stock configuration used when the project has
// no config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field with its dashboard default.
// Calling it twice is harmless.
func (c *Config) ApplyDefaults() {
	if c.Image == "" {
		c.Image = DefaultImageName
	}
	if c.Name == "" {
		c.Name = c.Image
	}
	if c.Tag == "" {
		c.Tag = DefaultTag
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ContainerPort == 0 {
		c.ContainerPort = DefaultContainerPort
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DataMount == "" {
		c.DataMount = DefaultDataMount
	}
	if c.BaseImage == "" {
		c.BaseImage = DefaultBaseImage
	}
	if c.RequirementsFile == "" {
		c.RequirementsFile = DefaultRequirementsFile
	}
	if c.Entrypoint == "" {
		c.Entrypoint = DefaultEntrypoint
	}
}

// Ref returns the full image reference the build tags, e.g.
// "related-queries-dashboard:latest".
func (c *Config) Ref() string {
	return c.Image + ":" + c.Tag
}

// ContainerName returns the name given to the dashboard container.
func (c *Config) ContainerName() string {
	return c.Name
}

// ConfigPath returns the path of the configuration file inside projectDir
// and whether one exists. The .jsonc name wins when both are present.
func ConfigPath(projectDir string) (string, bool) {
	candidates := []string{
		filepath.Join(projectDir, ConfigFileJSONC),
		filepath.Join(projectDir, ConfigFileJSON),
	}

	for _, p := range candidates {
		// os.Stat checks existence without reading contents.
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Load reads the project configuration from projectDir. A missing file is
// not an error: the stock defaults are returned. A present but malformed
// file is a config error (exit code 2) so typos do not silently fall back
// to defaults.
func Load(projectDir string) (*Config, error) {
	configPath, found := ConfigPath(projectDir)
	if !found {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to read %s", configPath),
			err,
		)
	}

	// Strip JSONC comments (// and /* */) and trailing commas before
	// parsing, then hand the cleaned bytes to encoding/json. Unknown
	// fields are ignored, which lets the file carry notes for humans
	// without breaking the loader.
	cleanJSON := jsonc.ToJSON(data)

	var cfg Config
	if err := json.Unmarshal(cleanJSON, &cfg); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to parse %s", configPath),
			err,
		)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ValidationError represents a specific validation failure in the project
// configuration.
type ValidationError struct {
	// Field is the configuration field that failed validation (e.g., "image").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s: %s", e.Field, e.Message)
}

// Validate performs conformance checks on a resolved configuration and
// returns a list of validation errors (empty list = valid configuration).
// It expects ApplyDefaults to have run, so empty required fields are
// treated as failures rather than unset defaults.
//
// Checks performed:
//   - name must be a legal Docker container name
//   - image must be a valid, tagless reference; tag must be a legal tag
//   - ports must be within 1-65535
//   - dataDir must stay inside the project (relative, no ".." escape)
//   - dataMount must be an absolute container path
//   - requirementsFile and entrypoint must be project-relative
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if err := model.ValidateContainerName(c.Name); err != nil {
		errs = append(errs, ValidationError{Field: "name", Message: err.Error()})
	}

	// The image field must not smuggle in a tag or digest; the tag lives in
	// its own field so Ref() can compose them.
	if named, err := reference.ParseNormalizedNamed(c.Image); err != nil {
		errs = append(errs, ValidationError{
			Field:   "image",
			Message: fmt.Sprintf("invalid image reference %q: %v", c.Image, err),
		})
	} else if !reference.IsNameOnly(named) {
		errs = append(errs, ValidationError{
			Field:   "image",
			Message: fmt.Sprintf("image %q must not include a tag or digest (use the tag field)", c.Image),
		})
	}

	if !reference.TagRegexp.MatchString(c.Tag) {
		errs = append(errs, ValidationError{
			Field:   "tag",
			Message: fmt.Sprintf("invalid image tag %q", c.Tag),
		})
	}

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "port",
			Message: fmt.Sprintf("host port %d out of range (1-65535)", c.Port),
		})
	}
	if c.ContainerPort < 1 || c.ContainerPort > 65535 {
		errs = append(errs, ValidationError{
			Field:   "containerPort",
			Message: fmt.Sprintf("container port %d out of range (1-65535)", c.ContainerPort),
		})
	}

	if filepath.IsAbs(c.DataDir) {
		errs = append(errs, ValidationError{
			Field:   "dataDir",
			Message: "data directory must be relative to the project root",
		})
	} else if strings.HasPrefix(filepath.ToSlash(filepath.Clean(c.DataDir)), "..") {
		errs = append(errs, ValidationError{
			Field:   "dataDir",
			Message: "data directory must not escape the project root",
		})
	}

	// Container-side paths are always Linux paths, hence path.IsAbs rather
	// than filepath.IsAbs (which would misjudge on Windows hosts).
	if !path.IsAbs(c.DataMount) {
		errs = append(errs, ValidationError{
			Field:   "dataMount",
			Message: fmt.Sprintf("mount point %q must be an absolute container path", c.DataMount),
		})
	}

	if c.RequirementsFile == "" || filepath.IsAbs(c.RequirementsFile) {
		errs = append(errs, ValidationError{
			Field:   "requirementsFile",
			Message: "requirements file must be a project-relative path",
		})
	}
	if c.Entrypoint == "" || filepath.IsAbs(c.Entrypoint) {
		errs = append(errs, ValidationError{
			Field:   "entrypoint",
			Message: "entrypoint must be a project-relative path",
		})
	}

	for k := range c.Env {
		if k == "" || strings.Contains(k, "=") {
			errs = append(errs, ValidationError{
				Field:   "env",
				Message: fmt.Sprintf("invalid environment variable name %q", k),
			})
		}
	}

	return errs
}

// ValidateStrict runs Validate and folds any failures into a single
// CLIError with the config exit code, which is what the CLI commands want.
func (c *Config) ValidateStrict() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}

	messages := make([]string, len(errs))
	for i := range errs {
		messages[i] = errs[i].Error()
	}
	return model.NewCLIError(model.ExitConfigError, strings.Join(messages, "; "))
}
