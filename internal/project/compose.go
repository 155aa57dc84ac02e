// compose.go generates a docker-compose.yml equivalent of the project
// configuration, so the dashboard can be handed to people who deploy with
// `docker compose up` instead of rqdash.
//
// The generated file combines the published port of run mode with the data
// bind mount of dev mode: together they describe the full local setup. The
// top-level `name` sets COMPOSE_PROJECT_NAME, which keeps container and
// network names consistent with what rqdash itself creates.
package project

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// composeService is the single service entry in the generated file. Only
// the fields rqdash manages are emitted; yaml.v3 marshals map fields with
// sorted keys, so the output is deterministic and diff-friendly.
type composeService struct {
	// Image is the full image reference, e.g. "related-queries-dashboard:latest".
	Image string `yaml:"image"`

	// ContainerName pins the container name to what rqdash would use,
	// so `rqdash status` and `docker compose ps` agree.
	ContainerName string `yaml:"container_name,omitempty"`

	// Ports lists the port mappings in "hostPort:containerPort" format.
	Ports []string `yaml:"ports,omitempty"`

	// Volumes lists bind mounts in "hostPath:containerPath" format.
	Volumes []string `yaml:"volumes,omitempty"`

	// Environment passes the configured variables into the container.
	Environment map[string]string `yaml:"environment,omitempty"`

	// Labels carries the rqdash management labels so containers started
	// via compose still show up in `rqdash status`.
	Labels map[string]string `yaml:"labels,omitempty"`

	// Restart keeps the dashboard up across daemon restarts, which is the
	// closest compose analog of rqdash's detached run mode.
	Restart string `yaml:"restart,omitempty"`
}

// composeFile is the document structure of the generated docker-compose.yml.
type composeFile struct {
	// Name sets the Compose project name. Docker Compose uses this to
	// prefix network and volume names, keeping them in one namespace.
	Name string `yaml:"name"`

	// Services maps service names to their definitions. rqdash always
	// emits exactly one service: the dashboard.
	Services map[string]composeService `yaml:"services"`
}

// composeServiceName is the fixed service key in the generated file.
const composeServiceName = "dashboard"

// GenerateCompose renders the docker-compose.yml for the configuration.
// The labels parameter carries the container management labels to stamp on
// the service, letting compose-started containers be discovered the same
// way rqdash-started ones are.
//
// Returns the YAML bytes with a header comment, or an error if
// serialization fails.
func GenerateCompose(cfg *Config, labels map[string]string) ([]byte, error) {
	service := composeService{
		Image:         cfg.Ref(),
		ContainerName: cfg.ContainerName(),
		Ports: []string{
			fmt.Sprintf("%d:%d", cfg.Port, cfg.ContainerPort),
		},
		Volumes: []string{
			fmt.Sprintf("./%s:%s", cfg.DataDir, cfg.DataMount),
		},
		Restart: "unless-stopped",
	}

	if len(cfg.Env) > 0 {
		service.Environment = cfg.Env
	}
	if len(labels) > 0 {
		service.Labels = labels
	}

	doc := composeFile{
		Name: cfg.Name,
		Services: map[string]composeService{
			composeServiceName: service,
		},
	}

	yamlBytes, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize compose YAML: %w", err)
	}

	// Prepend a header comment explaining the file's origin and warning
	// against manual edits, since `rqdash compose` overwrites it wholesale.
	header := fmt.Sprintf(
		"# Auto-generated by rqdash for project %q\n# DO NOT EDIT - regenerate with `rqdash compose`\n",
		cfg.Name,
	)

	return []byte(header + string(yamlBytes)), nil
}
