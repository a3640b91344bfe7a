package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models sitedesk.yml. A copy is stored per project in the
// project_configs table; the file form exists for import/export.
type Config struct {
	Project struct {
		ID   string `yaml:"id" json:"id"`
		Kind string `yaml:"kind" json:"kind"`
	} `yaml:"project" json:"project"`
	SLA struct {
		// Response days applied when an RFI is submitted without an
		// explicit due date, keyed by priority.
		ResponseDays map[string]int `yaml:"response_days" json:"response_days"`
	} `yaml:"sla" json:"sla"`
	Numbering struct {
		RFIPrefix         string `yaml:"rfi_prefix" json:"rfi_prefix"`
		ChangeOrderPrefix string `yaml:"change_order_prefix" json:"change_order_prefix"`
		SubmittalPrefix   string `yaml:"submittal_prefix" json:"submittal_prefix"`
	} `yaml:"numbering" json:"numbering"`
	RBAC struct {
		Roles map[string]RBACRole `yaml:"roles" json:"roles"`
	} `yaml:"rbac" json:"rbac"`
	Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks,omitempty"`
}

type RBACRole struct {
	Description string   `yaml:"description" json:"description"`
	Permissions []string `yaml:"permissions" json:"permissions"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Enabled        *bool    `yaml:"enabled" json:"enabled,omitempty"`
	Events         []string `yaml:"events" json:"events,omitempty"`
	Secret         string   `yaml:"secret" json:"secret,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds,omitempty"`
}

const projectKind = "construction-project"

// Known RFI priorities; the SLA defaults must cover all of them.
var priorities = []string{"low", "normal", "high", "critical"}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with sd project config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Project.ID == "" {
		return fmt.Errorf("config.project.id is required")
	}
	if c.Project.Kind != projectKind {
		return fmt.Errorf("config.project.kind must be %q", projectKind)
	}
	if c.SLA.ResponseDays == nil {
		return fmt.Errorf("config.sla.response_days is required")
	}
	for _, p := range priorities {
		days, ok := c.SLA.ResponseDays[p]
		if !ok {
			return fmt.Errorf("config.sla.response_days missing priority %s", p)
		}
		if days <= 0 {
			return fmt.Errorf("config.sla.response_days.%s must be positive", p)
		}
	}
	for p := range c.SLA.ResponseDays {
		if !knownPriority(p) {
			return fmt.Errorf("config.sla.response_days has unknown priority %s", p)
		}
	}
	if len(c.RBAC.Roles) > 0 {
		if _, ok := c.RBAC.Roles["owner"]; !ok {
			return fmt.Errorf("config.rbac.roles must include owner")
		}
		for roleID, role := range c.RBAC.Roles {
			if roleID == "" {
				return fmt.Errorf("config.rbac.roles contains empty role id")
			}
			for _, perm := range role.Permissions {
				if perm == "" {
					return fmt.Errorf("role %s has empty permission id", roleID)
				}
			}
		}
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
	}
	return nil
}

func knownPriority(p string) bool {
	for _, known := range priorities {
		if p == known {
			return true
		}
	}
	return false
}

// ResponseDaysFor returns the configured response window for a priority,
// falling back to the normal window for unknown values.
func (c *Config) ResponseDaysFor(priority string) int {
	if days, ok := c.SLA.ResponseDays[priority]; ok && days > 0 {
		return days
	}
	return c.SLA.ResponseDays["normal"]
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "sitedesk.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(projectID string) string {
	return fmt.Sprintf(defaultTemplate, projectID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a project.
func Default(projectID string) *Config {
	var cfg Config
	cfg.Project.ID = projectID
	cfg.Project.Kind = projectKind
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, projectID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `project:
  id: %s
  kind: construction-project

sla:
  response_days:
    critical: 2
    high: 5
    normal: 7
    low: 14

numbering:
  rfi_prefix: RFI
  change_order_prefix: CO
  submittal_prefix: SUB

rbac:
  roles:
    owner:
      description: "Project owner"
      permissions:
        - project.create
        - project.read
        - project.update
        - project.delete
        - project.config.read
        - project.config.write
        - rfi.create
        - rfi.read
        - rfi.list
        - rfi.submit
        - rfi.answer
        - rfi.close
        - rfi.cancel
        - rfi.assign
        - change_order.create
        - change_order.read
        - change_order.list
        - change_order.update
        - submittal.create
        - submittal.read
        - submittal.list
        - submittal.update
        - daily_report.create
        - daily_report.read
        - daily_report.list
        - daily_report.update
        - cost.create
        - cost.read
        - cost.list
        - event.list
        - metrics.read
        - rbac.manage
    gc:
      description: "General contractor staff"
      permissions:
        - project.read
        - rfi.create
        - rfi.read
        - rfi.list
        - rfi.submit
        - rfi.close
        - rfi.assign
        - change_order.create
        - change_order.read
        - change_order.list
        - submittal.create
        - submittal.read
        - submittal.list
        - submittal.update
        - daily_report.create
        - daily_report.read
        - daily_report.list
        - daily_report.update
        - cost.read
        - cost.list
        - event.list
        - metrics.read
    reviewer:
      description: "Architect/engineer reviewer"
      permissions:
        - project.read
        - rfi.read
        - rfi.list
        - rfi.answer
        - submittal.read
        - submittal.list
        - submittal.update
        - metrics.read
    viewer:
      description: "Read-only access"
      permissions:
        - project.read
        - rfi.read
        - rfi.list
        - change_order.read
        - change_order.list
        - submittal.read
        - submittal.list
        - daily_report.read
        - daily_report.list
        - cost.read
        - cost.list
        - metrics.read
`
