package config_test

import (
	"strings"
	"testing"

	"sitedesk/internal/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default("proj-1")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Project.ID != "proj-1" {
		t.Fatalf("project id = %q", cfg.Project.ID)
	}
	if cfg.Project.Kind != "construction-project" {
		t.Fatalf("project kind = %q", cfg.Project.Kind)
	}
	if cfg.SLA.ResponseDays["critical"] != 2 || cfg.SLA.ResponseDays["low"] != 14 {
		t.Fatalf("unexpected SLA defaults: %v", cfg.SLA.ResponseDays)
	}
	if _, ok := cfg.RBAC.Roles["owner"]; !ok {
		t.Fatal("default config must define the owner role")
	}
}

func TestResponseDaysForFallsBackToNormal(t *testing.T) {
	cfg := config.Default("proj-1")
	if days := cfg.ResponseDaysFor("high"); days != 5 {
		t.Fatalf("high = %d, want 5", days)
	}
	if days := cfg.ResponseDaysFor("bogus"); days != 7 {
		t.Fatalf("unknown priority should fall back to normal (7), got %d", days)
	}
}

func TestFromYAMLRejectsMissingPriority(t *testing.T) {
	yml := `project:
  id: proj-1
  kind: construction-project
sla:
  response_days:
    critical: 2
    high: 5
    normal: 7
`
	_, err := config.FromYAML([]byte(yml))
	if err == nil {
		t.Fatal("expected error for missing low priority")
	}
	if !strings.Contains(err.Error(), "low") {
		t.Fatalf("error should name the missing priority: %v", err)
	}
}

func TestFromYAMLRejectsUnknownPriority(t *testing.T) {
	yml := `project:
  id: proj-1
  kind: construction-project
sla:
  response_days:
    critical: 2
    high: 5
    normal: 7
    low: 14
    urgent: 1
`
	_, err := config.FromYAML([]byte(yml))
	if err == nil {
		t.Fatal("expected error for unknown priority")
	}
}

func TestFromYAMLRejectsWrongKind(t *testing.T) {
	yml := `project:
  id: proj-1
  kind: software-project
sla:
  response_days:
    critical: 2
    high: 5
    normal: 7
    low: 14
`
	_, err := config.FromYAML([]byte(yml))
	if err == nil {
		t.Fatal("expected error for wrong project kind")
	}
}

func TestValidateRequiresOwnerRoleWhenRolesDefined(t *testing.T) {
	cfg := config.Default("proj-1")
	delete(cfg.RBAC.Roles, "owner")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when roles are defined without owner")
	}
}

func TestValidateRejectsWebhookWithoutURL(t *testing.T) {
	cfg := config.Default("proj-1")
	cfg.Webhooks = append(cfg.Webhooks, config.WebhookConfig{})
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for webhook with empty url")
	}
}
