package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// RoleOverrides lets local-dev deployments rename the three roles the audit
// core checks against (system_admin / audit_auditor / audit_supervisor)
// without touching environment variables, e.g. when a staging auth service
// was seeded with differently-named roles.
type RoleOverrides struct {
	SystemAdmin string `yaml:"system_admin"`
	Auditor     string `yaml:"auditor"`
	Supervisor  string `yaml:"supervisor"`
}

// LoadRoleOverrides reads a roles.yaml file if present at path, applying any
// non-empty fields on top of cfg. A missing file is not an error — most
// deployments rely on the SYSTEM_ADMIN_ROLE, AUDIT_AUDITOR_ROLE and
// AUDIT_SUPERVISOR_ROLE environment variables instead.
func LoadRoleOverrides(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var overrides RoleOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return err
	}

	if overrides.SystemAdmin != "" {
		cfg.RoleSystemAdmin = overrides.SystemAdmin
	}
	if overrides.Auditor != "" {
		cfg.RoleAuditor = overrides.Auditor
	}
	if overrides.Supervisor != "" {
		cfg.RoleSupervisor = overrides.Supervisor
	}
	return nil
}
