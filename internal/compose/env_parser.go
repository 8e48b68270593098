package compose

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// EnvVarReference describes one environment variable referenced by a
// compose file. The benchmark preflight uses these to confirm the file
// actually consumes the variables the harness injects.
type EnvVarReference struct {
	Name         string // Variable name (e.g. "NUM_CONSUMERS")
	HasDefault   bool   // ${VAR:-default} or ${VAR-default}
	DefaultValue string
	IsRequired   bool // ${VAR:?error} or ${VAR?error}
	Occurrences  int  // How many times the variable appears
}

// envVarPattern matches compose variable interpolation:
// ${VAR}, $VAR, ${VAR:-default}, ${VAR-default}, ${VAR:?err}, ${VAR?err}.
var envVarPattern = regexp.MustCompile(
	`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?|\?|-)([^}]*))?\}` +
		`|\$([A-Za-z_][A-Za-z0-9_]*)`,
)

// ParseEnvVars extracts all environment variable references from a compose
// file, deduplicated by name and sorted alphabetically.
func ParseEnvVars(composeFilePath string) ([]EnvVarReference, error) {
	data, err := os.ReadFile(composeFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	// Parse as YAML first so a malformed file fails here rather than at
	// docker compose invocation time.
	var composeData map[string]interface{}
	if err := yaml.Unmarshal(data, &composeData); err != nil {
		return nil, fmt.Errorf("failed to parse compose YAML: %w", err)
	}

	vars := make(map[string]*EnvVarReference)

	for _, match := range envVarPattern.FindAllStringSubmatch(string(data), -1) {
		var name, operator, value string

		if match[1] != "" {
			// ${VAR...} form
			name = match[1]
			operator = match[2]
			value = match[3]
		} else if match[4] != "" {
			// bare $VAR form
			name = match[4]
		} else {
			continue
		}

		ref, exists := vars[name]
		if !exists {
			ref = &EnvVarReference{Name: name}
			vars[name] = ref
		}
		ref.Occurrences++

		switch operator {
		case ":-", "-":
			ref.HasDefault = true
			if ref.DefaultValue == "" {
				ref.DefaultValue = value
			}
		case ":?", "?":
			ref.IsRequired = true
		}
	}

	refs := make([]EnvVarReference, 0, len(vars))
	for _, ref := range vars {
		refs = append(refs, *ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	return refs, nil
}

// HasReference reports whether the parsed references include name.
func HasReference(refs []EnvVarReference, name string) bool {
	for _, ref := range refs {
		if ref.Name == name {
			return true
		}
	}
	return false
}

// ServiceNames returns the service names declared in a compose file,
// sorted alphabetically.
func ServiceNames(composeFilePath string) ([]string, error) {
	data, err := os.ReadFile(composeFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	var composeData struct {
		Services map[string]interface{} `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &composeData); err != nil {
		return nil, fmt.Errorf("failed to parse compose YAML: %w", err)
	}

	names := make([]string, 0, len(composeData.Services))
	for name := range composeData.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}
