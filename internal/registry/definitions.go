package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"nexus/internal/template"
	"nexus/pkg/logging"
)

// Definition is one server definition file from the servers directory. It
// describes how to reach a tool server; the registry fills in everything
// else at registration time.
//
// String values support {{ .VAR }} placeholders resolved from the process
// environment, so definition files can reference tokens without embedding
// them:
//
//	name: slack-sender
//	command: node
//	args: ["slack-server.js"]
//	env:
//	  SLACK_BOT_TOKEN: "{{ .SLACK_BOT_TOKEN }}"
type Definition struct {
	Name      string            `yaml:"name,omitempty"`
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	Transport string            `yaml:"transport,omitempty"`
	URL       string            `yaml:"url,omitempty"`
}

// LoadDefinition reads and resolves a single definition file. The name
// defaults to the file's base name when the file does not set one.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition %s: %w", path, err)
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing definition %s: %w", path, err)
	}

	resolved, err := template.New().Replace(raw, template.EnvContext())
	if err != nil {
		return nil, fmt.Errorf("resolving placeholders in %s: %w", path, err)
	}

	resolvedYAML, err := yaml.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("resolving placeholders in %s: %w", path, err)
	}

	var def Definition
	if err := yaml.Unmarshal(resolvedYAML, &def); err != nil {
		return nil, fmt.Errorf("parsing definition %s: %w", path, err)
	}

	if def.Name == "" {
		def.Name = definitionName(path)
	}
	if def.Transport == "" {
		if def.URL != "" {
			def.Transport = TransportStreamableHTTP
		} else {
			def.Transport = TransportStdio
		}
	}
	if def.Command == "" && def.URL == "" {
		return nil, fmt.Errorf("definition %s: command or url required", path)
	}
	return &def, nil
}

// LoadDefinitions reads every YAML definition file in dir, sorted by server
// name. A missing directory yields an empty list; files that fail to load
// are logged and skipped so one bad definition does not take the rest down.
func LoadDefinitions(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading definitions directory %s: %w", dir, err)
	}

	var defs []Definition
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		def, err := LoadDefinition(path)
		if err != nil {
			logging.Warn("Registry", "Skipping definition %s: %v", path, err)
			continue
		}
		defs = append(defs, *def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// definitionName derives the server name implied by a definition file path.
func definitionName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isYAMLFile checks if a file path is a YAML file.
func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
