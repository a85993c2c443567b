package pipeline

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v2"
)

// Prompt names in the catalogue.
const (
	PromptClassify      = "classify"
	PromptProfitAndLoss = "profit_and_loss"
	PromptBalanceSheet  = "balance_sheet"
	PromptQuery         = "query"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

type promptDef struct {
	Description string `yaml:"description"`
	Template    string `yaml:"template"`
}

// Prompts is a catalogue of named instruction templates.
type Prompts struct {
	templates map[string]*template.Template
}

// LoadPrompts parses a YAML catalogue of name → {description, template}.
func LoadPrompts(data []byte) (*Prompts, error) {
	var defs map[string]promptDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("LoadPrompts: parse yaml: %w", err)
	}

	p := &Prompts{templates: make(map[string]*template.Template, len(defs))}
	for name, def := range defs {
		if strings.TrimSpace(def.Template) == "" {
			return nil, fmt.Errorf("LoadPrompts: prompt %q has no template", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(def.Template)
		if err != nil {
			return nil, fmt.Errorf("LoadPrompts: prompt %q: %w", name, err)
		}
		p.templates[name] = tmpl
	}
	return p, nil
}

// DefaultPrompts returns the built-in catalogue.
func DefaultPrompts() *Prompts {
	p, err := LoadPrompts(defaultPromptsYAML)
	if err != nil {
		panic(err)
	}
	return p
}

// Render executes the named template with data.
func (p *Prompts) Render(name string, data interface{}) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("Render: unknown prompt %q", name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("Render: prompt %q: %w", name, err)
	}
	return b.String(), nil
}

type tablePrompt struct {
	Table string
}

type queryPrompt struct {
	Question       string
	ContextJSON    string
	ContextCompact string
}
