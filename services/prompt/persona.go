package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is the instructional preamble that sets the answering voice
type Persona struct {
	Name         string `yaml:"name"`
	Instructions string `yaml:"instructions"`
}

// Text renders the persona block handed to Build
func (p Persona) Text() string {
	return strings.TrimSpace(p.Instructions)
}

// Validate requires non-blank instructions
func (p Persona) Validate() error {
	if p.Text() == "" {
		return errors.New("persona instructions cannot be empty")
	}
	return nil
}

// ParsePersona decodes a YAML persona document
func ParsePersona(data []byte) (Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("failed to parse persona: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Persona{}, err
	}
	return p, nil
}

// LoadPersona reads a YAML persona file such as
//
//	name: Aman Sharma
//	instructions: |
//	  You are Aman Sharma...
func LoadPersona(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("failed to read persona file: %w", err)
	}
	p, err := ParsePersona(data)
	if err != nil {
		return Persona{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
