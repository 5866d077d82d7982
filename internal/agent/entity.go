package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Capability is the normalized form of an agent capability. Historical agent
// records encode capabilities as plain strings, current records as
// {name,enabled} objects; both decode into this struct so business logic
// never sees the union.
type Capability struct {
	Name    string `json:"name" yaml:"name"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

func (c *Capability) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		c.Name = name
		c.Enabled = true
		return nil
	}
	type capability Capability
	var obj capability
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("capability must be a string or an object: %w", err)
	}
	*c = Capability(obj)
	return nil
}

func (c *Capability) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Name = node.Value
		c.Enabled = true
		return nil
	}
	type capability Capability
	var obj capability
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("capability must be a string or an object: %w", err)
	}
	*c = Capability(obj)
	return nil
}

type Agent struct {
	ID           string       `json:"id" yaml:"id"`
	WebsiteID    string       `json:"website_id" yaml:"website_id"`
	Name         string       `json:"name" yaml:"name"`
	Capabilities []Capability `json:"capabilities" yaml:"capabilities"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"updated_at"`
}

// contentCapabilities are the capability names that qualify an agent for
// content writing.
var contentCapabilities = map[string]bool{
	"content_writing":  true,
	"write_draft":      true,
	"research_topic":   true,
	"content_research": true,
}

func (a *Agent) CanWriteContent() bool {
	for _, c := range a.Capabilities {
		if c.Enabled && contentCapabilities[c.Name] {
			return true
		}
	}
	return false
}
