package routing

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"localcode/internal/common/fsutil"
)

// MarshalYAML renders the document as mapping nodes so model order survives.
func (c Config) MarshalYAML() (interface{}, error) {
	root := mapping()
	models := mapping()
	for _, m := range c.Models {
		entry := mapping()
		appendPair(entry, "cmd", scalar(m.Cmd))
		appendPair(models, m.Name, entry)
	}
	appendPair(root, "models", models)
	if len(c.Groups) > 0 {
		groups := mapping()
		for _, g := range c.Groups {
			gn := mapping()
			appendPair(gn, "persistent", boolean(g.Persistent))
			appendPair(gn, "swap", boolean(g.Swap))
			appendPair(gn, "exclusive", boolean(g.Exclusive))
			members := &yaml.Node{Kind: yaml.SequenceNode}
			for _, name := range g.Members {
				members.Content = append(members.Content, scalar(name))
			}
			appendPair(gn, "members", members)
			appendPair(groups, g.Name, gn)
		}
		appendPair(root, "groups", groups)
	}
	return root, nil
}

// UnmarshalYAML reads a document produced by MarshalYAML.
func (c *Config) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("routing: expected mapping, got kind %d", n.Kind)
	}
	*c = Config{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		switch key {
		case "models":
			for j := 0; j+1 < len(val.Content); j += 2 {
				var body struct {
					Cmd string `yaml:"cmd"`
				}
				if err := val.Content[j+1].Decode(&body); err != nil {
					return fmt.Errorf("routing: model %q: %w", val.Content[j].Value, err)
				}
				c.Models = append(c.Models, Model{Name: val.Content[j].Value, Cmd: body.Cmd})
			}
		case "groups":
			for j := 0; j+1 < len(val.Content); j += 2 {
				var body struct {
					Persistent bool     `yaml:"persistent"`
					Swap       bool     `yaml:"swap"`
					Exclusive  bool     `yaml:"exclusive"`
					Members    []string `yaml:"members"`
				}
				if err := val.Content[j+1].Decode(&body); err != nil {
					return fmt.Errorf("routing: group %q: %w", val.Content[j].Value, err)
				}
				c.Groups = append(c.Groups, Group{
					Name:       val.Content[j].Value,
					Persistent: body.Persistent,
					Swap:       body.Swap,
					Exclusive:  body.Exclusive,
					Members:    body.Members,
				})
			}
		}
	}
	return nil
}

// Bytes renders the YAML document.
func (c Config) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("routing: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("routing: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a routing document.
func Parse(b []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Write persists cfg at path atomically.
func Write(path string, cfg Config) error {
	b, err := cfg.Bytes()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, b, 0o644)
}

// Read loads a routing document from path.
func Read(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("routing: read %s: %w", path, err)
	}
	return Parse(b)
}

func mapping() *yaml.Node { return &yaml.Node{Kind: yaml.MappingNode} }

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func boolean(v bool) *yaml.Node {
	s := "false"
	if v {
		s = "true"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: s}
}

func appendPair(m *yaml.Node, key string, val *yaml.Node) {
	m.Content = append(m.Content, scalar(key), val)
}
