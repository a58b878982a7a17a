package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/reobf/internal/debug"
)

// LoadKDL attempts to load configuration from .reobf.kdl in dir. A missing
// file yields a nil config and no error.
func LoadKDL(dir string) (*Config, error) {
	path := filepath.Join(dir, KDLFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KDLFile, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}
	cfg.Source = path
	return cfg, nil
}

// parseKDL reads
//
//	scan { marker_field "__OBFID"; first_party "net/minecraft/"; accessor_pattern "..."; include "**/*.class"; exclude "..." }
//	reconcile { mode "strict" }
//	inputs { reference "a.jar"; candidate "b.jar"; srg "joined.srg"; output "out.srg" }
//
// over the defaults. Unknown nodes are ignored with a debug message.
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "scan":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "marker_field":
					assignSimpleString(cn, "marker_field", func(v string) { cfg.Scan.MarkerField = v })
				case "accessor_pattern":
					assignSimpleString(cn, "accessor_pattern", func(v string) { cfg.Scan.AccessorPattern = v })
				case "first_party":
					cfg.Scan.FirstParty = collectStringArgs(cn)
				case "include":
					cfg.Scan.Include = collectStringArgs(cn)
				case "exclude":
					cfg.Scan.Exclude = collectStringArgs(cn)
				default:
					debug.Log("CONFIG", "unknown scan setting %q\n", nodeName(cn))
				}
			}
		case "reconcile":
			for _, cn := range n.Children {
				assignSimpleString(cn, "mode", func(v string) { cfg.Reconcile.Mode = v })
			}
		case "inputs":
			for _, cn := range n.Children {
				assignSimpleString(cn, "reference", func(v string) { cfg.Inputs.Reference = v })
				assignSimpleString(cn, "candidate", func(v string) { cfg.Inputs.Candidate = v })
				assignSimpleString(cn, "fields", func(v string) { cfg.Inputs.Fields = v })
				assignSimpleString(cn, "methods", func(v string) { cfg.Inputs.Methods = v })
				assignSimpleString(cn, "exceptions", func(v string) { cfg.Inputs.Exceptions = v })
				assignSimpleString(cn, "srg", func(v string) { cfg.Inputs.SRG = v })
				assignSimpleString(cn, "output", func(v string) { cfg.Inputs.Output = v })
				assignSimpleString(cn, "diff", func(v string) { cfg.Inputs.Diff = v })
			}
		default:
			debug.Log("CONFIG", "unknown config node %q\n", nodeName(n))
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

// collectStringArgs accepts both inline (include "a" "b") and block
// (include { "a"; "b" }) lists
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// In block form each string is a child node named by the string itself
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
