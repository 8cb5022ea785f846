package policy

import (
	"os"
	"sort"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// listFile is the mapping form of a list file.
type listFile struct {
	Entries []string `yaml:"entries"`
}

// LoadList builds a List from the configured list files. Either path may
// be empty. A file may hold a YAML sequence of names or a mapping with an
// "entries" sequence. A name present in both files is a
// ConfigurationError.
func LoadList(mode Mode, strict bool, denyFile, allowFile string) (*List, error) {
	switch mode {
	case ModeDenylist, ModeAllowlist:
	default:
		return nil, &ConfigurationError{Message: "unknown mode " + string(mode)}
	}

	deny, err := readNames(denyFile)
	if err != nil {
		return nil, err
	}
	allow, err := readNames(allowFile)
	if err != nil {
		return nil, err
	}

	l := NewList(mode, strict)
	for _, n := range deny {
		l.deny.add(n)
	}
	for _, n := range allow {
		l.allow.add(n)
	}

	var overlap []string
	for key, name := range l.deny.full {
		if _, ok := l.allow.full[key]; ok {
			overlap = append(overlap, name)
		}
	}
	if len(overlap) > 0 {
		sort.Strings(overlap)
		return nil, &ConfigurationError{Message: "names appear on both the denylist and the allowlist", Names: overlap}
	}
	return l, nil
}

func readNames(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	// #nosec G304 - path comes from configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "cannot read file", Cause: err}
	}

	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{FilePath: path, Message: "YAML parsing failed", Cause: err}
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var names []string
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&names); err != nil {
			return nil, &LoadError{FilePath: path, Line: root.Line, Message: "entries must be strings", Cause: err}
		}
	case yaml.MappingNode:
		var lf listFile
		if err := root.Decode(&lf); err != nil {
			return nil, &LoadError{FilePath: path, Line: root.Line, Message: "entries must be strings", Cause: err}
		}
		names = lf.Entries
	default:
		return nil, &LoadError{FilePath: path, Line: root.Line, Message: "expected a sequence of names or a mapping with entries"}
	}
	return names, nil
}
