package rule

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse reads a rule list from YAML and compiles it against the catalog columns.
//
// The document is a list of rules:
//
//	- label: 2
//	  name: agn
//	  when: "F_ratio >= 40.0"
//	- label: 3
//	  name: sb
//	  conditions:
//	    - {column: mips24, gt: 300}
//	    - {column: lage, lt: 7.5}
func Parse(content []byte, columns []string) (*Set, error) {
	rules, err := Decode(content)
	if err != nil {
		return nil, err
	}
	return Compile(rules, columns)
}

// Decode reads a rule list from YAML without compiling it.
func Decode(content []byte) ([]Rule, error) {
	rules := []Rule{}
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return nil, fmt.Errorf("rule set: %w", err)
	}
	return rules, nil
}

// LoadFromFile reads a rule list from a YAML file without compiling it. Rules are compiled once the
// catalog, and therefore its columns, is known.
func LoadFromFile(file string) ([]Rule, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return Decode(content)
}
