package manager

import (
	"fmt"
	"regexp"

	"github.com/nocware/netexec/types"
)

// Intent names a device question independent of vendor syntax. The
// per-vendor command table maps each intent to the concrete command and an
// extraction rule for its output.
type Intent string

const (
	IntentForwardingTable Intent = "forwarding-table"
	IntentVLANs           Intent = "vlans"
	IntentPorts           Intent = "ports"
)

// ExtractKind selects how records are pulled out of a command result.
type ExtractKind string

const (
	// ExtractLinePattern applies a regexp with named capture groups to
	// each output line; every matching line yields one record.
	ExtractLinePattern ExtractKind = "line-pattern"

	// ExtractTreePath walks the reply tree to a set of entry nodes and
	// reads record fields from child paths.
	ExtractTreePath ExtractKind = "tree-path"
)

// Extraction describes how to turn a command result into field maps.
type Extraction struct {
	Kind ExtractKind

	// Pattern is the line regexp for ExtractLinePattern. Named groups
	// become record fields.
	Pattern string

	// Path locates the per-record entry nodes for ExtractTreePath, and
	// Fields maps record field names to child paths under each entry.
	Path   string
	Fields map[string]string

	compiled *regexp.Regexp
}

// Command binds a vendor CLI command or RPC to its extraction rule.
type Command struct {
	Cmd     string
	Extract Extraction
}

// CommandTable is one vendor's intent bindings.
type CommandTable map[Intent]Command

// Validate compiles every pattern and rejects malformed rules. Called at
// registration so a broken table fails fast rather than on first use.
func (t CommandTable) Validate() error {
	for intent, cmd := range t {
		if cmd.Cmd == "" {
			return fmt.Errorf("intent %s: empty command", intent)
		}
		switch cmd.Extract.Kind {
		case ExtractLinePattern:
			re, err := regexp.Compile(cmd.Extract.Pattern)
			if err != nil {
				return fmt.Errorf("intent %s: %w", intent, err)
			}
			if !hasNamedGroup(re) {
				return fmt.Errorf("intent %s: pattern has no named groups", intent)
			}
			cmd.Extract.compiled = re
			t[intent] = cmd
		case ExtractTreePath:
			if cmd.Extract.Path == "" || len(cmd.Extract.Fields) == 0 {
				return fmt.Errorf("intent %s: tree extraction needs a path and fields", intent)
			}
		default:
			return fmt.Errorf("intent %s: unknown extraction kind %q", intent, cmd.Extract.Kind)
		}
	}
	return nil
}

func hasNamedGroup(re *regexp.Regexp) bool {
	for _, name := range re.SubexpNames() {
		if name != "" {
			return true
		}
	}
	return false
}

// Records applies the extraction rule to a command result, yielding one
// string field map per record. A nil result extracts to no records.
func (e Extraction) Records(res *types.Result) []map[string]string {
	if res == nil {
		return nil
	}
	switch e.Kind {
	case ExtractLinePattern:
		return e.lineRecords(res.Lines)
	case ExtractTreePath:
		return e.treeRecords(res.Tree)
	}
	return nil
}

func (e Extraction) lineRecords(lines []string) []map[string]string {
	re := e.compiled
	if re == nil {
		re = regexp.MustCompile(e.Pattern)
	}
	var out []map[string]string
	names := re.SubexpNames()
	for _, line := range lines {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rec := make(map[string]string, len(names))
		for i, name := range names {
			if name != "" {
				rec[name] = m[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

func (e Extraction) treeRecords(tree *types.Node) []map[string]string {
	if tree == nil {
		return nil
	}
	var out []map[string]string
	for _, entry := range tree.Find(e.Path) {
		rec := make(map[string]string, len(e.Fields))
		for field, path := range e.Fields {
			rec[field] = entry.ChildText(path)
		}
		out = append(out, rec)
	}
	return out
}
