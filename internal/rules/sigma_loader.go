package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
)

// SigmaLoadStats tracks the number of loaded and skipped rules.
type SigmaLoadStats struct {
	TotalFiles        int
	Loaded            int
	SkippedComplex    int
	SkippedDatasource int
	SkippedInvalid    int
}

type verdict int

const (
	accepted verdict = iota
	wrongLogsource
	needsCorrelation
)

// Log sources whose fields the exported Security, Sysmon and PowerShell
// records carry. An empty value leaves the dimension open.
var (
	exportServices   = []string{"", "security", "sysmon", "powershell"}
	exportCategories = []string{"", "process_creation", "ps_script"}
)

// ruleFiles lists the YAML rules under root in lexical order. A single file
// must itself be YAML.
func ruleFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat rule path: %w", err)
	}
	if !info.IsDir() {
		if !hasYAMLExt(root) {
			return nil, fmt.Errorf("rule file must end with .yml or .yaml: %s", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir() && hasYAMLExt(p):
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk rule directory: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

func hasYAMLExt(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

func readRule(p string) (sigma.Rule, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return sigma.Rule{}, err
	}
	return sigma.ParseRule(raw)
}

// judge decides whether a rule can run against one exported record at a
// time: Windows log sources only, no timeframes, aggregations or keyword
// searches.
func judge(rule sigma.Rule) verdict {
	ls := rule.Logsource
	if p := norm(ls.Product); p != "" && p != "windows" {
		return wrongLogsource
	}
	if !slices.Contains(exportServices, norm(ls.Service)) || !slices.Contains(exportCategories, norm(ls.Category)) {
		return wrongLogsource
	}

	if rule.Detection.Timeframe > 0 {
		return needsCorrelation
	}
	for _, cond := range rule.Detection.Conditions {
		if cond.Aggregation != nil || !plainExpr(cond.Search) {
			return needsCorrelation
		}
	}
	for _, search := range rule.Detection.Searches {
		if len(search.Keywords) > 0 || len(search.EventMatchers) == 0 {
			return needsCorrelation
		}
	}
	return accepted
}

// plainExpr accepts boolean combinations of named searches.
func plainExpr(expr sigma.SearchExpr) bool {
	var children []sigma.SearchExpr
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.Not:
		return plainExpr(e.Expr)
	case sigma.And:
		children = e
	case sigma.Or:
		children = e
	default:
		return false
	}
	for _, c := range children {
		if !plainExpr(c) {
			return false
		}
	}
	return true
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
