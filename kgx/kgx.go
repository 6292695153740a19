// Package kgx checks tabular graph files against the KGX exchange shape:
// tab-separated node and edge lists with a fixed set of required columns.
package kgx

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxFindings bounds the reported problems per file pair. Past this point
// further rows add noise, not information.
const maxFindings = 100

// scanBuffer is the largest accepted line length. Merged edge files carry
// wide provenance columns.
const scanBuffer = 4 * 1024 * 1024

// fileSpec names the columns a KGX file must carry and which of them hold
// CURIE identifiers.
type fileSpec struct {
	required []string
	curie    []string
}

var (
	nodeSpec = fileSpec{
		required: []string{"id", "category"},
		curie:    []string{"id"},
	}
	edgeSpec = fileSpec{
		required: []string{"subject", "predicate", "object"},
		curie:    []string{"subject", "object"},
	}
)

// ValidateFiles checks a decompressed node/edge file pair. Content problems
// come back as row-numbered findings and never abort the caller; the error
// return is reserved for I/O failures.
func ValidateFiles(nodesPath, edgesPath string) ([]string, error) {
	c := &collector{}
	if err := validateFile(nodesPath, nodeSpec, c); err != nil {
		return nil, err
	}
	if !c.full() {
		if err := validateFile(edgesPath, edgeSpec, c); err != nil {
			return nil, err
		}
	}
	return c.findings, nil
}

type collector struct {
	findings []string
}

func (c *collector) add(format string, args ...any) {
	if !c.full() {
		c.findings = append(c.findings, fmt.Sprintf(format, args...))
	}
}

func (c *collector) full() bool {
	return len(c.findings) >= maxFindings
}

func validateFile(path string, spec fileSpec, c *collector) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBuffer)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		c.add("%s: file is empty, no header row", name)
		return nil
	}

	header := strings.Split(strings.TrimSuffix(scanner.Text(), "\r"), "\t")
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, col := range spec.required {
		if _, ok := index[col]; !ok {
			c.add("%s: missing required column %q", name, col)
		}
	}

	row := 1
	for scanner.Scan() && !c.full() {
		row++
		fields := strings.Split(strings.TrimSuffix(scanner.Text(), "\r"), "\t")
		if len(fields) != len(header) {
			c.add("%s row %d: %d columns, header has %d", name, row, len(fields), len(header))
			continue
		}
		for _, col := range spec.required {
			i, ok := index[col]
			if !ok {
				continue
			}
			if fields[i] == "" {
				c.add("%s row %d: empty %s", name, row, col)
			}
		}
		for _, col := range spec.curie {
			i, ok := index[col]
			if !ok {
				continue
			}
			if v := fields[i]; v != "" && !isCURIE(v) {
				c.add("%s row %d: %s %q is not CURIE-shaped", name, row, col, v)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// isCURIE reports whether s looks like prefix:local with a non-empty
// prefix and local part. Full URIs pass, bare labels do not.
func isCURIE(s string) bool {
	prefix, local, ok := strings.Cut(s, ":")
	if !ok || prefix == "" || local == "" {
		return false
	}
	return !strings.ContainsAny(prefix, " \t")
}
