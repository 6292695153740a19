package manifest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Write serializes records to path, preceded by the header comment line.
// Any existing file at path is overwritten. Records are written in the
// order given; together with the fixed field order of the record structs
// this keeps successive manifests diffable.
func Write(path, header string, records []Record) error {
	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	if !strings.HasSuffix(header, "\n") {
		buf.WriteByte('\n')
	}
	buf.Write(data)

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
