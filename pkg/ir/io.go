package ir

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extensions recognised as IR files. JSON is decoded by the YAML parser.
var Extensions = []string{".air.yaml", ".air.yml", ".air.json"}

// IsIRFile reports whether path carries one of the IR file extensions.
func IsIRFile(path string) bool {
	name := filepath.Base(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Load reads and validates an IR program from a file.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading IR file %s: %w", path, err)
	}
	prog, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing IR file %s: %w", path, err)
	}
	return prog, nil
}

// Decode reads and validates an IR program.
func Decode(r io.Reader) (*Program, error) {
	var prog Program
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&prog); err != nil {
		if err == io.EOF {
			return &prog, nil
		}
		return nil, err
	}
	for i := range prog.Functions {
		if err := prog.Functions[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &prog, nil
}

// Encode writes prog as YAML.
func Encode(w io.Writer, prog *Program) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(prog); err != nil {
		return fmt.Errorf("encoding IR: %w", err)
	}
	return enc.Close()
}
