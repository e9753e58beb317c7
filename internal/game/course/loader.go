package course

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseError reports a manifest that could not be decoded at all.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("course manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// manifest is the YAML document shape: one file may define several courses.
type manifest struct {
	Courses []Course `yaml:"courses"`
}

// LoadFile reads a course manifest and validates every course in it.
func LoadFile(path string) ([]Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	courses, err := Parse(data)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
			return nil, pe
		}
		return nil, err
	}
	return courses, nil
}

// Parse decodes and validates a course manifest document.
func Parse(data []byte) ([]Course, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(m.Courses) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("manifest defines no courses")}
	}
	for i := range m.Courses {
		if err := m.Courses[i].Validate(); err != nil {
			return nil, err
		}
	}
	return m.Courses, nil
}
