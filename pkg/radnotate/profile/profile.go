// Package profile defines the declarative field-mapping data model: how a
// source format's fields map onto the canonical document schema. Only the
// model and its storage round-trip live here; applying a profile to a
// document is a separate concern.
package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/radnotate/radnotate/pkg/radnotate/internalerr"
)

// FileType is the source format a profile targets.
type FileType string

const (
	FileTypeXML   FileType = "XML"
	FileTypeJSON  FileType = "JSON"
	FileTypeCSV   FileType = "CSV"
	FileTypePDF   FileType = "PDF"
	FileTypeOther FileType = "OTHER"
)

// DataType is the expected type of a mapped field.
type DataType string

const (
	TypeString   DataType = "string"
	TypeInteger  DataType = "integer"
	TypeFloat    DataType = "float"
	TypeBoolean  DataType = "boolean"
	TypeDate     DataType = "date"
	TypeDatetime DataType = "datetime"
	TypeArray    DataType = "array"
	TypeObject   DataType = "object"
)

// TransformationType names a value transformation applied during mapping.
type TransformationType string

const (
	TransformParseDate    TransformationType = "parse_date"
	TransformTrim         TransformationType = "trim_whitespace"
	TransformUppercase    TransformationType = "uppercase"
	TransformLowercase    TransformationType = "lowercase"
	TransformRegexExtract TransformationType = "regex_extract"
	TransformConcatenate  TransformationType = "concatenate_fields"
	TransformSplit        TransformationType = "split_string"
	TransformLookup       TransformationType = "lookup"
)

// Operator compares a field against a value in a conditional rule.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "not_equals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpRegexMatch Operator = "regex_match"
	OpIsNull     Operator = "is_null"
	OpIsNotNull  Operator = "is_not_null"
)

// Transformation is one step in a mapping's transformation chain. Lower
// Order runs first.
type Transformation struct {
	Type       TransformationType `yaml:"transformation_type" json:"transformation_type"`
	Parameters map[string]string  `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Order      int                `yaml:"order" json:"order"`
}

// ConditionalRule gates a mapping on a field comparison. Value is ignored
// for is_null and is_not_null.
type ConditionalRule struct {
	Field         string   `yaml:"field" json:"field"`
	Operator      Operator `yaml:"operator" json:"operator"`
	Value         string   `yaml:"value,omitempty" json:"value,omitempty"`
	CaseSensitive bool     `yaml:"case_sensitive" json:"case_sensitive"`
}

// FieldMapping maps one source path onto one canonical-schema path. For XML
// sources SourcePath is an element path and SourceAttribute optionally names
// an attribute instead of element text.
type FieldMapping struct {
	SourcePath      string            `yaml:"source_path" json:"source_path"`
	SourceAttribute string            `yaml:"source_attribute,omitempty" json:"source_attribute,omitempty"`
	TargetPath      string            `yaml:"target_path" json:"target_path"`
	DataType        DataType          `yaml:"data_type" json:"data_type"`
	Required        bool              `yaml:"required" json:"required"`
	DefaultValue    string            `yaml:"default_value,omitempty" json:"default_value,omitempty"`
	Transformations []Transformation  `yaml:"transformations,omitempty" json:"transformations,omitempty"`
	Conditions      []ConditionalRule `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Description     string            `yaml:"description,omitempty" json:"description,omitempty"`
}

// Profile is a named, versioned set of field mappings for one source format.
type Profile struct {
	ID          string         `yaml:"profile_id,omitempty" json:"profile_id,omitempty"`
	Name        string         `yaml:"profile_name" json:"profile_name"`
	Version     string         `yaml:"version" json:"version"`
	FileType    FileType       `yaml:"file_type" json:"file_type"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Mappings    []FieldMapping `yaml:"mappings" json:"mappings"`
}

// Validate checks structural requirements: a name, a file type, and complete
// source/target paths on every mapping. It returns every problem found.
func (p *Profile) Validate() []error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, fmt.Errorf("profile has no name"))
	}
	if p.FileType == "" {
		errs = append(errs, fmt.Errorf("profile %q has no file type", p.Name))
	}
	for i, m := range p.Mappings {
		if m.SourcePath == "" {
			errs = append(errs, fmt.Errorf("mapping %d has no source path", i))
		}
		if m.TargetPath == "" {
			errs = append(errs, fmt.Errorf("mapping %d has no target path", i))
		}
	}
	return errs
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("profile %s: %w", path, internalerr.ErrNotFound)
		}
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile %s: %w: %v", path, internalerr.ErrInvalidConfig, err)
	}
	return &p, nil
}

// Save writes a profile as YAML under dir, named <profile_name>.yaml.
func Save(dir string, p *Profile) (string, error) {
	if errs := p.Validate(); len(errs) > 0 {
		return "", fmt.Errorf("invalid profile: %v", errs[0])
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, p.Name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
