package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StorageType defines the document storage backend for FT indexes.
type StorageType string

// StorageHash stores documents as Redis hashes.
const StorageHash StorageType = "HASH"

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldText
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldTag:
		return "TAG"
	case IndexFieldText:
		return "TEXT"
	default:
		return "IndexFieldType(" + strconv.Itoa(int(t)) + ")"
	}
}

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name  string
	Alias string // AS alias in FT.CREATE SCHEMA
	Type  IndexFieldType

	// TAG options. A facet field is a case-sensitive tag with a one-byte separator.
	TagSeparator     string
	TagCaseSensitive bool

	Sortable bool
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
	// NoStopWords disables the default stop-word list, so every query word counts.
	NoStopWords bool
}

// IndexInfo is the part of FT.INFO the service reports.
type IndexInfo struct {
	NumDocs int64
	// Indexing is set while the backend still scans existing keys.
	Indexing bool
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field name is required at index %d", i)
		}
		key := f.Name
		if f.Alias != "" {
			key = f.Alias
		}
		if !IsValidIdentifier(key) {
			return fmt.Errorf("field name %s contains invalid characters, set an alias", key)
		}
		if seen[key] {
			return fmt.Errorf("duplicate field name: %s", key)
		}
		seen[key] = true
		if f.Type == IndexFieldTag && len(f.TagSeparator) > 1 {
			return fmt.Errorf("field %s: tag separator %q must be a single byte", f.Name, f.TagSeparator)
		}
	}

	return nil
}

// Args renders the FT.CREATE arguments, index name first.
func (idx *IndexDefinition) Args() ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	storage := idx.StorageType
	if storage == "" {
		storage = StorageHash
	}
	args := []string{idx.Name, "ON", string(storage)}

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	if idx.NoStopWords {
		args = append(args, "STOPWORDS", "0")
	}

	args = append(args, "SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		args = append(args, f.Name)
		if f.Alias != "" {
			args = append(args, "AS", f.Alias)
		}
		switch f.Type {
		case IndexFieldNumeric, IndexFieldText:
			args = append(args, f.Type.String())
		case IndexFieldTag:
			args = append(args, f.Type.String())
			if f.TagSeparator != "" {
				args = append(args, "SEPARATOR", f.TagSeparator)
			}
			if f.TagCaseSensitive {
				args = append(args, "CASESENSITIVE")
			}
		default:
			return nil, fmt.Errorf("field %s: unknown type %s", f.Name, f.Type)
		}
		if f.Sortable {
			args = append(args, "SORTABLE")
		}
	}
	return args, nil
}

// String renders the definition as an FT.CREATE command line, or an
// invalid marker when it does not validate.
func (idx *IndexDefinition) String() string {
	args, err := idx.Args()
	if err != nil {
		return "<invalid index definition: " + err.Error() + ">"
	}
	return "FT.CREATE " + strings.Join(args, " ")
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isWordChar(r) && r != ':' && r != '-' {
			return false
		}
	}
	return true
}

// FieldAlias maps an attribute name to a query-safe identifier: every
// character outside [a-zA-Z0-9_] becomes '_' ("categories.lvl0" -> "categories_lvl0").
func FieldAlias(name string) string {
	return strings.Map(func(r rune) rune {
		if isWordChar(r) {
			return r
		}
		return '_'
	}, name)
}

func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}
