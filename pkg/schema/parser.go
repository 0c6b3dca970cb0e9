package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const (
	// StructTagKey is the key used in struct tags (e.g., `db:"..."`).
	StructTagKey = "db"
)

// Parser parses struct definitions to extract entity metadata.
type Parser struct {
	cache map[reflect.Type]*EntityMetadata
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{
		cache: make(map[reflect.Type]*EntityMetadata),
	}
}

// Parse extracts EntityMetadata from a Go struct type.
func (p *Parser) Parse(modelType reflect.Type) (*EntityMetadata, error) {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}
	if cached, ok := p.cache[modelType]; ok {
		return cached, nil
	}

	entity := &EntityMetadata{
		Name:        extractEntityName(modelType),
		GoType:      modelType,
		Fields:      make([]FieldMetadata, 0),
		ForeignKeys: make([]ForeignKeyMetadata, 0),
	}
	idIndex := -1

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" || tagValue == "-" {
			// Fields without a db tag are not persisted.
			continue
		}
		opts, err := parseTag(tagValue)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tag for field %s: %w", field.Name, err)
		}

		fm, err := createFieldMetadata(field, opts, i)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		entity.Fields = append(entity.Fields, fm)

		if opts.Has("primary") {
			if idIndex != -1 {
				return nil, fmt.Errorf("entity %s declares more than one primary field", entity.Name)
			}
			if field.Type.Kind() != reflect.Int64 {
				return nil, fmt.Errorf("primary field %s must be int64", field.Name)
			}
			idIndex = len(entity.Fields) - 1
		}

		if fkStr := opts.Get("fk"); fkStr != "" {
			fk, err := parseForeignKey(entity.Name, fm, fkStr, opts)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			entity.ForeignKeys = append(entity.ForeignKeys, fk)
		}

		if opts.Has("index") {
			name := opts.Get("index")
			if name == "" {
				name = fmt.Sprintf("idx_%s_%s", entity.Name, fm.Name)
			}
			entity.Indexes = append(entity.Indexes, Index{Name: name, Columns: []string{fm.Name}})
		}
	}

	// Entity-level declarations come from optional interfaces on the model.
	model := reflect.New(modelType).Elem().Interface()
	if cu, ok := model.(CompositeUniquer); ok {
		entity.UniqueKeys = append(entity.UniqueKeys, cu.UniqueKeys()...)
	}
	if ci, ok := model.(CompositeIndexer); ok {
		entity.Indexes = append(entity.Indexes, ci.CompositeIndexes()...)
	}

	if idIndex != -1 {
		entity.IDField = &entity.Fields[idIndex]
	}

	if err := entity.verify(); err != nil {
		return nil, err
	}

	p.cache[modelType] = entity
	return entity, nil
}

// extractEntityName derives the entity name from the struct type: an
// EntityName override if the model provides one, otherwise the struct name
// converted to plural snake_case.
func extractEntityName(modelType reflect.Type) string {
	model := reflect.New(modelType).Elem().Interface()
	if n, ok := model.(EntityNamer); ok {
		return n.EntityName()
	}
	return pluralize(toSnakeCase(modelType.Name()))
}

// createFieldMetadata creates a FieldMetadata from a struct field.
func createFieldMetadata(field reflect.StructField, opts *TagOptions, position int) (FieldMetadata, error) {
	fm := FieldMetadata{
		Name:     opts.Name,
		GoField:  field.Name,
		GoType:   field.Type,
		Position: position,
		Optional: field.Type.Kind() == reflect.Pointer,
		NotNull:  opts.Has("notNull") || opts.Has("primary"),
		Unique:   opts.Has("unique"),
	}
	if fm.Name == "" {
		fm.Name = toSnakeCase(field.Name)
	}
	if fm.Optional && fm.NotNull {
		// Pointer fields model absence; notNull contradicts that.
		return fm, fmt.Errorf("notNull on optional pointer field")
	}

	if enumStr := opts.Get("enum"); enumStr != "" {
		fm.Enum = strings.Split(enumStr, "|")
	}

	switch {
	case opts.Has("positive"):
		one := int64(1)
		fm.Min = &one
		fm.MinLabel = "> 0"
	case opts.Has("min"):
		n, err := strconv.ParseInt(opts.Get("min"), 10, 64)
		if err != nil {
			return fm, fmt.Errorf("invalid min bound %q", opts.Get("min"))
		}
		fm.Min = &n
		fm.MinLabel = fmt.Sprintf(">= %d", n)
	}
	if fm.Min != nil {
		kind := field.Type.Kind()
		if kind == reflect.Pointer {
			kind = field.Type.Elem().Kind()
		}
		switch kind {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		default:
			return fm, fmt.Errorf("numeric bound on non-integer field")
		}
	}

	return fm, nil
}

// parseForeignKey parses an fk option of the form "target.column". Only id
// columns are referenceable; surrogate identifiers are the sole key form.
func parseForeignKey(sourceEntity string, fm FieldMetadata, fkStr string, opts *TagOptions) (ForeignKeyMetadata, error) {
	parts := strings.SplitN(fkStr, ".", 2)
	if len(parts) != 2 || parts[0] == "" {
		return ForeignKeyMetadata{}, fmt.Errorf("invalid fk reference %q, want target.column", fkStr)
	}
	if parts[1] != "id" {
		return ForeignKeyMetadata{}, fmt.Errorf("fk %q must reference the id column", fkStr)
	}

	action, err := parseReferenceAction(opts.Get("ondelete"))
	if err != nil {
		return ForeignKeyMetadata{}, err
	}

	return ForeignKeyMetadata{
		Name:     fmt.Sprintf("fk_%s_%s_%s", sourceEntity, fm.Name, parts[0]),
		Field:    fm.Name,
		GoField:  fm.GoField,
		Optional: fm.Optional,
		Target:   parts[0],
		OnDelete: action,
	}, nil
}

// parseReferenceAction converts an ondelete option to a ReferenceAction.
// An absent option defaults to RESTRICT, the safe choice for a kernel whose
// whole purpose is never leaving a dangling reference.
func parseReferenceAction(action string) (ReferenceAction, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "", "restrict":
		return Restrict, nil
	case "cascade":
		return Cascade, nil
	case "setnull", "set null":
		return SetNull, nil
	default:
		return Restrict, fmt.Errorf("unknown ondelete action %q", action)
	}
}

// TagOptions represents parsed tag options.
type TagOptions struct {
	Name    string            // column name (first element)
	Options map[string]string // other options
}

// Has checks if an option exists.
func (t *TagOptions) Has(key string) bool {
	_, ok := t.Options[key]
	return ok
}

// Get returns the value of an option.
func (t *TagOptions) Get(key string) string {
	return t.Options[key]
}

// parseTag parses a struct tag value into TagOptions.
// Format: "column_name,option1,option2(value),option3:value"
func parseTag(tag string) (*TagOptions, error) {
	parts := splitTag(tag)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty tag value")
	}
	opts := &TagOptions{
		Name:    parts[0],
		Options: make(map[string]string),
	}
	for i := 1; i < len(parts); i++ {
		opt := parts[i]
		if idx := strings.Index(opt, "("); idx != -1 {
			if !strings.HasSuffix(opt, ")") {
				return nil, fmt.Errorf("invalid option format: %s", opt)
			}
			opts.Options[opt[:idx]] = opt[idx+1 : len(opt)-1]
		} else if idx := strings.Index(opt, ":"); idx != -1 {
			opts.Options[opt[:idx]] = opt[idx+1:]
		} else {
			opts.Options[opt] = ""
		}
	}
	return opts, nil
}

// splitTag splits a tag value by commas, handling nested parentheses.
func splitTag(tag string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	for _, ch := range tag {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// toSnakeCase converts a string from PascalCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, ch := range s {
		if i > 0 && ch >= 'A' && ch <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(ch)
	}
	return strings.ToLower(result.String())
}

// pluralize applies the naive English plural used for derived entity names.
func pluralize(s string) string {
	switch {
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"), strings.HasSuffix(s, "ch"):
		return s + "es"
	case strings.HasSuffix(s, "y") && len(s) > 1 && !isVowel(rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	default:
		return s + "s"
	}
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
