package registry

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protocodec/schema"
)

// parseWithImports uses DFS to parse protoFile and every file it imports, returning the
// files that were not loaded before. Import paths are resolved against ProtoDirectories.
func (r *Registry) parseWithImports(protoFile string) ([]*schema.ProtoFile, error) {
	result := make([]*schema.ProtoFile, 0)

	var dfs func(protoFile string) error
	dfs = func(protoFile string) error {
		if _, ok := r.parsedProtoBody[protoFile]; ok {
			return nil
		}
		protoFileEntity := &protoFileEntity{
			imports: make([]string, 0),
		}
		protoBytes, err := os.ReadFile(protoFile)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		parsedBody, err := protoparser.Parse(bytes.NewBuffer(protoBytes), protoparser.WithFilename(protoFile))
		if err != nil {
			return fmt.Errorf("parse %s: %w", protoFile, err)
		}
		// mark before descending so import cycles terminate
		r.parsedProtoBody[protoFile] = parsedBody
		r.log.Debug().Str("file", protoFile).Msg("parsed proto file")

		for _, body := range parsedBody.ProtoBody {
			switch b := body.(type) {
			case *protoparserparser.Import: // resolve relation for each imports
				importPath := strings.Trim(b.Location, `"'`)
				if isWellKnownImport(importPath) {
					continue
				}
				fullImportPath, err := r.findIfProtoExists(importPath)
				if err != nil {
					return fmt.Errorf("import %q from %s: %w", importPath, protoFile, err)
				}
				protoFileEntity.imports = append(protoFileEntity.imports, fullImportPath)
				if err = dfs(fullImportPath); err != nil {
					return err
				}
			}
		}
		r.protoEntities[protoFile] = protoFileEntity

		pf, err := convertProto(filepath.Base(protoFile), parsedBody)
		if err != nil {
			return fmt.Errorf("%s: %w", protoFile, err)
		}
		r.repo.ProtoFiles[protoFile] = pf
		result = append(result, pf)
		return nil
	}

	// run dfs on the input proto path
	protoPath, err := r.findIfProtoExists(protoFile)
	if err != nil {
		return nil, err
	}
	if err := dfs(protoPath); err != nil {
		return nil, err
	}
	return result, nil
}

// isWellKnownImport reports whether p names one of the built-in google.protobuf files
func isWellKnownImport(p string) bool {
	return strings.HasPrefix(p, "google/protobuf/") || strings.Contains(p, "/google/protobuf/")
}

func (r *Registry) findIfProtoExists(protoPath string) (string, error) {
	var (
		fullPath      string
		fullProtoPath string
		err           error
	)
	protoPath = strings.Trim(protoPath, `"`)
	if !strings.HasSuffix(protoPath, ".proto") {
		return "", fmt.Errorf("is not a .proto file %s", protoPath)
	}
	if _, err = os.Stat(protoPath); err == nil {
		return filepath.Clean(protoPath), nil
	}
	for _, dir := range r.ProtoDirectories {
		fullPath = path.Join(dir, protoPath)
		// Check if the path exists
		_, err = os.Stat(fullPath)
		if err == nil {
			fullProtoPath = fullPath
			break
		}
	}
	if fullProtoPath == "" {
		return "", fmt.Errorf("path does not exist: %s %w", protoPath, err)
	}
	return filepath.Clean(fullProtoPath), nil
}

// allEntities returns the set of every registered message and enum name
func (r *Registry) allEntities() map[string]struct{} {
	entities := make(map[string]struct{}, len(r.messages)+len(r.enums))
	for name := range r.messages {
		entities[name] = struct{}{}
	}
	for name := range r.enums {
		entities[name] = struct{}{}
	}
	return entities
}

// resolveMessageFields replaces the type names written in the .proto file with
// resolved field types. prefix is the scope names are looked up from, normally the
// message's own full name.
func (r *Registry) resolveMessageFields(message *schema.Message, prefix string) error {
	entities := r.allEntities()
	for _, field := range message.AllFields() {
		var err error
		switch field.Type.Kind {
		case schema.KindMessage, schema.KindEnum:
			var ft *schema.FieldType
			if ft, err = r.convertProtoType(typeRef(&field.Type), entities, prefix); err == nil {
				field.Type = *ft
			}
		case schema.KindMap:
			if field.Type.MapValue == nil || field.Type.MapKey == nil {
				return fmt.Errorf("map field %s.%s is missing its key or value type", message.Name, field.Name)
			}
			if !validMapKey(field.Type.MapKey) {
				return fmt.Errorf("map field %s.%s: invalid key type %s", message.Name, field.Name, field.Type.MapKey.PrimitiveType)
			}
			switch field.Type.MapValue.Kind {
			case schema.KindMessage, schema.KindEnum:
				var ft *schema.FieldType
				if ft, err = r.convertProtoType(typeRef(field.Type.MapValue), entities, prefix); err == nil {
					field.Type.MapValue = ft
				}
			}
		}
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", message.Name, field.Name, err)
		}
	}
	message.Reindex()
	return nil
}

func typeRef(t *schema.FieldType) string {
	if t.Kind == schema.KindEnum {
		return t.EnumType
	}
	return t.MessageType
}

func validMapKey(t *schema.FieldType) bool {
	if t.Kind != schema.KindPrimitive {
		return false
	}
	switch t.PrimitiveType {
	case schema.TypeDouble, schema.TypeFloat, schema.TypeBytes:
		return false
	}
	return true
}

// convertProtoType turns a type name as written in a .proto file into a field type.
// Scalars and wrappers are recognized by name; everything else must resolve to a
// registered message or enum.
func (r *Registry) convertProtoType(protoType string, allResolvedEntities map[string]struct{}, prefix string) (*schema.FieldType, error) {
	if schema.IsPrimitiveType(protoType) {
		return &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.PrimitiveType(protoType)}, nil
	}
	if wrapper, ok := schema.LookupWrapper(strings.TrimPrefix(protoType, ".")); ok {
		return &schema.FieldType{Kind: schema.KindWrapper, WrapperType: wrapper, MessageType: string(wrapper)}, nil
	}

	fullName, err := getReferencedType(protoType, prefix, allResolvedEntities)
	if err != nil {
		return nil, err
	}
	if _, ok := r.enums[fullName]; ok {
		return &schema.FieldType{Kind: schema.KindEnum, EnumType: fullName}, nil
	}
	return &schema.FieldType{Kind: schema.KindMessage, MessageType: fullName}, nil
}

/*
This helper function will return the entity for any referenced type ,
Be it top/file,nested or imported entities.If not found will return an error
Ref - https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
*/
func getReferencedType(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, error) {
	// check if fully qualifed prefixed by dot
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, allResolvedEntities)
	}
	// try resolving from inner entities up till the parent package
	if result, ok := splitNameAndCheck(typeName, prefix, allResolvedEntities); ok {
		return result, nil
	}
	//  check if the entity is referenced to other packages via packageName
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck splits the prefixName and tries to append the typeName and find the entity for resolution
// it also tries the find the entities defined using relative path
func splitNameAndCheck(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, bool) {
	var (
		prefixSplit []string
		entityName  string
	)
	prefixSplit = strings.Split(prefix, ".")

	for len(prefixSplit) > 0 && prefixSplit[0] != "" {
		result := strings.Join(prefixSplit, ".")
		entityName = result + "." + typeName
		if _, ok := allResolvedEntities[entityName]; ok {
			return entityName, true
		}
		// Omit the last element in each iteration as we go level above to outer entity
		prefixSplit = prefixSplit[:len(prefixSplit)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, allResolvedEntities map[string]struct{}) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve fully qualified type name: .%s", typeName)
}
