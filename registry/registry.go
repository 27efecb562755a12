package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protocodec/schema"
)

// Registry allows us to store the schema of the protobuf messages. We look this up when we need to parse or marshal a message.
// It is safe for concurrent lookups once loading has finished; loads are serialized.
type Registry struct {
	// ProtoDirectories are searched, in order, for files named by import statements.
	ProtoDirectories []string

	mu              sync.RWMutex
	repo            *schema.ProtoRepo
	parsedProtoBody map[string]*parser.Proto
	protoEntities   map[string]*protoFileEntity
	messages        map[string]*schema.Message // fully qualified name -> message
	enums           map[string]*schema.Enum    // fully qualified name -> enum
	services        map[string]*schema.Service // fully qualified name -> service
	log             zerolog.Logger
}

// protoFileEntity records the resolved imports of a parsed file
type protoFileEntity struct {
	imports []string
}

// Option configures a Registry
type Option func(*Registry)

// WithImportPaths adds directories searched for imported files
func WithImportPaths(dirs ...string) Option {
	return func(r *Registry) {
		r.ProtoDirectories = append(r.ProtoDirectories, dirs...)
	}
}

// WithLogger sets the logger used for schema loading diagnostics
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// NewRegistry creates an empty registry. The google.protobuf well-known types are
// always present, so imports of google/protobuf/*.proto need no files on disk.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		repo:            &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)},
		parsedProtoBody: make(map[string]*parser.Proto),
		protoEntities:   make(map[string]*protoFileEntity),
		messages:        make(map[string]*schema.Message),
		enums:           make(map[string]*schema.Enum),
		services:        make(map[string]*schema.Service),
		log:             zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, msg := range wellKnownMessages() {
		r.messages[msg.FullName] = msg
	}
	return r
}

// LoadSchema loads a single .proto file, or recursively every .proto file under a
// directory. A directory is also added to the import search path.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		return r.LoadFile(protoPath)
	}

	r.mu.Lock()
	r.addImportPath(protoPath)
	r.mu.Unlock()

	var files []string
	err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Skip directories, non-proto files and local copies of the built-in types
		if d.IsDir() || !strings.HasSuffix(path, ".proto") || isWellKnownImport(filepath.ToSlash(path)) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var loaded []*schema.ProtoFile
	for _, path := range files {
		pfs, err := r.parseWithImports(path)
		if err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", path, err)
		}
		loaded = append(loaded, pfs...)
	}
	return r.buildSymbolTable(loaded)
}

// LoadFile loads one .proto file and, transitively, everything it imports. The file
// is looked up directly first and then relative to each import directory.
func (r *Registry) LoadFile(protoPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(protoPath); err == nil {
		r.addImportPath(filepath.Dir(protoPath))
	}
	loaded, err := r.parseWithImports(protoPath)
	if err != nil {
		return fmt.Errorf("failed to load proto file: %w", err)
	}
	return r.buildSymbolTable(loaded)
}

// LoadRepo registers already-built schema files, e.g. ones assembled in code
func (r *Registry) LoadRepo(repo *schema.ProtoRepo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(repo.ProtoFiles))
	for name := range repo.ProtoFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make([]*schema.ProtoFile, 0, len(names))
	for _, name := range names {
		r.repo.ProtoFiles[name] = repo.ProtoFiles[name]
		files = append(files, repo.ProtoFiles[name])
	}
	return r.buildSymbolTable(files)
}

// RegisterMessage adds a message built in code. Its FullName (or Name when FullName is
// empty) determines the scope its field types are resolved in.
func (r *Registry) RegisterMessage(msg *schema.Message) error {
	pkg := ""
	if msg.FullName != "" {
		if i := strings.LastIndex(msg.FullName, "."); i >= 0 {
			pkg = msg.FullName[:i]
		}
		msg.Name = msg.FullName[strings.LastIndex(msg.FullName, ".")+1:]
	}
	syntax := msg.Syntax
	if syntax == "" {
		syntax = schema.SyntaxProto3
	}
	return r.LoadRepo(&schema.ProtoRepo{ProtoFiles: map[string]*schema.ProtoFile{
		"<registered " + r.getFullName(pkg, msg.Name) + ">": {
			Name:     msg.Name,
			Package:  pkg,
			Syntax:   syntax,
			Messages: []*schema.Message{msg},
		},
	}})
}

// RegisterEnum adds an enum built in code
func (r *Registry) RegisterEnum(pkg string, enum *schema.Enum) error {
	return r.LoadRepo(&schema.ProtoRepo{ProtoFiles: map[string]*schema.ProtoFile{
		"<registered " + r.getFullName(pkg, enum.Name) + ">": {
			Name:    enum.Name,
			Package: pkg,
			Syntax:  schema.SyntaxProto3,
			Enums:   []*schema.Enum{enum},
		},
	}})
}

func (r *Registry) addImportPath(dir string) {
	for _, d := range r.ProtoDirectories {
		if filepath.Clean(d) == filepath.Clean(dir) {
			return
		}
	}
	r.ProtoDirectories = append(r.ProtoDirectories, dir)
}

// buildSymbolTable builds the symbol table from newly loaded files
func (r *Registry) buildSymbolTable(files []*schema.ProtoFile) error {
	// Pass 1: Register all message and enum names
	for _, protoFile := range files {
		if err := r.registerNames(protoFile); err != nil {
			return err
		}
	}

	// Pass 2: Resolve field type references now that every name is known
	for _, protoFile := range files {
		if err := r.buildDefinitions(protoFile); err != nil {
			return err
		}
	}

	// Pass 3: Resolve service method types
	for _, protoFile := range files {
		if err := r.buildServices(protoFile); err != nil {
			return err
		}
	}

	r.log.Debug().
		Int("files", len(files)).
		Int("messages", len(r.messages)).
		Int("enums", len(r.enums)).
		Msg("schema symbol table built")
	return nil
}

// registerNames registers all message, enum, and service names
func (r *Registry) registerNames(protoFile *schema.ProtoFile) error {
	pkg := protoFile.Package
	// Register messages
	for _, msg := range protoFile.Messages {
		fullName := r.getFullName(pkg, msg.Name)
		if err := r.registerMessage(fullName, protoFile.Syntax, msg); err != nil {
			return err
		}

		// Register nested types
		if err := r.registerNestedNames(pkg, msg.Name, protoFile.Syntax, msg); err != nil {
			return err
		}
	}

	// Register enums
	for _, enum := range protoFile.Enums {
		fullName := r.getFullName(pkg, enum.Name)
		if err := r.registerEnum(fullName, enum); err != nil {
			return err
		}
	}

	// Register services
	for _, service := range protoFile.Services {
		fullName := r.getFullName(pkg, service.Name)
		r.services[fullName] = service
	}

	return nil
}

// registerNestedNames registers nested message and enum names
func (r *Registry) registerNestedNames(pkg, parentName string, syntax schema.Syntax, msg *schema.Message) error {
	// Register nested messages
	for _, nestedMsg := range msg.NestedTypes {
		nestedFullName := r.getFullName(pkg, parentName+"."+nestedMsg.Name)
		if err := r.registerMessage(nestedFullName, syntax, nestedMsg); err != nil {
			return err
		}

		// Recursively register nested types
		if err := r.registerNestedNames(pkg, parentName+"."+nestedMsg.Name, syntax, nestedMsg); err != nil {
			return err
		}
	}

	// Register nested enums
	for _, nestedEnum := range msg.NestedEnums {
		nestedFullName := r.getFullName(pkg, parentName+"."+nestedEnum.Name)
		if err := r.registerEnum(nestedFullName, nestedEnum); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) registerMessage(fullName string, syntax schema.Syntax, msg *schema.Message) error {
	if existing, ok := r.messages[fullName]; ok && existing != msg {
		return fmt.Errorf("duplicate message definition: %s", fullName)
	}
	if _, ok := r.enums[fullName]; ok {
		return fmt.Errorf("message %s collides with an enum of the same name", fullName)
	}
	msg.FullName = fullName
	if msg.Syntax == "" {
		msg.Syntax = syntax
	}
	r.messages[fullName] = msg
	return nil
}

func (r *Registry) registerEnum(fullName string, enum *schema.Enum) error {
	if existing, ok := r.enums[fullName]; ok && existing != enum {
		return fmt.Errorf("duplicate enum definition: %s", fullName)
	}
	if _, ok := r.messages[fullName]; ok {
		return fmt.Errorf("enum %s collides with a message of the same name", fullName)
	}
	enum.FullName = fullName
	r.enums[fullName] = enum
	return nil
}

// buildDefinitions resolves every field type reference in the file's messages
func (r *Registry) buildDefinitions(protoFile *schema.ProtoFile) error {
	for _, msg := range protoFile.Messages {
		if err := r.resolveNested(msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) resolveNested(msg *schema.Message) error {
	if err := r.resolveMessageFields(msg, msg.FullName); err != nil {
		return err
	}
	for _, nested := range msg.NestedTypes {
		if err := r.resolveNested(nested); err != nil {
			return err
		}
	}
	return nil
}

// buildServices resolves request and response types of service methods
func (r *Registry) buildServices(protoFile *schema.ProtoFile) error {
	entities := r.allEntities()
	for _, service := range protoFile.Services {
		for _, m := range service.Methods {
			in, err := getReferencedType(m.InputType, protoFile.Package, entities)
			if err != nil {
				return fmt.Errorf("service %s method %s: %w", service.Name, m.Name, err)
			}
			out, err := getReferencedType(m.OutputType, protoFile.Package, entities)
			if err != nil {
				return fmt.Errorf("service %s method %s: %w", service.Name, m.Name, err)
			}
			m.InputType, m.OutputType = in, out
		}
	}
	return nil
}

func (r *Registry) getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// GetMessage retrieves a message definition by name. Fully qualified names (with or
// without a leading dot) match exactly; a short name matches when exactly one
// registered message ends with it.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, err := lookup(r.messages, name)
	if err != nil {
		return nil, fmt.Errorf("message not found: %s: %w", name, err)
	}
	return msg, nil
}

// GetEnum retrieves an enum definition by name, with the same matching as GetMessage
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enum, err := lookup(r.enums, name)
	if err != nil {
		return nil, fmt.Errorf("enum not found: %s: %w", name, err)
	}
	return enum, nil
}

// GetService retrieves a service definition by name
func (r *Registry) GetService(name string) (*schema.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	service, err := lookup(r.services, name)
	if err != nil {
		return nil, fmt.Errorf("service not found: %s: %w", name, err)
	}
	return service, nil
}

// ListMessages returns all registered message names, sorted
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names, sorted
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enums)
}

// ListServices returns all registered service names, sorted
func (r *Registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.services)
}

// Files returns the loaded files keyed by path
func (r *Registry) Files() map[string]*schema.ProtoFile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*schema.ProtoFile, len(r.repo.ProtoFiles))
	for k, v := range r.repo.ProtoFiles {
		out[k] = v
	}
	return out
}

func lookup[T any](table map[string]T, name string) (T, error) {
	name = strings.TrimPrefix(name, ".")
	if v, ok := table[name]; ok {
		return v, nil
	}

	// Try without package prefix
	var (
		found   T
		matches []string
	)
	for fullName, v := range table {
		if strings.HasSuffix(fullName, "."+name) {
			found = v
			matches = append(matches, fullName)
		}
	}
	switch len(matches) {
	case 0:
		var zero T
		return zero, fmt.Errorf("no definition")
	case 1:
		return found, nil
	default:
		sort.Strings(matches)
		var zero T
		return zero, fmt.Errorf("ambiguous, candidates %s", strings.Join(matches, ", "))
	}
}

func sortedKeys[T any](table map[string]T) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
