package reflection

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"go.uber.org/dig"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Analyzer performs reflection-based analysis of bean types and their
// constructors. Results are cached per type and per constructor function.
type Analyzer struct {
	capabilities []reflect.Type

	mu    sync.RWMutex
	types map[reflect.Type]*TypeInfo
	ctors map[uintptr]*ConstructorInfo
}

// TypeInfo is the static descriptor of a bean struct type: its injection
// points and the optional capabilities its pointer type implements.
type TypeInfo struct {
	Type   reflect.Type // struct type
	Fields []FieldInfo

	capabilities map[reflect.Type]bool
}

// Has reports whether the bean's pointer type implements the capability
// interface iface. Only interfaces passed to New are recorded.
func (t *TypeInfo) Has(iface reflect.Type) bool {
	return t.capabilities[iface]
}

// FieldKind tells how a field is populated.
type FieldKind int

const (
	// InjectField is resolved as a bean reference.
	InjectField FieldKind = iota
	// ValueField is resolved through the value resolver.
	ValueField
)

// FieldInfo describes a struct field carrying an injection marker.
type FieldInfo struct {
	Name     string
	Index    int
	Type     reflect.Type
	Kind     FieldKind
	Exported bool

	// InjectField
	BeanName string
	Optional bool

	// ValueField
	Template   string
	Default    string
	HasDefault bool
}

// ConstructorInfo contains analyzed information about a constructor function.
type ConstructorInfo struct {
	Type           reflect.Type
	Value          reflect.Value
	Parameters     []ParameterInfo
	IsParamObject  bool // single parameter embedding dig.In
	Result         reflect.Type
	HasErrorReturn bool // returns error as last value
}

// ParameterInfo describes a constructor parameter or a field of a parameter
// object.
type ParameterInfo struct {
	Type      reflect.Type
	BeanName  string
	FieldName string // field name for parameter objects
	Index     int    // parameter index or field index
	Optional  bool
}

// New creates a new Analyzer. Each capability must be an interface type; the
// returned TypeInfo values record which of them a bean implements.
func New(capabilities ...reflect.Type) *Analyzer {
	return &Analyzer{
		capabilities: capabilities,
		types:        make(map[reflect.Type]*TypeInfo),
		ctors:        make(map[uintptr]*ConstructorInfo),
	}
}

// AnalyzeType analyzes a bean type. Pointer types are reduced to their
// element; anything that is not a struct is rejected.
func (a *Analyzer) AnalyzeType(t reflect.Type) (*TypeInfo, error) {
	if t == nil {
		return nil, fmt.Errorf("type cannot be nil")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("bean type must be a struct, got %v", t)
	}

	a.mu.RLock()
	if cached, ok := a.types[t]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &TypeInfo{
		Type:         t,
		capabilities: make(map[reflect.Type]bool, len(a.capabilities)),
	}

	ptr := reflect.PointerTo(t)
	for _, iface := range a.capabilities {
		if iface.Kind() == reflect.Interface && ptr.Implements(iface) {
			info.capabilities[iface] = true
		}
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		fi, ok, err := parseField(field, i)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), field.Name, err)
		}
		if ok {
			info.Fields = append(info.Fields, fi)
		}
	}

	a.mu.Lock()
	if cached, ok := a.types[t]; ok {
		info = cached
	} else {
		a.types[t] = info
	}
	a.mu.Unlock()

	return info, nil
}

// parseField reads the injection markers of a single field.
func parseField(field reflect.StructField, index int) (FieldInfo, bool, error) {
	injectName, hasInject := field.Tag.Lookup("inject")
	template, hasValue := field.Tag.Lookup("value")

	if hasInject && injectName == "-" {
		return FieldInfo{}, false, nil
	}
	if !hasInject && !hasValue {
		return FieldInfo{}, false, nil
	}
	if hasInject && hasValue {
		return FieldInfo{}, false, fmt.Errorf("inject and value tags are mutually exclusive")
	}

	fi := FieldInfo{
		Name:     field.Name,
		Index:    index,
		Type:     field.Type,
		Exported: field.IsExported(),
	}

	if hasValue {
		fi.Kind = ValueField
		fi.Template = template
		fi.Default, fi.HasDefault = field.Tag.Lookup("default")
		return fi, true, nil
	}

	fi.Kind = InjectField
	fi.BeanName = strings.TrimSpace(injectName)
	if fi.BeanName == "" {
		fi.BeanName = BeanName(field.Type)
	}
	if fi.BeanName == "" {
		return FieldInfo{}, false, fmt.Errorf("cannot derive a bean name from %v", field.Type)
	}
	fi.Optional = isOptional(field.Tag)

	return fi, true, nil
}

func isOptional(tag reflect.StructTag) bool {
	val, ok := tag.Lookup("optional")
	return ok && val == "true"
}

// AnalyzeConstructor analyzes a constructor producing *target. Accepted
// shapes are func(...) *T and func(...) (*T, error).
func (a *Analyzer) AnalyzeConstructor(constructor any, target reflect.Type) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val := reflect.ValueOf(constructor)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", constructor)
	}
	if val.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	// Closures built from the same literal share a code pointer, so the
	// cached analysis is copied and bound to this function value.
	key := val.Pointer()

	a.mu.RLock()
	if cached, ok := a.ctors[key]; ok && cached.Type == val.Type() {
		a.mu.RUnlock()
		bound := *cached
		bound.Value = val
		return &bound, a.checkResult(&bound, target)
	}
	a.mu.RUnlock()

	info := &ConstructorInfo{
		Type:  val.Type(),
		Value: val,
	}

	if err := a.analyzeReturns(info); err != nil {
		return nil, err
	}
	if err := a.checkResult(info, target); err != nil {
		return nil, err
	}
	if err := a.analyzeParameters(info); err != nil {
		return nil, fmt.Errorf("failed to analyze parameters: %w", err)
	}

	a.mu.Lock()
	a.ctors[key] = info
	a.mu.Unlock()

	return info, nil
}

func (a *Analyzer) checkResult(info *ConstructorInfo, target reflect.Type) error {
	if target == nil {
		return nil
	}
	for target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	if want := reflect.PointerTo(target); info.Result != want {
		return fmt.Errorf("constructor %v must return %v, got %v", info.Type, want, info.Result)
	}
	return nil
}

// analyzeReturns validates the result shape of a constructor.
func (a *Analyzer) analyzeReturns(info *ConstructorInfo) error {
	fnType := info.Type

	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errType {
			return fmt.Errorf("constructor %v: second result must be error", fnType)
		}
		info.HasErrorReturn = true
	default:
		return fmt.Errorf("constructor %v must return a pointer and an optional error", fnType)
	}

	info.Result = fnType.Out(0)
	if info.Result.Kind() != reflect.Pointer || info.Result.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("constructor %v must return a pointer to a struct", fnType)
	}

	return nil
}

// analyzeParameters analyzes function parameters or parameter object fields.
func (a *Analyzer) analyzeParameters(info *ConstructorInfo) error {
	fnType := info.Type

	if fnType.IsVariadic() {
		return fmt.Errorf("variadic constructors are not supported")
	}

	if fnType.NumIn() == 1 && dig.IsIn(fnType.In(0)) {
		info.IsParamObject = true
		return a.analyzeParamObject(info, fnType.In(0))
	}

	info.Parameters = make([]ParameterInfo, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		paramType := fnType.In(i)
		name := BeanName(paramType)
		if name == "" {
			return fmt.Errorf("parameter %d: cannot derive a bean name from %v", i, paramType)
		}
		info.Parameters[i] = ParameterInfo{
			Type:     paramType,
			BeanName: name,
			Index:    i,
		}
	}

	return nil
}

// analyzeParamObject analyzes the fields of a parameter object.
func (a *Analyzer) analyzeParamObject(info *ConstructorInfo, structType reflect.Type) error {
	if structType.Kind() != reflect.Struct {
		return fmt.Errorf("parameter object must be a struct, got %v", structType.Kind())
	}

	params := make([]ParameterInfo, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if !field.IsExported() || field.Anonymous {
			continue
		}
		if val, ok := field.Tag.Lookup("inject"); ok && val == "-" {
			continue
		}

		name := field.Tag.Get("name")
		if name == "" {
			name = BeanName(field.Type)
		}
		if name == "" {
			return fmt.Errorf("field %s: cannot derive a bean name from %v", field.Name, field.Type)
		}

		params = append(params, ParameterInfo{
			Type:      field.Type,
			BeanName:  name,
			FieldName: field.Name,
			Index:     i,
			Optional:  isOptional(field.Tag),
		})
	}

	info.Parameters = params
	return nil
}

// Method looks up an exported method on *t and validates its shape:
// exactly params arguments and either no result or a single error.
func (a *Analyzer) Method(t reflect.Type, name string, params int) (reflect.Method, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	m, ok := reflect.PointerTo(t).MethodByName(name)
	if !ok {
		return reflect.Method{}, fmt.Errorf("type %v has no method %s", t, name)
	}

	// The receiver is the first input.
	if got := m.Type.NumIn() - 1; got != params {
		return reflect.Method{}, fmt.Errorf("method %v.%s must take %d argument(s), takes %d", t, name, params, got)
	}

	switch m.Type.NumOut() {
	case 0:
	case 1:
		if m.Type.Out(0) != errType {
			return reflect.Method{}, fmt.Errorf("method %v.%s may only return error", t, name)
		}
	default:
		return reflect.Method{}, fmt.Errorf("method %v.%s may only return error", t, name)
	}

	return m, nil
}

// Clear clears the analysis cache.
func (a *Analyzer) Clear() {
	a.mu.Lock()
	a.types = make(map[reflect.Type]*TypeInfo)
	a.ctors = make(map[uintptr]*ConstructorInfo)
	a.mu.Unlock()
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.types) + len(a.ctors)
}

// BeanName derives the conventional bean name of a type: its name with the
// first letter lower-cased, pointers stripped. Unnamed types yield "".
func BeanName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" {
		return ""
	}
	// Instantiated generic types carry their arguments in the name.
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}

	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}
