package ioc

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/reflection"
)

// inject wires the fields and setters of instance, a pointer to the struct
// described by info.
//
// A nested call for a bean whose injection is already in progress in this
// resolution is skipped; the cycle is then closed by the early reference
// the outer call has already handed out.
func (c *Container) inject(res *resolution, def *Definition, info *reflection.TypeInfo, instance any) error {
	name := def.Name()

	if res.visiting[name] {
		c.logger.Debug("skipping nested injection", zap.String("bean", name))
		return nil
	}
	res.visiting[name] = true
	defer delete(res.visiting, name)

	target := reflect.ValueOf(instance).Elem()

	for _, f := range info.Fields {
		if err := c.injectField(res, name, target, f); err != nil {
			return err
		}
	}

	for _, setter := range def.setters {
		if err := c.injectSetter(res, name, info.Type, instance, setter); err != nil {
			return err
		}
	}

	return nil
}

func (c *Container) injectField(res *resolution, name string, target reflect.Value, f reflection.FieldInfo) error {
	point := "field " + f.Name

	var (
		v   reflect.Value
		dep string
		err error
	)

	switch f.Kind {
	case reflection.ValueField:
		dep = f.Template
		v, err = c.values.Resolve(f.Template, f.Default, f.HasDefault, f.Type)
	default:
		dep = f.BeanName
		v, err = c.resolveReference(res, f.BeanName, f.Type, f.Optional)
	}
	if err != nil {
		return InjectionError{Name: name, Point: point, Dependency: dep, Cause: err}
	}
	if !v.IsValid() {
		return nil
	}

	field := target.Field(f.Index)
	if !f.Exported {
		field = reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
	}
	field.Set(v)

	return nil
}

func (c *Container) injectSetter(res *resolution, name string, typ reflect.Type, instance any, setter string) error {
	point := "setter " + setter

	m, err := c.analyzer.Method(typ, setter, 1)
	if err != nil {
		return InjectionError{Name: name, Point: point, Cause: err}
	}

	paramType := m.Type.In(1)
	dep := setterBeanName(setter, paramType)

	v, err := c.resolveReference(res, dep, paramType, false)
	if err != nil {
		return InjectionError{Name: name, Point: point, Dependency: dep, Cause: err}
	}

	err = safeCall(func() error {
		out := m.Func.Call([]reflect.Value{reflect.ValueOf(instance), v})
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	})
	if err != nil {
		return InjectionError{Name: name, Point: point, Dependency: dep, Cause: err}
	}

	return nil
}

// setterBeanName derives the bean a setter receives: the name of its
// argument type, or the method name without "Set" for unnamed types.
func setterBeanName(method string, paramType reflect.Type) string {
	if name := reflection.BeanName(paramType); name != "" {
		return name
	}

	prop := strings.TrimPrefix(method, "Set")
	if prop == "" {
		return method
	}
	return strings.ToLower(prop[:1]) + prop[1:]
}

// resolveReference resolves a field or setter dependency. Early references
// are allowed, which is how cycles through fields and setters are broken.
// An optional dependency that is not registered yields an invalid Value.
func (c *Container) resolveReference(res *resolution, dep string, typ reflect.Type, optional bool) (reflect.Value, error) {
	if optional && !c.definitions.Contains(dep) {
		return reflect.Value{}, nil
	}

	bean, err := c.getBean(res, dep, true)
	if err != nil {
		return reflect.Value{}, err
	}

	v := reflect.ValueOf(bean)
	if !v.Type().AssignableTo(typ) {
		return reflect.Value{}, fmt.Errorf("bean of type %s is not assignable to %s", formatType(v.Type()), formatType(typ))
	}

	return v, nil
}
