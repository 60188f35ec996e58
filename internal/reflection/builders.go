package reflection

import (
	"fmt"
	"reflect"
)

// DependencyResolver resolves a single dependency by bean name. For an
// optional dependency that does not exist it returns an invalid Value and a
// nil error; the parameter is then left at its zero value.
type DependencyResolver interface {
	Resolve(name string, typ reflect.Type, optional bool) (reflect.Value, error)
}

// ParameterError reports the constructor parameter that failed to resolve.
type ParameterError struct {
	Param ParameterInfo
	Cause error
}

func (e *ParameterError) Error() string {
	if e.Param.FieldName != "" {
		return fmt.Sprintf("parameter field %s (bean %q): %v", e.Param.FieldName, e.Param.BeanName, e.Cause)
	}
	return fmt.Sprintf("parameter %d (bean %q): %v", e.Param.Index, e.Param.BeanName, e.Cause)
}

func (e *ParameterError) Unwrap() error {
	return e.Cause
}

// Invoke calls a constructor with dependencies obtained from resolver and
// returns the produced pointer. A non-nil error returned by the constructor
// is passed through unwrapped.
func Invoke(info *ConstructorInfo, resolver DependencyResolver) (reflect.Value, error) {
	args, err := buildArguments(info, resolver)
	if err != nil {
		return reflect.Value{}, err
	}

	results := info.Value.Call(args)

	if info.HasErrorReturn {
		if errVal := results[1]; !errVal.IsNil() {
			return reflect.Value{}, errVal.Interface().(error)
		}
	}

	if results[0].IsNil() {
		return reflect.Value{}, fmt.Errorf("constructor %v returned nil", info.Type)
	}

	return results[0], nil
}

// buildArguments builds the argument list for a constructor.
func buildArguments(info *ConstructorInfo, resolver DependencyResolver) ([]reflect.Value, error) {
	if info.IsParamObject {
		paramValue, err := buildParamObject(info, resolver)
		if err != nil {
			return nil, err
		}
		return []reflect.Value{paramValue}, nil
	}

	args := make([]reflect.Value, len(info.Parameters))
	for i, param := range info.Parameters {
		value, err := resolveParameter(param, resolver)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}

	return args, nil
}

// buildParamObject creates and populates a parameter object.
func buildParamObject(info *ConstructorInfo, resolver DependencyResolver) (reflect.Value, error) {
	structValue := reflect.New(info.Type.In(0)).Elem()

	for _, param := range info.Parameters {
		value, err := resolveParameter(param, resolver)
		if err != nil {
			return reflect.Value{}, err
		}
		structValue.Field(param.Index).Set(value)
	}

	return structValue, nil
}

// resolveParameter resolves a single parameter, substituting the zero value
// for an absent optional dependency.
func resolveParameter(param ParameterInfo, resolver DependencyResolver) (reflect.Value, error) {
	value, err := resolver.Resolve(param.BeanName, param.Type, param.Optional)
	if err != nil {
		return reflect.Value{}, &ParameterError{Param: param, Cause: err}
	}

	if !value.IsValid() {
		return reflect.Zero(param.Type), nil
	}

	if !value.Type().AssignableTo(param.Type) {
		return reflect.Value{}, &ParameterError{
			Param: param,
			Cause: fmt.Errorf("bean of type %v is not assignable to %v", value.Type(), param.Type),
		}
	}

	return value, nil
}
