package ioc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/ioc/internal/value"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that are wrapped in typed errors when returned.

var (
	// Lookup errors.
	ErrBeanNotFound     = errors.New("bean not found")
	ErrPropertyNotFound = value.ErrPropertyNotFound

	// Registration errors.
	ErrNilDefinition    = errors.New("definition cannot be nil")
	ErrEmptyName        = errors.New("bean name cannot be empty")
	ErrInvalidProcessor = errors.New("processor implements none of PreInitProcessor, PostInitProcessor or EarlyReferenceProcessor")

	// Lifecycle errors.
	ErrContainerClosed       = errors.New("container has been closed")
	ErrContainerNotInContext = errors.New("no container in context")
)

var (
	_ error = ScopeError{}
	_ error = NotFoundError{}
	_ error = CreationError{}
	_ error = InjectionError{}
	_ error = LifecycleError{}
	_ error = CircularConstructorDependencyError{}
	_ error = EarlyReferenceMismatchError{}
	_ error = PanicError{}
	_ error = DisposalError{}
	_ error = ParseError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// ParseError reports that a configured value could not be converted to the
// type of the field it is injected into.
type ParseError = value.ParseError

// ScopeError indicates an invalid scope value.
type ScopeError struct {
	Value any
}

func (e ScopeError) Error() string {
	return fmt.Sprintf("invalid bean scope: %v", e.Value)
}

// NotFoundError indicates that no definition is registered under Name.
type NotFoundError struct {
	Name       string
	RequiredBy string   // bean declaring the dependency, empty for direct lookups
	Available  []string // registered names (optional, for suggestions)
}

func (e NotFoundError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("no bean named %q", e.Name))
	if e.RequiredBy != "" {
		b.WriteString(fmt.Sprintf(" (required by %q)", e.RequiredBy))
	}

	if similar := findSimilarNames(e.Name, e.Available); len(similar) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, name := range similar {
			b.WriteString(fmt.Sprintf("  • %s\n", name))
		}
	}

	return b.String()
}

func (e NotFoundError) Unwrap() error {
	return ErrBeanNotFound
}

// findSimilarNames finds names that match case-insensitively or contain one
// another.
func findSimilarNames(target string, available []string) []string {
	if target == "" || len(available) == 0 {
		return nil
	}

	lower := strings.ToLower(target)

	var similar []string
	for _, name := range available {
		if name == target {
			continue
		}

		n := strings.ToLower(name)
		if n == lower || strings.Contains(n, lower) || strings.Contains(lower, n) {
			similar = append(similar, name)
		}

		// Limit suggestions
		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

// CreationError indicates that a bean could not be constructed.
type CreationError struct {
	Name  string
	Type  reflect.Type
	Cause error
}

func (e CreationError) Error() string {
	return fmt.Sprintf("failed to create bean %q of type %s: %v", e.Name, formatType(e.Type), e.Cause)
}

func (e CreationError) Unwrap() error {
	return e.Cause
}

// InjectionError indicates that a field or setter dependency could not be
// resolved or set.
type InjectionError struct {
	Name       string // bean being injected
	Point      string // "field Host", "setter SetDao"
	Dependency string // bean name or value template
	Cause      error
}

func (e InjectionError) Error() string {
	return fmt.Sprintf("failed to inject %s of bean %q from %q: %v", e.Point, e.Name, e.Dependency, e.Cause)
}

func (e InjectionError) Unwrap() error {
	return e.Cause
}

// LifecycleError indicates that an aware callback, processor, init hook or
// destroy hook failed.
type LifecycleError struct {
	Name  string
	Phase string // "aware", "before-init", "init", "after-init", "early-reference", "destroy"
	Cause error
}

func (e LifecycleError) Error() string {
	return fmt.Sprintf("%s phase of bean %q failed: %v", e.Phase, e.Name, e.Cause)
}

func (e LifecycleError) Unwrap() error {
	return e.Cause
}

// CircularConstructorDependencyError indicates a cycle that reaches a bean
// while it is still being constructed. Constructor arguments are never
// served early references, so such a cycle cannot be broken.
type CircularConstructorDependencyError struct {
	Path []string
}

func (e CircularConstructorDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular constructor dependency detected:\n\n")

	for _, name := range e.Path {
		b.WriteString(fmt.Sprintf("    %s\n", name))
		b.WriteString("      ↓\n")
	}
	if len(e.Path) > 0 {
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Path[0]))
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Move one of the dependencies from the constructor to an injected field or setter\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

// EarlyReferenceMismatchError indicates that a bean was handed out early to
// break a cycle and a post-init processor then replaced it, leaving the
// early holders with a different object than the container caches.
type EarlyReferenceMismatchError struct {
	Name  string
	Early reflect.Type
	Final reflect.Type
}

func (e EarlyReferenceMismatchError) Error() string {
	return fmt.Sprintf("bean %q was injected into other beans as %s before a post-init processor replaced it with %s",
		e.Name, formatType(e.Early), formatType(e.Final))
}

// PanicError captures a panic raised by user code during creation,
// injection or a lifecycle step.
type PanicError struct {
	Value any
	Stack []byte
}

func (e PanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("panic: %v", e.Value))

	if len(e.Stack) > 0 {
		b.WriteString("\n\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// Unwrap returns the panic value when it is an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// DisposalError aggregates destroy hook failures reported by Close.
type DisposalError struct {
	Errors []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("container disposal failed: %v", e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("container disposal failed with %d errors:", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

// Unwrap returns the first failure.
func (e DisposalError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		// Format pointers as *Type instead of *package.Type
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
