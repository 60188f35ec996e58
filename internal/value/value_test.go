package value_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc/internal/value"
)

type Port int

type Mode string

func props(m map[string]string) value.Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		target reflect.Type
		want   any
	}{
		{"int", "3306", reflect.TypeOf(0), 3306},
		{"int64", "1099511627776", reflect.TypeOf(int64(0)), int64(1) << 40},
		{"int8 negative", "-12", reflect.TypeOf(int8(0)), int8(-12)},
		{"uint16", "8080", reflect.TypeOf(uint16(0)), uint16(8080)},
		{"float64", "2.5", reflect.TypeOf(float64(0)), 2.5},
		{"float32", "0.25", reflect.TypeOf(float32(0)), float32(0.25)},
		{"bool true", "true", reflect.TypeOf(false), true},
		{"bool false", "false", reflect.TypeOf(false), false},
		{"bool upper case", "TRUE", reflect.TypeOf(false), true},
		{"bool title case", "True", reflect.TypeOf(false), true},
		{"bool mixed case false", "fAlSe", reflect.TypeOf(false), false},
		{"named int", "42", reflect.TypeOf(Port(0)), Port(42)},
		{"string", "localhost:3306", reflect.TypeOf(""), "localhost:3306"},
		{"named string", "debug", reflect.TypeOf(Mode("")), Mode("debug")},
		{"duration", "1m30s", reflect.TypeOf(time.Duration(0)), 90 * time.Second},
		{"any", "raw", reflect.TypeOf((*any)(nil)).Elem(), "raw"},
		{"surrounding spaces", " 7 ", reflect.TypeOf(0), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := value.Convert(tt.raw, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.target, got.Type())
			assert.Equal(t, tt.want, got.Interface())
		})
	}
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		target reflect.Type
	}{
		{"not a number", "abc", reflect.TypeOf(0)},
		{"fraction into int", "1.5", reflect.TypeOf(0)},
		{"overflow", "300", reflect.TypeOf(int8(0))},
		{"negative unsigned", "-1", reflect.TypeOf(uint(0))},
		{"not a bool", "yes", reflect.TypeOf(false)},
		{"empty bool", "", reflect.TypeOf(false)},
		{"bad duration", "soon", reflect.TypeOf(time.Duration(0))},
		{"unsupported", "x", reflect.TypeOf([]int{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := value.Convert(tt.raw, tt.target)

			var parseErr value.ParseError
			require.True(t, errors.As(err, &parseErr), "got %v", err)
			assert.Equal(t, tt.raw, parseErr.Input)
			assert.Equal(t, tt.target, parseErr.Target)
		})
	}
}

func TestResolver_Render(t *testing.T) {
	r := value.NewResolver(props(map[string]string{
		"db.host":  "localhost",
		"db.port":  "3306",
		"app-name": "orders",
	}))

	tests := []struct {
		template string
		want     string
	}{
		{"localhost:3306", "localhost:3306"},
		{"${db.port}", "3306"},
		{"${db.host}:${db.port}", "localhost:3306"},
		{"${app-name}-service", "orders-service"},
		{"$${db.port}", "${db.port}"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			got, err := r.Render(tt.template)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_RenderErrors(t *testing.T) {
	r := value.NewResolver(props(map[string]string{"db": "x", "db.port": "1"}))

	t.Run("missing property", func(t *testing.T) {
		_, err := r.Render("${cache.size}")
		assert.ErrorIs(t, err, value.ErrPropertyNotFound)
		assert.ErrorContains(t, err, "cache.size")
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := r.Render("${db.port")
		var parseErr value.ParseError
		assert.True(t, errors.As(err, &parseErr))
	})

	t.Run("index traversal", func(t *testing.T) {
		_, err := r.Render("${servers[0]}")
		var parseErr value.ParseError
		assert.True(t, errors.As(err, &parseErr))
	})

	t.Run("value and prefix", func(t *testing.T) {
		_, err := r.Render("${db} ${db.port}")
		assert.ErrorContains(t, err, "both a value and a prefix")
	})
}

func TestResolver_Resolve(t *testing.T) {
	r := value.NewResolver(props(map[string]string{"db.port": "5432"}))

	t.Run("property", func(t *testing.T) {
		v, err := r.Resolve("${db.port}", "", false, reflect.TypeOf(0))
		require.NoError(t, err)
		assert.Equal(t, 5432, v.Interface())
	})

	t.Run("default for missing property", func(t *testing.T) {
		v, err := r.Resolve("${db.pool}", "10", true, reflect.TypeOf(0))
		require.NoError(t, err)
		assert.Equal(t, 10, v.Interface())
	})

	t.Run("missing without default", func(t *testing.T) {
		_, err := r.Resolve("${db.pool}", "", false, reflect.TypeOf(0))
		assert.ErrorIs(t, err, value.ErrPropertyNotFound)
	})

	t.Run("default does not hide parse errors", func(t *testing.T) {
		_, err := r.Resolve("${db.port", "1", true, reflect.TypeOf(0))
		var parseErr value.ParseError
		assert.True(t, errors.As(err, &parseErr))
	})

	t.Run("nil lookup", func(t *testing.T) {
		v, err := value.NewResolver(nil).Resolve("true", "", false, reflect.TypeOf(false))
		require.NoError(t, err)
		assert.Equal(t, true, v.Interface())
	})
}
