package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/vk/gridcomp/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeParams implements config.Converter.
func (c *Converter) DecodeParams(ctx context.Context, params map[string]cty.Value, target any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode target must be a pointer to a struct, got %T", target)
	}
	goVal := ptr.Elem()
	goType := goVal.Type()
	logger := ctxlog.FromContext(ctx).With("go_type", goType.String())

	known := make(map[string]bool, goType.NumField())
	for i := 0; i < goType.NumField(); i++ {
		fieldDef := goType.Field(i)
		tagName := strings.Split(fieldDef.Tag.Get("cty"), ",")[0]
		if !fieldDef.IsExported() || tagName == "" || tagName == "-" {
			continue
		}
		known[tagName] = true

		val, ok := params[tagName]
		if !ok || val.IsNull() {
			logger.Debug("Parameter not set, keeping default.", "param", tagName)
			continue
		}
		if !val.IsWhollyKnown() {
			return fmt.Errorf("parameter '%s' is not known", tagName)
		}
		ty, err := gocty.ImpliedType(goVal.Field(i).Interface())
		if err != nil {
			return fmt.Errorf("field %s: %w", fieldDef.Name, err)
		}
		val, err = convert.Convert(val, ty)
		if err != nil {
			return fmt.Errorf("in parameter '%s': %w", tagName, err)
		}
		if err := gocty.FromCtyValue(val, goVal.Field(i).Addr().Interface()); err != nil {
			return fmt.Errorf("in parameter '%s': %w", tagName, err)
		}
	}

	var unknown []string
	for name := range params {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("unsupported parameters: %s", strings.Join(unknown, ", "))
	}
	return nil
}
