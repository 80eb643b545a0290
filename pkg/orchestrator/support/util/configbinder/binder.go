// Package configbinder binds loosely typed option maps onto concrete option
// structs. Storage backends and other pluggable adapters receive their
// settings as map[string]string from configuration; this package converts
// them with weak typing so numeric and boolean options can be written as
// plain strings.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindOptions binds a map of string options onto the target struct. The
// target should use `yaml` tags; weakly typed input allows strings to be
// converted to numbers and booleans.
func BindOptions(options map[string]string, target interface{}) error {
	if len(options) == 0 {
		return nil
	}

	intermediate := make(map[string]interface{}, len(options))
	for k, v := range options {
		intermediate[k] = v
	}

	decoderConfig := &mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "yaml",
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(intermediate); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind options to struct %s: %w", targetType.Name(), err)
	}
	return nil
}
