package tool

import (
	"fmt"

	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/prplworks/cpeforge/pkg/reflectx"
	"github.com/prplworks/cpeforge/pkg/stdx"
	"github.com/prplworks/cpeforge/types"

	"reflect"
)

// Definition describes a function an agent may invoke, together with the
// metadata the model needs to call it.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]string
	Function    any
}

var functionReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

// ToNameAndSchema derives the tool name and a JSON schema for its parameters
// from the wrapped function signature.
func (td Definition) ToNameAndSchema() (string, *jsonschema.Schema) {
	name := td.Name
	if name == "" {
		name = reflectx.FunctionName(td.Function)
	}

	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}

	typ := reflect.TypeOf(td.Function)
	if typ == nil || typ.Kind() != reflect.Func {
		return name, schema
	}

	var required []string
	idx := 0
	for i := 0; i < typ.NumIn(); i++ {
		paramType := typ.In(i)
		// ContextVars arguments are injected by the executor, the model
		// never supplies them.
		if reflectx.IsRefinedType[types.ContextVars](paramType) {
			continue
		}

		paramName := fmt.Sprintf("param%d", idx)
		if p, ok := td.Parameters[paramName]; ok {
			paramName = p
		}
		idx++

		propSchema := functionReflector.ReflectFromType(paramType)
		propSchema.Version = ""
		schema.Properties.Set(paramName, propSchema)
		required = append(required, paramName)
	}
	if len(required) > 0 {
		schema.Required = required
	}

	return name, schema
}

// Option configures a Definition under construction.
type Option = opts.Option[Definition]

// New builds a tool definition from a function and options. The name defaults
// to the function's symbol name when no Name option is given.
func New(f any, options ...Option) (Definition, error) {
	if !reflectx.IsFunction(f) {
		return Definition{}, fmt.Errorf("provided value is not a function")
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = reflectx.FunctionName(f)
	}

	def.Function = f
	return def, nil
}

// Must is New, panicking on error. Intended for package-level tool variables.
func Must(f any, options ...Option) Definition {
	return stdx.Must1(New(f, options...))
}

// Name sets the tool name exposed to the model.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the human-readable tool description.
var Description = opts.ForName[Definition, string]("Description")

// Parameters names the function's positional parameters, in order, so the
// generated schema uses meaningful keys instead of param0..paramN.
func Parameters(parameters ...string) Option {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = make(map[string]string, len(parameters))
		for i, p := range parameters {
			o.Parameters[fmt.Sprintf("param%d", i)] = p
		}
		return nil
	})
}
