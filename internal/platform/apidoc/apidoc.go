// Package apidoc holds the huma configuration shared by the server and the
// handler tests.
package apidoc

import (
	"path"
	"reflect"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

const (
	modulePath   = "github.com/harvestbridge/harvest-bridge/"
	schemaPrefix = "#/components/schemas/"
)

// SchemaNamer prefixes the names of this module's types with their package,
// so posts.Post and schema.Post register as PostsPost and SchemaPost instead
// of colliding. Types from other modules keep huma's default name.
func SchemaNamer(t reflect.Type, hint string) string {
	name := huma.DefaultSchemaNamer(t, hint)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || !strings.HasPrefix(t.PkgPath(), modulePath) {
		return name
	}
	pkg := path.Base(t.PkgPath())
	return strings.ToUpper(pkg[:1]) + pkg[1:] + name
}

// Config is huma.DefaultConfig with SchemaNamer installed.
func Config(title, version string) huma.Config {
	cfg := huma.DefaultConfig(title, version)
	cfg.Components.Schemas = huma.NewMapRegistry(schemaPrefix, SchemaNamer)
	return cfg
}
