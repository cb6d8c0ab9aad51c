// Package sink is a registry of upload backends for the remote bookshelf.
// Backend packages register themselves from init functions;
// import them for their side effects to make them available to Create.
package sink

import (
	"context"
	"fmt"

	"github.com/bobg/bookshelf"
)

// Factory creates a Sink from a configuration map.
type Factory func(context.Context, map[string]interface{}) (bookshelf.Sink, error)

var registry = make(map[string]Factory)

// Register makes a sink type available to Create under the given key.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates a Sink of the registered type key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (bookshelf.Sink, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// FromConfig creates a Sink from a configuration map
// whose "type" key names the registered type.
func FromConfig(ctx context.Context, conf map[string]interface{}) (bookshelf.Sink, error) {
	key, ok := conf["type"].(string)
	if !ok {
		return nil, fmt.Errorf(`sink config has no "type"`)
	}
	return Create(ctx, key, conf)
}
