package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sandevgo/aizen/internal/core"
)

// Registry maps qualified tool names to capability definitions. It is built
// once during startup and read-only afterwards, so concurrent readers need no
// coordination beyond the registration-phase mutex.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]core.ToolDefinition
	order []string
}

func New() *Registry {
	return &Registry{
		tools: make(map[string]core.ToolDefinition),
	}
}

func (r *Registry) Register(def core.ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s: handler must not be nil", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateTool, def.Name)
	}

	r.tools[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// RegisterToolset registers every declared operation of a capability under
// prefix.<operation>. Declarations are static; nothing is probed at runtime.
func (r *Registry) RegisterToolset(prefix string, ts core.Toolset) error {
	for _, def := range ts.Definitions() {
		def.Name = prefix + "." + def.Name
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Resolve(name string) (core.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	if !ok {
		return core.ToolDefinition{}, fmt.Errorf("%w: %s", core.ErrToolNotFound, name)
	}
	return def, nil
}

// DescriptorsFor builds the tool payload sent to the reasoning engine.
// The order of names is preserved so the engine sees a stable descriptor list
// every turn.
func (r *Registry) DescriptorsFor(names []string) ([]core.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]core.Tool, 0, len(names))
	for _, name := range names {
		def, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrToolNotFound, name)
		}
		descriptors = append(descriptors, core.Tool{
			Type: "function",
			Function: core.Function{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(def.Schema),
			},
		})
	}
	return descriptors, nil
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
