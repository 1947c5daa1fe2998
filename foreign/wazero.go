package foreign

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	interop "github.com/lewing/interop-runtime"
	"github.com/lewing/interop-runtime/errors"
)

// WazeroConfig configures a WazeroModel.
type WazeroConfig struct {
	// Module is the core WebAssembly binary hosting the foreign code.
	Module []byte

	// Interfaces maps each interface type id to the ordered export
	// names that make up its dispatch table. Slot i of the interface
	// dispatches to the i-th export.
	Interfaces map[interop.TypeID][]string
}

// WazeroModel is a foreign object model whose objects live inside a
// wazero-instantiated WebAssembly module. Interface dispatch tables
// bind to the module's exported functions; a call target is an index
// into the model's function registry and is invoked with Call.
type WazeroModel struct {
	runtime  wazero.Runtime
	module   api.Module
	registry *Registry
	funcs    []api.Function
	bound    map[interop.TypeID][]interop.Target
}

// NewWazeroModel instantiates cfg.Module and binds every configured
// interface to its exports. The model owns the wazero runtime; Close
// releases it.
func NewWazeroModel(ctx context.Context, cfg WazeroConfig) (*WazeroModel, error) {
	if len(cfg.Module) == 0 {
		return nil, errors.InvalidInput(errors.PhaseHost, "no foreign module configured")
	}
	if len(cfg.Interfaces) == 0 {
		return nil, errors.InvalidInput(errors.PhaseHost, "no interfaces configured")
	}

	r := wazero.NewRuntime(ctx)
	mod, err := r.Instantiate(ctx, cfg.Module)
	if err != nil {
		r.Close(ctx)
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "instantiate foreign module")
	}

	m := &WazeroModel{
		runtime:  r,
		module:   mod,
		registry: NewRegistry(),
		bound:    make(map[interop.TypeID][]interop.Target, len(cfg.Interfaces)),
	}

	for iface, names := range cfg.Interfaces {
		targets := make([]interop.Target, len(names))
		for i, name := range names {
			fn := mod.ExportedFunction(name)
			if fn == nil {
				r.Close(ctx)
				return nil, errors.NotFound(errors.PhaseHost, "export", name)
			}
			m.funcs = append(m.funcs, fn)
			// 1-based so Target 0 keeps meaning "no target".
			targets[i] = interop.Target(len(m.funcs))
		}
		m.bound[iface] = targets
	}

	Logger().Debug("foreign module bound",
		zap.Int("interfaces", len(m.bound)),
		zap.Int("functions", len(m.funcs)))
	return m, nil
}

// NewObject registers a foreign object exposing the given interfaces
// and returns its identity.
func (m *WazeroModel) NewObject(ifaces ...interop.TypeID) (interop.ForeignObject, error) {
	tables := make(map[interop.TypeID][]interop.Target, len(ifaces))
	for _, iface := range ifaces {
		targets, ok := m.bound[iface]
		if !ok {
			return 0, errors.NotFound(errors.PhaseHost, "interface", fmt.Sprintf("%d", iface))
		}
		tables[iface] = targets
	}
	return m.registry.Register(tables)
}

// ResolveInterface implements interop.Resolver.
func (m *WazeroModel) ResolveInterface(obj interop.ForeignObject, iface interop.TypeID) (interop.Resolved, error) {
	return m.registry.ResolveInterface(obj, iface)
}

// AddRef implements Model.
func (m *WazeroModel) AddRef(p interop.Ptr) uint32 { return m.registry.AddRef(p) }

// Release implements Model.
func (m *WazeroModel) Release(p interop.Ptr) uint32 { return m.registry.Release(p) }

// Drop implements Model.
func (m *WazeroModel) Drop(obj interop.ForeignObject) error { return m.registry.Drop(obj) }

// Call invokes the foreign function behind a resolved call target.
func (m *WazeroModel) Call(ctx context.Context, t interop.Target, params ...uint64) ([]uint64, error) {
	idx := uint64(t)
	if idx == 0 || idx > uint64(len(m.funcs)) {
		return nil, errors.InvalidInput(errors.PhaseHost, "call target does not name a bound function")
	}
	return m.funcs[idx-1].Call(ctx, params...)
}

// Close releases the wazero runtime and everything instantiated in it.
func (m *WazeroModel) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

var _ Model = (*WazeroModel)(nil)
var _ Model = (*Registry)(nil)
