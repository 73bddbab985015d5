// Package registry manages a set of named pipes built from a JSON
// configuration document, the way a HAL config file describes a set of
// named devices. It does not change pipe semantics in any way — it is
// bookkeeping over otherwise independent *pipe.Bidirectional values, keyed
// by name instead of threaded through the program by hand.
package registry

import (
	"encoding/json"
	"sync"

	"github.com/rharrison/pipe"
	"github.com/rharrison/pipe/errcode"
)

// PipeSpec describes one named pipe to create.
type PipeSpec struct {
	Name     string `json:"name"`
	ElemSize int    `json:"elem_size"`
	MinCap   int    `json:"min_cap,omitempty"` // 0 leaves the default floor
}

// Config is the JSON document describing a set of named pipes, e.g.
//
//	{"pipes": [{"name": "frames", "elem_size": 256}]}
type Config struct {
	Pipes []PipeSpec `json:"pipes"`
}

// ParseConfig decodes a JSON-encoded Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type entry struct {
	pipe     *pipe.Bidirectional
	elemSize int
}

// Registry is a mutex-guarded set of named pipes.
type Registry struct {
	mu    sync.RWMutex
	pipes map[string]entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{pipes: map[string]entry{}}
}

// Create allocates a new pipe under name with the given record size,
// failing if the name is already taken or elemSize is invalid.
func (r *Registry) Create(name string, elemSize int) (*pipe.Bidirectional, error) {
	b, err := pipe.New(elemSize)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pipes[name]; exists {
		return nil, &errcode.E{C: errcode.Error, Op: "registry.Create", Msg: "duplicate pipe name: " + name}
	}
	r.pipes[name] = entry{pipe: b, elemSize: elemSize}
	return b, nil
}

// Apply creates one pipe per PipeSpec in cfg, raising its minimum capacity
// via Reserve when MinCap is set. It stops at the first failing spec,
// leaving any pipes already created in place.
func (r *Registry) Apply(cfg Config) error {
	for _, spec := range cfg.Pipes {
		b, err := r.Create(spec.Name, spec.ElemSize)
		if err != nil {
			return err
		}
		if spec.MinCap > 0 {
			b.Reserve(spec.MinCap)
		}
	}
	return nil
}

// Get returns the named pipe and whether it exists.
func (r *Registry) Get(name string) (*pipe.Bidirectional, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.pipes[name]
	return e.pipe, ok
}

// Close drops a pipe from the registry, freeing its bidirectional handle.
// Any producer/consumer handles already minted from it remain valid until
// independently freed — this only releases the registry's own share.
func (r *Registry) Close(name string) {
	r.mu.Lock()
	e, ok := r.pipes[name]
	if ok {
		delete(r.pipes, name)
	}
	r.mu.Unlock()
	if ok {
		e.pipe.Free()
	}
}

// Info is a structural snapshot of one registered pipe: its name and fixed
// record size. It reports configuration, not live occupancy — the pipe
// package deliberately has no depth accessor, so there is nothing live to
// report here either.
type Info struct {
	Name     string
	ElemSize int
}

// Snapshot returns Info for every currently registered pipe.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.pipes))
	for name, e := range r.pipes {
		out = append(out, Info{Name: name, ElemSize: e.elemSize})
	}
	return out
}
