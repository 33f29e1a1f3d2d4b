// Package registry implements the engine's plugin registry (spec §3,
// §4.E): an ordered, bounded, dense-id array of plugin.Wrapper instances
// with unique-name disambiguation and the add/remove/replace/clone/swap/
// rename operation set. Every mutating operation takes the registry's
// lock; the RT thread never calls into this package directly - it only
// ever holds a Wrapper reference handed to it by the engine's rack/
// patchbay processor, refreshed whenever the registry's shape changes.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/plugin"
)

// Loader constructs a Wrapper for one plugin format from a file/label
// pair; the registry calls whichever Loader a caller names to Add.
type Loader func(uniqueID, filename, label string) (plugin.Wrapper, error)

// Entry is one occupied registry slot.
type Entry struct {
	ID            uint32
	Name          string
	Enabled       bool  // control-thread intent (spec §3)
	Active        bool  // last observed by the RT thread
	CtrlInChannel int8  // -1..=15, -1 = omni (spec §3)
	Wrapper       plugin.Wrapper
}

// Callback is invoked on registry mutations the engine's non-RT idle
// step relays to subscribers (AddedPlugin, RemovedPlugin, spec §4.E).
type Callback func(kind string, id uint32)

// Registry is the engine's bounded plugin table.
type Registry struct {
	mu       sync.RWMutex
	maxCount uint32
	slots    map[uint32]*Entry
	order    []uint32 // dense ids in [0, len(order))
	replaceID *uint32  // pending id prepared by Replace, consumed by next Add
	callbacks []Callback
}

// New creates an empty registry bounded to maxCount plugins.
func New(maxCount uint32) *Registry {
	return &Registry{maxCount: maxCount, slots: make(map[uint32]*Entry)}
}

// OnChange subscribes a callback to registry mutations.
func (r *Registry) OnChange(cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

func (r *Registry) fire(kind string, id uint32) {
	for _, cb := range r.callbacks {
		cb(kind, id)
	}
}

// Count returns the number of occupied slots.
func (r *Registry) Count() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint32(len(r.order))
}

// Get returns the entry at id.
func (r *Registry) Get(id uint32) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.slots[id]
	if !ok {
		return nil, carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", id))
	}
	return e, nil
}

// Add loads a plugin via loader and installs it at the lowest free id, or
// at the id previously earmarked by Replace (spec §4.E).
func (r *Registry) Add(loader Loader, uniqueID, filename, label, requestedName string) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	replacing := r.replaceID != nil
	if uint32(len(r.order)) >= r.maxCount && !replacing {
		return 0, carlaerr.New(carlaerr.Capacity, "registry: at max_plugin_count")
	}

	// The earmark is consumed by this call whether it succeeds or fails
	// (spec §4.E: a failed add after replace leaves the earmark cleared
	// but the earmarked id still occupied by its previous plugin).
	var earmark uint32
	if replacing {
		earmark = *r.replaceID
		r.replaceID = nil
	}

	w, err := loader(uniqueID, filename, label)
	if err != nil {
		return 0, carlaerr.Wrap(carlaerr.PluginLoad, "registry: load failed", err)
	}

	name := r.disambiguateName(requestedName)
	if replacing {
		id := earmark
		r.slots[id] = &Entry{ID: id, Name: name, Enabled: true, CtrlInChannel: -1, Wrapper: w}
		r.fire("AddedPlugin", id)
		return id, nil
	}

	id := r.lowestFreeID()
	r.slots[id] = &Entry{ID: id, Name: name, Enabled: true, CtrlInChannel: -1, Wrapper: w}
	r.order = append(r.order, id)
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })

	r.fire("AddedPlugin", id)
	return id, nil
}

func (r *Registry) lowestFreeID() uint32 {
	used := make(map[uint32]bool, len(r.order))
	for _, id := range r.order {
		used[id] = true
	}
	for id := uint32(0); id < r.maxCount; id++ {
		if !used[id] {
			return id
		}
	}
	return uint32(len(r.order))
}

// disambiguateName appends " (2)", " (3)", ... until requested is unique.
func (r *Registry) disambiguateName(requested string) string {
	existing := make(map[string]bool, len(r.slots))
	for _, e := range r.slots {
		existing[e.Name] = true
	}
	if !existing[requested] {
		return requested
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", requested, n)
		if !existing[candidate] {
			return candidate
		}
	}
}

// SetEnabled records the control thread's enable/disable intent for id.
// The RT processor reads this each block to decide whether to include
// the plugin's ports in the graph (spec §3).
func (r *Registry) SetEnabled(id uint32, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.slots[id]
	if !ok {
		return carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", id))
	}
	e.Enabled = enabled
	return nil
}

// SetActive records the RT thread's last-observed activation state for
// id, so control-thread readers (e.g. Remove/Swap preconditions) can see
// it without crossing into the RT path themselves.
func (r *Registry) SetActive(id uint32, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.slots[id]
	if !ok {
		return carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", id))
	}
	e.Active = active
	return nil
}

// SetCtrlInChannel sets the MIDI channel (0-15, or -1 for omni) the rack
// processor filters incoming control/MIDI events by before handing them
// to the plugin at id (spec §3, §4.G).
func (r *Registry) SetCtrlInChannel(id uint32, channel int8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.slots[id]
	if !ok {
		return carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", id))
	}
	if channel < -1 || channel > 15 {
		return carlaerr.New(carlaerr.InvalidArgument, "registry: ctrl_in_channel must be -1..=15")
	}
	e.CtrlInChannel = channel
	return nil
}

// Remove deletes the plugin at id from the registry, then compacts ids
// above id downward so the id space stays dense (spec §4.E). It neither
// disables nor deactivates the wrapper itself. Callers on the
// control thread are expected to have already waited for the RT thread
// to observe Enabled=false before calling Remove.
func (r *Registry) Remove(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[id]; !ok {
		return carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", id))
	}
	delete(r.slots, id)
	r.compactAbove(id)
	r.fire("RemovedPlugin", id)
	return nil
}

// compactAbove shifts every id above removed down by one, preserving order.
func (r *Registry) compactAbove(removed uint32) {
	newOrder := make([]uint32, 0, len(r.order))
	for _, id := range r.order {
		if id == removed {
			continue
		}
		newOrder = append(newOrder, id)
	}
	sort.Slice(newOrder, func(i, j int) bool { return newOrder[i] < newOrder[j] })

	newSlots := make(map[uint32]*Entry, len(newOrder))
	finalOrder := make([]uint32, len(newOrder))
	for i, oldID := range newOrder {
		newID := uint32(i)
		e := r.slots[oldID]
		e.ID = newID
		newSlots[newID] = e
		finalOrder[i] = newID
	}
	r.slots = newSlots
	r.order = finalOrder
}

// RemoveAll removes every plugin, highest id first (spec §4.E).
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	ids := append([]uint32(nil), r.order...)
	r.mu.Unlock()

	desc := toInts(ids)
	sort.Sort(sort.Reverse(sort.IntSlice(desc)))
	for _, id := range desc {
		_ = r.Remove(uint32(id))
	}
}

func toInts(ids []uint32) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// Rename disambiguates newName against the registry and applies it,
// returning the name actually stored. Returns an error (and leaves the
// name unchanged) if id doesn't exist.
func (r *Registry) Rename(id uint32, newName string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.slots[id]
	if !ok {
		return "", carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", id))
	}
	name := r.disambiguateName(newName)
	e.Name = name
	return name, nil
}

// Clone adds a new plugin at the lowest free id carrying identical
// metadata, parameter values, program, and custom data to the plugin at
// id (spec §4.E). The source wrapper must implement plugin.Cloner.
func (r *Registry) Clone(id uint32) (uint32, error) {
	r.mu.Lock()
	src, ok := r.slots[id]
	if !ok {
		r.mu.Unlock()
		return 0, carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", id))
	}
	if uint32(len(r.order)) >= r.maxCount {
		r.mu.Unlock()
		return 0, carlaerr.New(carlaerr.Capacity, "registry: at max_plugin_count")
	}
	cloner, ok := src.Wrapper.(plugin.Cloner)
	name := src.Name
	r.mu.Unlock()

	if !ok {
		return 0, carlaerr.New(carlaerr.UnsupportedFormat, "registry: plugin does not support clone")
	}
	cloned := cloner.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	newID := r.lowestFreeID()
	newName := r.disambiguateName(name)
	r.slots[newID] = &Entry{ID: newID, Name: newName, Enabled: true, Wrapper: cloned}
	r.order = append(r.order, newID)
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })
	r.fire("AddedPlugin", newID)
	return newID, nil
}

// Replace earmarks id for reuse by the next Add call.
func (r *Registry) Replace(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[id]; !ok {
		return carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", id))
	}
	r.replaceID = &id
	return nil
}

// Swap exchanges the registry slots of a and b. Only legal when both ids
// exist and both plugins are disabled (spec §4.E).
func (r *Registry) Swap(a, b uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ea, ok := r.slots[a]
	if !ok {
		return carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", a))
	}
	eb, ok := r.slots[b]
	if !ok {
		return carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("registry: no plugin at id %d", b))
	}
	if ea.Enabled || eb.Enabled {
		return carlaerr.New(carlaerr.InvalidState, "registry: swap requires both plugins disabled")
	}
	ea.ID, eb.ID = eb.ID, ea.ID
	r.slots[a], r.slots[b] = eb, ea
	return nil
}

// OrderedEntries returns a snapshot of every occupied entry in ascending
// id order, for the rack/patchbay processors' per-block iteration (spec
// §4.G/§4.H). The returned slice is a copy; entries themselves are the
// live *Entry pointers so Active/Enabled reads stay current.
func (r *Registry) OrderedEntries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, len(r.order))
	for i, id := range r.order {
		out[i] = r.slots[id]
	}
	return out
}

// names returns every currently registered display name, for tests and diagnostics.
func (r *Registry) names() []string {
	out := make([]string, 0, len(r.slots))
	for _, e := range r.slots {
		out = append(out, e.Name)
	}
	return out
}

// HasDuplicateNames reports whether the unique-name invariant has been
// violated; used by property tests (spec §8).
func (r *Registry) HasDuplicateNames() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(r.slots))
	for _, name := range r.names() {
		if seen[name] {
			return true
		}
		seen[name] = true
	}
	return false
}

// IDsAreDense reports whether ids occupy exactly [0, Count()); used by
// property tests (spec §8).
func (r *Registry) IDsAreDense() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, id := range r.order {
		if id != uint32(i) {
			return false
		}
	}
	return true
}
