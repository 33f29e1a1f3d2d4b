package param

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// ChangeListener is called when a parameter's value changes.
type ChangeListener func(paramID uint32, oldValue, newValue float64)

// Manager is a plugin's thread-safe parameter table: one per Client,
// indexed both by ID (spec §4.D's param_value(i) etc. address by index,
// so paramOrder preserves registration order as the index space) and by
// listener callbacks for UI/automation feedback.
type Manager struct {
	mutex         sync.RWMutex
	params        map[uint32]*Parameter
	paramOrder    []uint32
	listeners     [MaxListeners]ChangeListener
	listenerCount int32
}

// NewManager creates an empty parameter manager.
func NewManager() *Manager {
	return &Manager{params: make(map[uint32]*Parameter)}
}

// Register adds a new parameter, initialised to its range default.
func (m *Manager) Register(info Info) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.params[info.ID]; exists {
		return ErrParameterExists
	}
	m.params[info.ID] = NewParameter(info)
	m.paramOrder = append(m.paramOrder, info.ID)
	return nil
}

// RegisterAll registers multiple parameters, stopping at the first error.
func (m *Manager) RegisterAll(infos ...Info) error {
	for _, info := range infos {
		if err := m.Register(info); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of registered parameters.
func (m *Manager) Count() uint32 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return uint32(len(m.params))
}

// GetInfo returns a parameter's static description by ID.
func (m *Manager) GetInfo(paramID uint32) (Info, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if p, ok := m.params[paramID]; ok {
		return p.Info, nil
	}
	return Info{}, ErrInvalidParam
}

// GetInfoByIndex returns a parameter's static description by registration index.
func (m *Manager) GetInfoByIndex(index uint32) (Info, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if int(index) >= len(m.paramOrder) {
		return Info{}, ErrInvalidParam
	}
	return m.params[m.paramOrder[index]].Info, nil
}

// Get returns a parameter's current value, or 0 if paramID is unknown.
func (m *Manager) Get(paramID uint32) float64 {
	m.mutex.RLock()
	p, exists := m.params[paramID]
	m.mutex.RUnlock()
	if !exists {
		return 0
	}
	return p.Value()
}

// Set clamps and stores a new value, notifying listeners if it actually changed.
func (m *Manager) Set(paramID uint32, value float64) error {
	m.mutex.RLock()
	p, exists := m.params[paramID]
	m.mutex.RUnlock()
	if !exists {
		return ErrInvalidParam
	}

	oldValue := p.Value()
	newValue := p.SetValue(value)
	if oldValue != newValue {
		m.notifyListeners(paramID, oldValue, newValue)
	}
	return nil
}

// GetParameter returns the underlying Parameter for direct RT-path access.
func (m *Manager) GetParameter(paramID uint32) (*Parameter, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if p, ok := m.params[paramID]; ok {
		return p, nil
	}
	return nil, ErrInvalidParam
}

// AddListener registers a change listener, up to MaxListeners.
func (m *Manager) AddListener(listener ChangeListener) error {
	if listener == nil {
		return ErrInvalidParam
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	count := atomic.LoadInt32(&m.listenerCount)
	if count >= MaxListeners {
		return ErrListenerLimit
	}
	m.listeners[count] = listener
	atomic.AddInt32(&m.listenerCount, 1)
	return nil
}

// RemoveListener removes a previously registered listener, by function
// pointer identity (teacher's pkg/param/manager.go idiom).
func (m *Manager) RemoveListener(listener ChangeListener) bool {
	if listener == nil {
		return false
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	count := atomic.LoadInt32(&m.listenerCount)
	target := *(*uintptr)(unsafe.Pointer(&listener))
	for i := int32(0); i < count; i++ {
		if m.listeners[i] == nil {
			continue
		}
		if *(*uintptr)(unsafe.Pointer(&m.listeners[i])) == target {
			for j := i; j < count-1; j++ {
				m.listeners[j] = m.listeners[j+1]
			}
			m.listeners[count-1] = nil
			atomic.AddInt32(&m.listenerCount, -1)
			return true
		}
	}
	return false
}

// ListenerCount reports the current number of registered listeners.
func (m *Manager) ListenerCount() int32 { return atomic.LoadInt32(&m.listenerCount) }

// notifyListeners snapshots the listener table under lock, then calls
// listeners without holding it, so a listener registering/removing a
// listener from its own callback can't deadlock.
func (m *Manager) notifyListeners(paramID uint32, oldValue, newValue float64) {
	m.mutex.RLock()
	count := atomic.LoadInt32(&m.listenerCount)
	var snapshot [MaxListeners]ChangeListener
	copy(snapshot[:count], m.listeners[:count])
	m.mutex.RUnlock()

	for i := int32(0); i < count; i++ {
		if snapshot[i] != nil {
			snapshot[i](paramID, oldValue, newValue)
		}
	}
}

// GetAll returns a snapshot of every parameter's current value by ID.
func (m *Manager) GetAll() map[uint32]float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	values := make(map[uint32]float64, len(m.params))
	for id, p := range m.params {
		values[id] = p.Value()
	}
	return values
}

// SetAll applies a batch of parameter values.
func (m *Manager) SetAll(values map[uint32]float64) {
	for id, v := range values {
		_ = m.Set(id, v)
	}
}

// ResetToDefaults restores every parameter to its range default.
func (m *Manager) ResetToDefaults() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, p := range m.params {
		p.SetValue(p.Info.Ranges.Default)
	}
}

// ForEach calls fn for each parameter in registration order.
func (m *Manager) ForEach(fn func(Info, float64)) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, id := range m.paramOrder {
		p := m.params[id]
		fn(p.Info, p.Value())
	}
}
