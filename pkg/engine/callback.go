package engine

// Action is one member of the closed callback action set (spec §6).
type Action int

const (
	DebugEvent Action = iota
	AddedPlugin
	RemovedPlugin
	RenamedPlugin
	ParameterValueChanged
	ParameterDefaultChanged
	ParameterMidiCcChanged
	ParameterMidiChannelChanged
	ProgramChanged
	MidiProgramChanged
	NoteOn
	NoteOff
	ShowGui
	ResizeGui
	UpdateData
	ReloadInfo
	ReloadParameters
	ReloadPrograms
	ReloadAll
	PatchbayClientAdded
	PatchbayClientRemoved
	PatchbayClientRenamed
	PatchbayPortAdded
	PatchbayPortRemoved
	PatchbayPortRenamed
	PatchbayConnectionAdded
	PatchbayConnectionRemoved
	PatchbayIconChanged
	BufferSizeChanged
	SampleRateChanged
	ProcessModeChanged
	Quit
	Error
)

func (a Action) String() string {
	switch a {
	case DebugEvent:
		return "debug-event"
	case AddedPlugin:
		return "added-plugin"
	case RemovedPlugin:
		return "removed-plugin"
	case RenamedPlugin:
		return "renamed-plugin"
	case ParameterValueChanged:
		return "parameter-value-changed"
	case ParameterDefaultChanged:
		return "parameter-default-changed"
	case ParameterMidiCcChanged:
		return "parameter-midi-cc-changed"
	case ParameterMidiChannelChanged:
		return "parameter-midi-channel-changed"
	case ProgramChanged:
		return "program-changed"
	case MidiProgramChanged:
		return "midi-program-changed"
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	case ShowGui:
		return "show-gui"
	case ResizeGui:
		return "resize-gui"
	case UpdateData:
		return "update-data"
	case ReloadInfo:
		return "reload-info"
	case ReloadParameters:
		return "reload-parameters"
	case ReloadPrograms:
		return "reload-programs"
	case ReloadAll:
		return "reload-all"
	case PatchbayClientAdded:
		return "patchbay-client-added"
	case PatchbayClientRemoved:
		return "patchbay-client-removed"
	case PatchbayClientRenamed:
		return "patchbay-client-renamed"
	case PatchbayPortAdded:
		return "patchbay-port-added"
	case PatchbayPortRemoved:
		return "patchbay-port-removed"
	case PatchbayPortRenamed:
		return "patchbay-port-renamed"
	case PatchbayConnectionAdded:
		return "patchbay-connection-added"
	case PatchbayConnectionRemoved:
		return "patchbay-connection-removed"
	case PatchbayIconChanged:
		return "patchbay-icon-changed"
	case BufferSizeChanged:
		return "buffer-size-changed"
	case SampleRateChanged:
		return "sample-rate-changed"
	case ProcessModeChanged:
		return "process-mode-changed"
	case Quit:
		return "quit"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Callback is the engine's single user-installed notification sink
// (spec §6): fn(action, plugin_id, v1, v2, v3, text).
type Callback func(action Action, pluginID uint32, v1, v2 int32, v3 float32, text string)
