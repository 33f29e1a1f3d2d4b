package event

// MIDI 1.0 status nibbles, kept from the teacher's pkg/event/midi.go.
const (
	StatusNoteOff         byte = 0x80
	StatusNoteOn          byte = 0x90
	StatusPolyPressure    byte = 0xA0
	StatusControlChange   byte = 0xB0
	StatusProgramChange   byte = 0xC0
	StatusChannelPressure byte = 0xD0
	StatusPitchBend       byte = 0xE0
)

// Bank-select controller numbers (MSB, LSB).
const (
	ccBankSelectMSB = 0
	ccBankSelectLSB = 32
	ccAllSoundOff   = 120
	ccAllNotesOff   = 123
)

// NormalizeMIDI implements the spec §4.A ingestion rules: raw MIDI bytes
// from a driver-native source become a single EngineEvent. portOffset
// identifies which MIDI input produced the byte (for Midi-kind results).
func NormalizeMIDI(time uint32, portOffset uint8, data [3]byte, size uint8) EngineEvent {
	status := data[0] & 0xF0
	channel := data[0] & 0x0F

	if status == StatusControlChange {
		controller := data[1]
		switch {
		case controller == ccBankSelectMSB || controller == ccBankSelectLSB:
			return EngineEvent{
				Time:    time,
				Channel: channel,
				Kind:    Control{Subkind: MidiBank, ParamID: uint16(data[2])},
			}
		case controller == ccAllSoundOff:
			return EngineEvent{Time: time, Channel: channel, Kind: Control{Subkind: AllSoundOff}}
		case controller == ccAllNotesOff:
			return EngineEvent{Time: time, Channel: channel, Kind: Control{Subkind: AllNotesOff}}
		default:
			return EngineEvent{
				Time:    time,
				Channel: channel,
				Kind: Control{
					Subkind: Parameter,
					ParamID: uint16(controller),
					Value:   float32(data[2]) / 127.0,
				},
			}
		}
	}

	if status == StatusProgramChange {
		return EngineEvent{
			Time:    time,
			Channel: channel,
			Kind:    Control{Subkind: MidiProgram, ParamID: uint16(data[1])},
		}
	}

	// Raw MIDI: strip the channel nibble from the status byte, move channel
	// to the outer record, keep the rest of the payload as-is.
	out := data
	out[0] = status
	return EngineEvent{
		Time:    time,
		Channel: channel,
		Kind:    Midi{PortOffset: portOffset, Data: out, Size: size},
	}
}

// EmitMIDI implements the spec §4.A emission rules: the inverse of
// NormalizeMIDI. A Control event whose ParamID equals a bank-select
// controller must never be emitted here - that shape is only produced by
// a MidiBank event, and the converse must hold too (spec §9 invariant on
// round trips). Returns ok=false when e cannot be represented as MIDI.
func EmitMIDI(e EngineEvent) (portOffset uint8, data [3]byte, size uint8, ok bool) {
	channel := e.Channel & 0x0F

	switch k := e.Kind.(type) {
	case Control:
		switch k.Subkind {
		case MidiBank:
			data = [3]byte{StatusControlChange | channel, ccBankSelectMSB, byte(k.ParamID)}
			return 0, data, 3, true
		case MidiProgram:
			data = [3]byte{StatusProgramChange | channel, byte(k.ParamID), 0}
			return 0, data, 2, true
		case AllSoundOff:
			data = [3]byte{StatusControlChange | channel, ccAllSoundOff, 0}
			return 0, data, 3, true
		case AllNotesOff:
			data = [3]byte{StatusControlChange | channel, ccAllNotesOff, 0}
			return 0, data, 3, true
		case Parameter:
			if k.ParamID == ccBankSelectMSB || k.ParamID == ccBankSelectLSB {
				// A Parameter event must never carry a bank-select controller
				// (spec §4.A); that shape only comes from a genuine MidiBank event.
				return 0, data, 0, false
			}
			value := byte(k.Value * 127.0)
			data = [3]byte{StatusControlChange | channel, byte(k.ParamID), value}
			return 0, data, 3, true
		}
	case Midi:
		data = k.Data
		data[0] = (data[0] & 0xF0) | channel
		return k.PortOffset, data, k.Size, true
	}
	return 0, data, 0, false
}
