package config

// ConfigDiff describes what changed between two configs. Only fields that
// can be safely hot-reloaded without a restart are tracked; transport
// addresses and model paths require a restart and are ignored here.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SynthesisChanged is true if any runtime synthesis or generation
	// setting of the TTS server changed (voice, speaker, scales, model,
	// personality).
	SynthesisChanged bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	ot, nt := old.TTS, new.TTS
	if ot.Voice != nt.Voice ||
		ot.Personality != nt.Personality ||
		ot.Model != nt.Model ||
		ot.SpeakerID != nt.SpeakerID ||
		ot.LengthScale != nt.LengthScale ||
		ot.NoiseScale != nt.NoiseScale ||
		ot.NoiseW != nt.NoiseW {
		d.SynthesisChanged = true
	}

	return d
}
