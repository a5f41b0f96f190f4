package config

import "testing"

func TestDiffNoChanges(t *testing.T) {
	old, new := Default(), Default()
	d := Diff(old, new)
	if d.LogLevelChanged || d.SynthesisChanged {
		t.Errorf("Diff() = %+v, want no changes", d)
	}
}

func TestDiffLogLevel(t *testing.T) {
	old, new := Default(), Default()
	new.LogLevel = LogDebug

	d := Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
		t.Errorf("Diff() = %+v, want log level change to debug", d)
	}
}

func TestDiffSynthesisSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"voice", func(c *Config) { c.TTS.Voice = "en_US-lessac-high" }},
		{"personality", func(c *Config) { c.TTS.Personality = "pirate" }},
		{"model", func(c *Config) { c.TTS.Model = "mistral" }},
		{"speaker", func(c *Config) { c.TTS.SpeakerID = 3 }},
		{"length_scale", func(c *Config) { c.TTS.LengthScale = 1.2 }},
		{"noise_w", func(c *Config) { c.TTS.NoiseW = 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old, new := Default(), Default()
			tt.mutate(new)
			if d := Diff(old, new); !d.SynthesisChanged {
				t.Errorf("Diff() after %s change: SynthesisChanged = false, want true", tt.name)
			}
		})
	}
}

func TestDiffIgnoresRestartOnlyFields(t *testing.T) {
	old, new := Default(), Default()
	new.TTS.ListenAddr = ":9000"
	new.STT.ModelPath = "/models/other.bin"

	if d := Diff(old, new); d.SynthesisChanged || d.LogLevelChanged {
		t.Errorf("Diff() = %+v, want no hot-reloadable changes", d)
	}
}
