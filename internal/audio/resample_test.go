package audio

import "testing"

func TestResample_IdentityWhenRatesMatch(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 24000, 24000)
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d changed: %v != %v", i, out[i], in[i])
		}
	}
}

func TestResample_Downsample(t *testing.T) {
	// 48kHz -> 24kHz halves the sample count, holding every other sample.
	in := []float32{0, 1, 2, 3, 4, 5, 6, 7}
	out := Resample(in, 48000, 24000)

	if len(out) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(out))
	}
	expected := []float32{0, 2, 4, 6}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("sample %d = %v, want %v", i, out[i], expected[i])
		}
	}
}

func TestResample_Upsample(t *testing.T) {
	// 8kHz -> 24kHz triples the count by repeating each sample.
	in := []float32{1, 2}
	out := Resample(in, 8000, 24000)

	if len(out) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(out))
	}
	expected := []float32{1, 1, 1, 2, 2, 2}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("sample %d = %v, want %v", i, out[i], expected[i])
		}
	}
}

func TestResample_LengthRatios(t *testing.T) {
	tests := []struct {
		name     string
		inLen    int
		src, dst int
		expected int
	}{
		{"44.1k to 24k", 441, 44100, 24000, 240},
		{"16k to 24k", 160, 16000, 24000, 240},
		{"48k to 24k", 960, 48000, 24000, 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resample(make([]float32, tt.inLen), tt.src, tt.dst)
			if len(out) != tt.expected {
				t.Errorf("expected %d samples, got %d", tt.expected, len(out))
			}
		})
	}
}

func TestResample_EmptyInput(t *testing.T) {
	if out := Resample(nil, 48000, 24000); len(out) != 0 {
		t.Errorf("expected empty output for empty input, got %d samples", len(out))
	}
}
