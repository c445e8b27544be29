package modeltier_test

import (
	"errors"
	"math"
	"testing"

	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "gpt-3.5-turbo", input: "gpt-3.5-turbo"},
		{name: "gpt-3.5-turbo-16k", input: "gpt-3.5-turbo-16k"},
		{name: "gpt-4", input: "gpt-4"},
		{name: "empty string", input: "", wantErr: true},
		{name: "unknown family", input: "claude-2", wantErr: true},
		{name: "typo", input: "gpt-3.5-trubo", wantErr: true},
		{name: "snapshot identifier is not a tier", input: "gpt-3.5-turbo-0301", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tier, err := modeltier.Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, modeltier.ErrUnsupportedModel) {
					t.Fatalf("Parse(%q) error = %v, want ErrUnsupportedModel", tt.input, err)
				}
				if !tier.IsZero() {
					t.Errorf("Parse(%q) returned non-zero tier on error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if tier.String() != tt.input {
				t.Errorf("String() = %q, want %q", tier.String(), tt.input)
			}
		})
	}
}

func TestTierData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier             modeltier.Tier
		wantLimit        int
		wantEncoding     string
		wantPerMessage   int
		wantTokensPerName int
	}{
		{modeltier.GPT35TurboTier, 4096, "gpt-3.5-turbo-0301", 4, -1},
		{modeltier.GPT35Turbo16KTier, 16384, "gpt-3.5-turbo-0301", 4, -1},
		{modeltier.GPT4Tier, 8192, "gpt-4-0314", 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			t.Parallel()

			if got := tt.tier.ContextLimit(); got != tt.wantLimit {
				t.Errorf("ContextLimit() = %d, want %d", got, tt.wantLimit)
			}
			if got := tt.tier.Encoding(); got != tt.wantEncoding {
				t.Errorf("Encoding() = %q, want %q", got, tt.wantEncoding)
			}
			if got := tt.tier.TokensPerMessage(); got != tt.wantPerMessage {
				t.Errorf("TokensPerMessage() = %d, want %d", got, tt.wantPerMessage)
			}
			if got := tt.tier.TokensPerName(); got != tt.wantTokensPerName {
				t.Errorf("TokensPerName() = %d, want %d", got, tt.wantTokensPerName)
			}
		})
	}
}

func TestTierUpgrade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier modeltier.Tier
		want modeltier.Tier
	}{
		{modeltier.GPT35TurboTier, modeltier.GPT35Turbo16KTier},
		{modeltier.GPT35Turbo16KTier, modeltier.GPT35Turbo16KTier},
		{modeltier.GPT4Tier, modeltier.GPT4Tier},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			t.Parallel()
			if got := tt.tier.Upgrade(); got != tt.want {
				t.Errorf("Upgrade() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTierCost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		tier             modeltier.Tier
		promptTokens     int
		completionTokens int
		want             float64
	}{
		{
			name:             "small tier uses cheap rates",
			tier:             modeltier.GPT35TurboTier,
			promptTokens:     1000,
			completionTokens: 1000,
			want:             0.0015 + 0.002,
		},
		{
			name:             "16k tier uses large-context rates",
			tier:             modeltier.GPT35Turbo16KTier,
			promptTokens:     1000,
			completionTokens: 1000,
			want:             0.003 + 0.004,
		},
		{
			name:             "zero tokens cost nothing",
			tier:             modeltier.GPT35TurboTier,
			promptTokens:     0,
			completionTokens: 0,
			want:             0,
		},
		{
			name:             "fractional thousands",
			tier:             modeltier.GPT35TurboTier,
			promptTokens:     500,
			completionTokens: 250,
			want:             0.5*0.0015 + 0.25*0.002,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.tier.Cost(tt.promptTokens, tt.completionTokens)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Cost(%d, %d) = %g, want %g",
					tt.promptTokens, tt.completionTokens, got, tt.want)
			}
		})
	}
}

func TestZeroTierPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("ContextLimit() on zero Tier did not panic")
		}
	}()
	var zero modeltier.Tier
	_ = zero.ContextLimit()
}

func TestParseAudioModel(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"base", "tiny", "small", "medium", "api"} {
		m, err := modeltier.ParseAudioModel(valid)
		if err != nil {
			t.Fatalf("ParseAudioModel(%q) unexpected error: %v", valid, err)
		}
		if m.String() != valid {
			t.Errorf("String() = %q, want %q", m.String(), valid)
		}
	}

	for _, invalid := range []string{"", "large", "whisper-1"} {
		_, err := modeltier.ParseAudioModel(invalid)
		if !errors.Is(err, modeltier.ErrUnsupportedAudioModel) {
			t.Errorf("ParseAudioModel(%q) error = %v, want ErrUnsupportedAudioModel", invalid, err)
		}
	}
}

func TestAudioCost(t *testing.T) {
	t.Parallel()

	api := modeltier.MustParseAudioModel("api")
	local := modeltier.MustParseAudioModel("base")

	// Hosted endpoint bills per minute, rounded up.
	if got := api.AudioCost(10); math.Abs(got-0.06) > 1e-12 {
		t.Errorf("api.AudioCost(10) = %g, want 0.06", got)
	}
	if got := api.AudioCost(9.2); math.Abs(got-0.06) > 1e-12 {
		t.Errorf("api.AudioCost(9.2) = %g, want 0.06 (rounded up)", got)
	}

	// Local models are free.
	if got := local.AudioCost(120); got != 0 {
		t.Errorf("local.AudioCost(120) = %g, want 0", got)
	}
}
