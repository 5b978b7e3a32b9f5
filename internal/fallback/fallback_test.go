package fallback_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/JaimeStill/mathlens/internal/fallback"
	"github.com/JaimeStill/mathlens/internal/faults"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func classifier() *faults.Classifier {
	return faults.NewClassifier(discard())
}

func TestGetFallbackStrategy(t *testing.T) {
	tests := []struct {
		name        string
		kind        faults.Kind
		wantOptions []fallback.Option
	}{
		{
			"permission denied",
			faults.KindPermissionDenied,
			[]fallback.Option{fallback.OptionFileUpload, fallback.OptionManualInput},
		},
		{
			"llm service error",
			faults.KindLLMServiceError,
			[]fallback.Option{fallback.OptionManualInput, fallback.OptionSimplifiedOCR},
		},
		{
			"capture failed",
			faults.KindCaptureFailed,
			[]fallback.Option{fallback.OptionRetryCapture, fallback.OptionFileUpload, fallback.OptionManualInput},
		},
		{
			"parsing failed",
			faults.KindParsingFailed,
			[]fallback.Option{fallback.OptionRetryCapture, fallback.OptionManualInput},
		},
		{
			"unmapped kind falls back to manual input",
			faults.KindProcessingFailed,
			[]fallback.Option{fallback.OptionManualInput},
		},
	}

	r := fallback.NewResolver(discard())
	c := classifier()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := c.New(tt.kind, "capture", "boom", nil)
			strategy := r.GetFallbackStrategy(e)

			if strategy.TriggeringKind != tt.kind {
				t.Errorf("TriggeringKind = %q, want %q", strategy.TriggeringKind, tt.kind)
			}
			if len(strategy.RankedOptions) != len(tt.wantOptions) {
				t.Fatalf("RankedOptions = %v, want %v", strategy.RankedOptions, tt.wantOptions)
			}
			for i, opt := range strategy.RankedOptions {
				if opt != tt.wantOptions[i] {
					t.Errorf("RankedOptions[%d] = %q, want %q", i, opt, tt.wantOptions[i])
				}
			}
			if strategy.Recommended != tt.wantOptions[0] {
				t.Errorf("Recommended = %q, want %q", strategy.Recommended, tt.wantOptions[0])
			}
			if strategy.UserMessage == "" {
				t.Error("UserMessage is empty")
			}
			for _, opt := range strategy.RankedOptions {
				if len(strategy.Instructions[opt]) == 0 {
					t.Errorf("no instructions for %q", opt)
				}
			}
		})
	}
}

func TestGetAvailableFallbacks(t *testing.T) {
	r := fallback.NewResolver(discard())
	c := classifier()

	t.Run("file upload filtered without file read", func(t *testing.T) {
		e := c.New(faults.KindPermissionDenied, "capture", "denied", nil)
		got := r.GetAvailableFallbacks(e, fallback.Capabilities{})

		if len(got) != 1 || got[0] != fallback.OptionManualInput {
			t.Errorf("options = %v, want [manual-input]", got)
		}
	})

	t.Run("retry capture requires camera", func(t *testing.T) {
		e := c.New(faults.KindCaptureFailed, "capture", "failed", nil)
		got := r.GetAvailableFallbacks(e, fallback.Capabilities{FileRead: true})

		want := []fallback.Option{fallback.OptionFileUpload, fallback.OptionManualInput}
		if len(got) != len(want) {
			t.Fatalf("options = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("options[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("full capabilities keep ranked order", func(t *testing.T) {
		e := c.New(faults.KindCaptureFailed, "capture", "failed", nil)
		got := r.GetAvailableFallbacks(e, fallback.Capabilities{Camera: true, FileRead: true})

		want := []fallback.Option{
			fallback.OptionRetryCapture,
			fallback.OptionFileUpload,
			fallback.OptionManualInput,
		}
		if len(got) != len(want) {
			t.Fatalf("options = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("options[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("manual input always present", func(t *testing.T) {
		for _, kind := range []faults.Kind{
			faults.KindPermissionDenied,
			faults.KindLLMServiceError,
			faults.KindImageInvalid,
			faults.KindTimeout,
		} {
			e := c.New(kind, "capture", "boom", nil)
			got := r.GetAvailableFallbacks(e, fallback.Capabilities{})

			found := false
			for _, opt := range got {
				if opt == fallback.OptionManualInput {
					found = true
				}
			}
			if !found {
				t.Errorf("%s: manual-input missing from %v", kind, got)
			}
		}
	})
}

func TestExecuteFallback(t *testing.T) {
	t.Run("registered action success", func(t *testing.T) {
		r := fallback.NewResolver(discard())
		invoked := false
		r.Register(fallback.OptionManualInput, func(ctx context.Context) error {
			invoked = true
			return nil
		})

		outcome := r.ExecuteFallback(context.Background(), fallback.OptionManualInput)
		if !invoked {
			t.Error("registered action was not invoked")
		}
		if !outcome.Success {
			t.Errorf("outcome = %+v, want success", outcome)
		}
	})

	t.Run("registered action failure", func(t *testing.T) {
		r := fallback.NewResolver(discard())
		r.Register(fallback.OptionFileUpload, func(ctx context.Context) error {
			return errors.New("picker dismissed")
		})

		outcome := r.ExecuteFallback(context.Background(), fallback.OptionFileUpload)
		if outcome.Success {
			t.Errorf("outcome = %+v, want failure", outcome)
		}
		if outcome.Message == "" {
			t.Error("failure outcome has empty message")
		}
	})

	t.Run("unregistered option is guidance only", func(t *testing.T) {
		r := fallback.NewResolver(discard())

		outcome := r.ExecuteFallback(context.Background(), fallback.OptionSimplifiedOCR)
		if !outcome.Success {
			t.Errorf("outcome = %+v, want guidance success", outcome)
		}
	})

	t.Run("unknown option fails", func(t *testing.T) {
		r := fallback.NewResolver(discard())

		outcome := r.ExecuteFallback(context.Background(), fallback.Option("teleport"))
		if outcome.Success {
			t.Errorf("outcome = %+v, want failure", outcome)
		}
	})
}

func TestInstructions(t *testing.T) {
	for _, opt := range []fallback.Option{
		fallback.OptionRetryCapture,
		fallback.OptionFileUpload,
		fallback.OptionSimplifiedOCR,
		fallback.OptionManualInput,
	} {
		if len(fallback.Instructions(opt)) == 0 {
			t.Errorf("Instructions(%q) is empty", opt)
		}
	}

	if got := fallback.Instructions(fallback.Option("teleport")); got != nil {
		t.Errorf("Instructions(teleport) = %v, want nil", got)
	}
}
