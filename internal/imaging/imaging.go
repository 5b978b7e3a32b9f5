// Package imaging validates captured photos and prepares them for vision
// inference. Preprocessing normalizes every accepted image to PNG so the
// inference layer deals with a single format.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"strings"

	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/encoding"

	"github.com/JaimeStill/mathlens/pkg/formatting"
)

// Accepted source formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

var (
	pngMagic  = []byte{0x89, 0x50, 0x4e, 0x47}
	jpegMagic = []byte{0xff, 0xd8}
)

// Config bounds accepted images.
type Config struct {
	MaxBytes  int64
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
}

// DefaultConfig returns the standard image bounds.
func DefaultConfig() Config {
	return Config{
		MaxBytes:  10 << 20,
		MinWidth:  32,
		MinHeight: 32,
		MaxWidth:  8192,
		MaxHeight: 8192,
	}
}

// Validation reports the result of checking one captured image.
type Validation struct {
	Valid  bool     `json:"valid"`
	Format string   `json:"format,omitempty"`
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// Validator checks captured images against format and size bounds.
type Validator struct {
	config Config
	logger *slog.Logger
}

// NewValidator creates a Validator with the given bounds. Zero bound fields
// fall back to defaults.
func NewValidator(cfg Config, logger *slog.Logger) *Validator {
	def := DefaultConfig()
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.MinWidth <= 0 {
		cfg.MinWidth = def.MinWidth
	}
	if cfg.MinHeight <= 0 {
		cfg.MinHeight = def.MinHeight
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = def.MaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = def.MaxHeight
	}

	return &Validator{
		config: cfg,
		logger: logger.With("system", "imaging"),
	}
}

// Validate checks the raw image bytes. A Validation with Valid false carries
// every failed check, not just the first.
func (v *Validator) Validate(data []byte) Validation {
	result := Validation{}

	if len(data) == 0 {
		result.Errors = append(result.Errors, "image data is empty")
		return result
	}

	if int64(len(data)) > v.config.MaxBytes {
		result.Errors = append(result.Errors,
			fmt.Sprintf("image is %s, limit is %s",
				formatting.FormatBytes(int64(len(data)), 1),
				formatting.FormatBytes(v.config.MaxBytes, 1)))
	}

	format := SniffFormat(data)
	if format == "" {
		result.Errors = append(result.Errors, "unsupported image format, expected PNG or JPEG")
		return result
	}
	result.Format = format

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("image header is unreadable: %v", err))
		return result
	}
	result.Width = cfg.Width
	result.Height = cfg.Height

	if cfg.Width < v.config.MinWidth || cfg.Height < v.config.MinHeight {
		result.Errors = append(result.Errors,
			fmt.Sprintf("image is %dx%d, minimum is %dx%d",
				cfg.Width, cfg.Height, v.config.MinWidth, v.config.MinHeight))
	}
	if cfg.Width > v.config.MaxWidth || cfg.Height > v.config.MaxHeight {
		result.Errors = append(result.Errors,
			fmt.Sprintf("image is %dx%d, maximum is %dx%d",
				cfg.Width, cfg.Height, v.config.MaxWidth, v.config.MaxHeight))
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// SniffFormat identifies the image format from magic bytes. Returns an empty
// string for anything other than PNG or JPEG.
func SniffFormat(data []byte) string {
	if bytes.HasPrefix(data, pngMagic) {
		return FormatPNG
	}
	if bytes.HasPrefix(data, jpegMagic) {
		return FormatJPEG
	}
	return ""
}

// Processed is a validated image normalized to PNG and encoded for vision
// inference.
type Processed struct {
	DataURI        string `json:"-"`
	SourceFormat   string `json:"source_format"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalBytes  int    `json:"original_bytes"`
	ProcessedBytes int    `json:"processed_bytes"`
}

// Preprocessor validates and normalizes captured images.
type Preprocessor struct {
	validator *Validator
	logger    *slog.Logger
}

// NewPreprocessor creates a Preprocessor over the given validator.
func NewPreprocessor(validator *Validator, logger *slog.Logger) *Preprocessor {
	return &Preprocessor{
		validator: validator,
		logger:    logger.With("system", "imaging"),
	}
}

// Process validates the image, converts JPEG input to PNG, and encodes the
// result as a data URI for the vision model.
func (p *Preprocessor) Process(ctx context.Context, data []byte) (*Processed, error) {
	validation := p.validator.Validate(data)
	if !validation.Valid {
		return nil, fmt.Errorf("invalid image: %s", strings.Join(validation.Errors, "; "))
	}

	normalized := data
	if validation.Format == FormatJPEG {
		converted, err := jpegToPNG(data)
		if err != nil {
			return nil, fmt.Errorf("convert jpeg to png: %w", err)
		}
		normalized = converted
	}

	dataURI, err := encoding.EncodeImageDataURI(normalized, document.PNG)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	p.logger.InfoContext(
		ctx, "image preprocessed",
		"source_format", validation.Format,
		"width", validation.Width,
		"height", validation.Height,
		"original_bytes", len(data),
		"processed_bytes", len(normalized),
	)

	return &Processed{
		DataURI:        dataURI,
		SourceFormat:   validation.Format,
		Width:          validation.Width,
		Height:         validation.Height,
		OriginalBytes:  len(data),
		ProcessedBytes: len(normalized),
	}, nil
}

func jpegToPNG(data []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}
