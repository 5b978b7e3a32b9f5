package captures

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/mathlens/pkg/query"
	"github.com/JaimeStill/mathlens/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "captures", "c").
	Project("id", "ID").
	Project("expression", "Expression").
	Project("confidence", "Confidence").
	Project("value", "Value").
	Project("source", "Source").
	Project("retry_count", "RetryCount").
	Project("duration_ms", "DurationMS").
	Project("storage_key", "StorageKey").
	Project("captured_at", "CapturedAt")

var defaultSort = query.SortField{
	Field:      "CapturedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for capture queries.
// Nil fields are ignored.
type Filters struct {
	Source        *string  `json:"source,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.WhereEquals("Source", f.Source)
	if f.MinConfidence != nil {
		b.WhereAtLeast("Confidence", *f.MinConfidence)
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("source"); s != "" {
		f.Source = &s
	}

	if m := values.Get("min_confidence"); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			f.MinConfidence = &v
		}
	}

	return f
}

func scanCapture(s repository.Scanner) (Capture, error) {
	var c Capture

	err := s.Scan(
		&c.ID,
		&c.Expression,
		&c.Confidence,
		&c.Value,
		&c.Source,
		&c.RetryCount,
		&c.DurationMS,
		&c.StorageKey,
		&c.CapturedAt,
	)
	if err != nil {
		return Capture{}, err
	}

	return c, nil
}
