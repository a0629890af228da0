package deck

import (
	"fmt"
	"sort"
	"strings"
)

// Entity is one unit of report generation, parsed from a manifest row.
type Entity struct {
	Name     string `json:"name"`
	Generate bool   `json:"generate"`

	// SlideFilter lists the 1-based template slide indexes to keep.
	// A nil filter keeps every slide.
	SlideFilter SlideFilter `json:"slide_filter,omitempty"`
}

// SlideFilter is a set of 1-based slide indexes.
type SlideFilter map[int]struct{}

// NewSlideFilter builds a filter from the given indexes.
func NewSlideFilter(indexes ...int) SlideFilter {
	f := make(SlideFilter, len(indexes))
	for _, i := range indexes {
		f[i] = struct{}{}
	}
	return f
}

// Contains reports whether index is kept. A nil filter keeps everything.
func (f SlideFilter) Contains(index int) bool {
	if f == nil {
		return true
	}
	_, ok := f[index]
	return ok
}

// Sorted returns the filter's indexes in ascending order.
func (f SlideFilter) Sorted() []int {
	out := make([]int, 0, len(f))
	for i := range f {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// String renders the filter as a comma list, or "all" for a nil filter.
func (f SlideFilter) String() string {
	if f == nil {
		return "all"
	}
	parts := make([]string, 0, len(f))
	for _, i := range f.Sorted() {
		parts = append(parts, fmt.Sprint(i))
	}
	return strings.Join(parts, ",")
}

// DriveLayout holds the folder and file IDs resolved once per run.
// It is read-only after resolution.
type DriveLayout struct {
	RootID           string `json:"root_id"`
	L0ID             string `json:"l0_id"`
	L1ID             string `json:"l1_id"`
	L2ID             string `json:"l2_id"`
	L3ID             string `json:"l3_id"`
	TemplatesID      string `json:"templates_id"`
	DataTemplateID   string `json:"data_template_id"`
	ReportTemplateID string `json:"report_template_id"`
	EntitiesFileID   string `json:"entities_file_id"`
}

// PlaceholderKind identifies how a placeholder is resolved.
type PlaceholderKind string

const (
	KindText    PlaceholderKind = "text"
	KindChart   PlaceholderKind = "chart"
	KindTable   PlaceholderKind = "table"
	KindPicture PlaceholderKind = "picture"
)

// ParseKind maps a kind name to a PlaceholderKind.
func ParseKind(s string) (PlaceholderKind, bool) {
	switch PlaceholderKind(strings.ToLower(s)) {
	case KindText:
		return KindText, true
	case KindChart:
		return KindChart, true
	case KindTable:
		return KindTable, true
	case KindPicture:
		return KindPicture, true
	}
	return "", false
}

// Token is a placeholder reference found in a template.
// Tokens are unique per slide only; the same key may appear on several slides.
type Token struct {
	Kind PlaceholderKind `json:"kind"`
	Key  string          `json:"key"`
}

// String renders text tokens as their bare key and the rest as kind:key.
func (t Token) String() string {
	if t.Kind == KindText || t.Kind == "" {
		return t.Key
	}
	return string(t.Kind) + ":" + t.Key
}

// ChartRef points at a chart embedded in an entity's L1 spreadsheet.
type ChartRef struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetID       int64  `json:"sheet_id"`
	ChartID       int64  `json:"chart_id"`
}

// FileRef is a Drive file handle.
type FileRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Width    int64  `json:"width,omitempty"`
	Height   int64  `json:"height,omitempty"`
}

// EntityDataset is the data an entity's placeholders resolve against.
// It is built fresh for every entity.
type EntityDataset struct {
	SpreadsheetID string                `json:"spreadsheet_id"`
	Text          map[string]string     `json:"text"`
	Charts        map[string]ChartRef   `json:"charts"`
	Tables        map[string][][]string `json:"tables"`
	Pictures      map[string]FileRef    `json:"pictures"`
}

// NewEntityDataset returns a dataset with every map allocated.
func NewEntityDataset() *EntityDataset {
	return &EntityDataset{
		Text:     map[string]string{},
		Charts:   map[string]ChartRef{},
		Tables:   map[string][][]string{},
		Pictures: map[string]FileRef{},
	}
}

// Picture looks up an image by key, falling back to the picture- prefixed stem.
func (d *EntityDataset) Picture(key string) (FileRef, bool) {
	if f, ok := d.Pictures[key]; ok {
		return f, true
	}
	f, ok := d.Pictures["picture-"+key]
	return f, ok
}

// Chart looks up a chart by key, falling back to the chart- prefixed tab name.
func (d *EntityDataset) Chart(key string) (ChartRef, bool) {
	if c, ok := d.Charts[key]; ok {
		return c, true
	}
	c, ok := d.Charts["chart-"+key]
	return c, ok
}

// Table looks up table values by key, falling back to the table- prefixed tab name.
func (d *EntityDataset) Table(key string) ([][]string, bool) {
	if t, ok := d.Tables[key]; ok {
		return t, true
	}
	t, ok := d.Tables["table-"+key]
	return t, ok
}

// MergeOutcome describes the L1 artifacts produced for one entity.
type MergeOutcome struct {
	Entity        string   `json:"entity"`
	FolderID      string   `json:"folder_id"`
	SpreadsheetID string   `json:"spreadsheet_id"`
	Tabs          []string `json:"tabs"`
	Images        []string `json:"images"`
}

// RenderOutcome describes the L2 deck produced for one entity.
type RenderOutcome struct {
	Entity         string                  `json:"entity"`
	PresentationID string                  `json:"presentation_id"`
	SlidesKept     int                     `json:"slides_kept"`
	Replaced       map[PlaceholderKind]int `json:"replaced"`
}

// Phase selects which pipeline stages a run executes.
type Phase string

const (
	PhaseL1  Phase = "l1"
	PhaseL2  Phase = "l2"
	PhaseAll Phase = "all"
)

// Validate checks the phase is one of the known values.
func (p Phase) Validate() error {
	switch p {
	case PhaseL1, PhaseL2, PhaseAll:
		return nil
	}
	return fmt.Errorf("invalid phase: %q (must be l1, l2 or all)", string(p))
}

// Failure records why one entity failed.
type Failure struct {
	Entity       string      `json:"entity"`
	ErrorMessage string      `json:"error_message"`
	Kind         FailureKind `json:"kind"`
	Err          error       `json:"-"`
}

// RunResult is the outcome of a batch run. Both lists follow manifest order.
type RunResult struct {
	RunID      string    `json:"run_id,omitempty"`
	Phase      Phase     `json:"phase"`
	Successful []string  `json:"successful"`
	Failed     []Failure `json:"failed"`
}

// Total returns the number of entities the run accounted for.
func (r *RunResult) Total() int {
	return len(r.Successful) + len(r.Failed)
}

// OK reports whether every entity succeeded.
func (r *RunResult) OK() bool {
	return len(r.Failed) == 0
}

// RunRecord is the persisted history entry for a batch run.
type RunRecord struct {
	ID           string    `json:"id"`
	Phase        Phase     `json:"phase"`
	RootID       string    `json:"root_id"`
	StartedAtMs  int64     `json:"started_at_ms"`
	FinishedAtMs int64     `json:"finished_at_ms"`
	Successful   []string  `json:"successful"`
	Failed       []Failure `json:"failed"`
}

// Validate checks required fields before the record is stored.
func (r *RunRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if err := r.Phase.Validate(); err != nil {
		return err
	}
	if r.StartedAtMs <= 0 {
		return fmt.Errorf("started_at_ms must be set")
	}
	if r.FinishedAtMs != 0 && r.FinishedAtMs < r.StartedAtMs {
		return fmt.Errorf("finished_at_ms precedes started_at_ms")
	}
	return nil
}

// EntityEventType names a per-entity lifecycle transition.
type EntityEventType string

const (
	EventEntityStarted   EntityEventType = "entity_started"
	EventEntitySucceeded EntityEventType = "entity_succeeded"
	EventEntityFailed    EntityEventType = "entity_failed"
)

// EntityEvent is published while a run is in progress.
type EntityEvent struct {
	RunID       string          `json:"run_id"`
	Entity      string          `json:"entity"`
	Phase       Phase           `json:"phase"`
	Event       EntityEventType `json:"event"`
	Error       string          `json:"error,omitempty"`
	TimestampMs int64           `json:"timestamp_ms"`
}
