package engine

// transforms.go - Static registry of dataset transforms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/leapstack-labs/mstools/internal/catalog"
	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Transform names.
const (
	TransformPolswap           = "polswap"
	TransformCopyPol           = "copy_pol"
	TransformScale1Bit         = "scale1bit"
	TransformInvertSubband     = "invert_subband"
	TransformFlagWeights       = "flag_weights"
	TransformChangeProjectName = "change_project_name"
	TransformChangeSourceName  = "change_source_name"
)

// ErrAntennaRequired is returned when a transform that acts on antennas is
// given an empty selection.
var ErrAntennaRequired = errors.New("at least one antenna is required")

// Params carries the per-transform parameters. Each transform reads only
// the fields it documents.
type Params struct {
	// Source is the feed letter copy_pol copies from.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// PerStation makes polswap flip only the selected endpoint's hand.
	PerStation bool `json:"per_station,omitempty" yaml:"per_station,omitempty"`

	ScaleWeights bool `json:"scale_weights,omitempty" yaml:"scale_weights,omitempty"`
	Undo         bool `json:"undo,omitempty" yaml:"undo,omitempty"`

	Threshold       float64         `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Apply           bool            `json:"apply,omitempty" yaml:"apply,omitempty"`
	WeightReference WeightReference `json:"weight_reference,omitempty" yaml:"weight_reference,omitempty"`

	// Name is the new project or source name; OldName the source to rename.
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	OldName string `json:"old_name,omitempty" yaml:"old_name,omitempty"`
}

// Call is everything a transform needs for one run.
type Call struct {
	Store    adapter.Store
	Handle   adapter.Handle
	Snapshot *core.Snapshot
	Selector *Selector
	Params   Params
	Exec     *Executor
	Logger   *slog.Logger
}

// SourceRename reports what change_source_name did.
type SourceRename struct {
	Old     string `json:"old" yaml:"old"`
	New     string `json:"new" yaml:"new"`
	Changed bool   `json:"changed" yaml:"changed"`
}

// Result is the outcome of one transform run.
type Result struct {
	ID        string                 `json:"id" yaml:"id"`
	Transform string                 `json:"transform" yaml:"transform"`
	Dataset   string                 `json:"dataset" yaml:"dataset"`
	DryRun    bool                   `json:"dry_run" yaml:"dry_run"`
	Counters  Counters               `json:"counters" yaml:"counters"`
	Stats     *FlagStats             `json:"stats,omitempty" yaml:"stats,omitempty"`
	Project   *catalog.ProjectRename `json:"project,omitempty" yaml:"project,omitempty"`
	Source    *SourceRename          `json:"source,omitempty" yaml:"source,omitempty"`
	Duration  time.Duration          `json:"duration" yaml:"duration"`
}

// Transform is one registry entry.
type Transform struct {
	Name        string
	Description string
	// NeedsAntennas rejects selections without antennas or baselines.
	NeedsAntennas bool
	// Metadata transforms edit one subtable record and ignore the selection.
	Metadata bool
	// Validate checks parameters before the dataset is opened.
	Validate func(Params) error
	Run      func(ctx context.Context, c *Call) (*Result, error)
}

var registry = map[string]Transform{
	TransformPolswap: {
		Name:          TransformPolswap,
		Description:   "Swap the polarization hands of the selected antennas",
		NeedsAntennas: true,
		Run:           runPolswap,
	},
	TransformCopyPol: {
		Name:          TransformCopyPol,
		Description:   "Copy one polarization hand onto the other for the selected antennas",
		NeedsAntennas: true,
		Validate:      validateCopyPol,
		Run:           runCopyPol,
	},
	TransformScale1Bit: {
		Name:        TransformScale1Bit,
		Description: "Correct the amplitude of baselines to 1-bit sampled antennas",
		Run:         runScale1Bit,
	},
	TransformInvertSubband: {
		Name:          TransformInvertSubband,
		Description:   "Reverse the channel order of the selected antennas",
		NeedsAntennas: true,
		Run:           runInvertSubband,
	},
	TransformFlagWeights: {
		Name:        TransformFlagWeights,
		Description: "Flag visibilities whose weight is below a threshold",
		Validate:    validateFlagWeights,
		Run:         runFlagWeights,
	},
	TransformChangeProjectName: {
		Name:        TransformChangeProjectName,
		Description: "Rename the observing project",
		Metadata:    true,
		Validate:    validateProjectName,
		Run:         runChangeProjectName,
	},
	TransformChangeSourceName: {
		Name:        TransformChangeSourceName,
		Description: "Rename a source in the FIELD table",
		Metadata:    true,
		Validate:    validateSourceName,
		Run:         runChangeSourceName,
	},
}

// Lookup returns the transform registered under name.
func Lookup(name string) (Transform, error) {
	t, ok := registry[name]
	if !ok {
		return Transform{}, &core.UnknownTransformError{Name: name, Available: Names()}
	}
	return t, nil
}

// Names returns the registered transform names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// check validates params and selection before any I/O.
func (t Transform) check(sel Selection, p Params) error {
	if t.NeedsAntennas && !sel.HasAntennas() {
		return fmt.Errorf("%s: %w", t.Name, ErrAntennaRequired)
	}
	if t.Validate != nil {
		return t.Validate(p)
	}
	return nil
}

// Column groups shared by the visibility transforms.
var (
	polColumns         = []string{"DATA", "FLAG", "WEIGHT"}
	polOptionalColumns = []string{"FLOAT_DATA", "WEIGHT_SPECTRUM", "SIGMA_SPECTRUM", "SIGMA"}

	chanColumns         = []string{"DATA", "FLAG"}
	chanOptionalColumns = []string{"FLOAT_DATA", "WEIGHT_SPECTRUM", "SIGMA_SPECTRUM"}
)

// loaded returns the columns of names present in c.
func loaded(c *Chunk, names ...[]string) []core.Column {
	var out []core.Column
	for _, group := range names {
		for _, name := range group {
			if col, ok := c.Column(name); ok {
				out = append(out, col)
			}
		}
	}
	return out
}

func baselinesOf(c *Chunk) (a1, a2 *core.Array[int32], err error) {
	if a1, err = Get[int32](c, colAntenna1); err != nil {
		return nil, nil, err
	}
	if a2, err = Get[int32](c, colAntenna2); err != nil {
		return nil, nil, err
	}
	return a1, a2, nil
}

func (c *Call) execute(ctx context.Context, p Plan) (*Result, error) {
	n, err := c.Exec.Execute(ctx, c.Handle, c.Selector, p)
	res := &Result{Counters: n, DryRun: c.Exec.DryRun}
	return res, err
}
