package catalog

import (
	"context"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// ProjectRename reports what ChangeProjectName did.
type ProjectRename struct {
	Old             string `json:"old" yaml:"old"`
	New             string `json:"new" yaml:"new"`
	ObserverRenamed bool   `json:"observer_renamed" yaml:"observer_renamed"`
}

// ChangeProjectName sets OBSERVATION.PROJECT. OBSERVER is renamed too when
// it held the old project name. Renaming to the current name writes nothing.
func ChangeProjectName(ctx context.Context, store adapter.Store, h adapter.Handle, name string, logger *slog.Logger) (ProjectRename, error) {
	logger = orDiscard(logger)
	obs, err := readObservation(ctx, store, h)
	if err != nil {
		return ProjectRename{}, err
	}
	res := ProjectRename{Old: obs.project, New: name}
	if obs.project == name {
		logger.Debug("project name unchanged", "project", name)
		return res, nil
	}

	if err := writeRow(ctx, store, h, Observation, "PROJECT", 0, name); err != nil {
		return res, err
	}
	if obs.observer == obs.project {
		if err := writeRow(ctx, store, h, Observation, "OBSERVER", 0, name); err != nil {
			return res, err
		}
		res.ObserverRenamed = true
	}

	logger.Info("project renamed", "old", res.Old, "new", name, "observer", res.ObserverRenamed)
	return res, nil
}

// ChangeSourceName renames a FIELD entry. Renaming a source to its own name
// is a no-op.
func ChangeSourceName(ctx context.Context, store adapter.Store, h adapter.Handle, old, name string, logger *slog.Logger) (changed bool, err error) {
	logger = orDiscard(logger)
	sources, err := ReadAll[string](ctx, store, h, Field, "NAME")
	if err != nil {
		return false, err
	}

	idx := slices.Index(sources, old)
	if idx < 0 {
		return false, &core.SourceNotFoundError{Name: old, Available: sources}
	}
	if old == name {
		logger.Debug("source name unchanged", "source", name)
		return false, nil
	}

	if err := writeRow(ctx, store, h, Field, "NAME", idx, name); err != nil {
		return false, err
	}
	logger.Info("source renamed", "old", old, "new", name, "field_id", idx)
	return true, nil
}
