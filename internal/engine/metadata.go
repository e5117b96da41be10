package engine

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/leapstack-labs/mstools/internal/catalog"
	"github.com/leapstack-labs/mstools/pkg/core"
)

var errEmptyName = errors.New("new name must not be empty")

func validateProjectName(p Params) error {
	if strings.TrimSpace(p.Name) == "" {
		return errEmptyName
	}
	return nil
}

func validateSourceName(p Params) error {
	if strings.TrimSpace(p.Name) == "" {
		return errEmptyName
	}
	if strings.TrimSpace(p.OldName) == "" {
		return errors.New("source to rename must not be empty")
	}
	return nil
}

func runChangeProjectName(ctx context.Context, c *Call) (*Result, error) {
	res := &Result{DryRun: c.Exec.DryRun}
	if c.Exec.DryRun {
		res.Project = &catalog.ProjectRename{Old: c.Snapshot.Project(), New: c.Params.Name}
		return res, nil
	}
	rename, err := catalog.ChangeProjectName(ctx, c.Store, c.Handle, c.Params.Name, c.Logger)
	if err != nil {
		return nil, err
	}
	res.Project = &rename
	return res, nil
}

func runChangeSourceName(ctx context.Context, c *Call) (*Result, error) {
	old, name := c.Params.OldName, c.Params.Name
	res := &Result{DryRun: c.Exec.DryRun, Source: &SourceRename{Old: old, New: name}}

	if c.Exec.DryRun {
		sources := c.Snapshot.Sources()
		if !slices.Contains(sources, old) {
			return nil, &core.SourceNotFoundError{Name: old, Available: sources}
		}
		res.Source.Changed = old != name
		return res, nil
	}

	changed, err := catalog.ChangeSourceName(ctx, c.Store, c.Handle, old, name, c.Logger)
	if err != nil {
		return nil, err
	}
	res.Source.Changed = changed
	return res, nil
}
