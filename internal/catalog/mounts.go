package catalog

import (
	"context"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Mount types written by the fix-ups. tConvert maps them to the FITS
// MNTSTA codes 4 (Nasmyth right-handed) and 3 (X-Y east-west).
const (
	MountNasmythRH = "ALT-AZ-NASMYTH-RH"
	MountXYEW      = "X-YEW"
)

var (
	yebesNames  = []string{"Ys", "YS", "YEBES40M"}
	hobartNames = []string{"HOBART", "HO", "HOB_DBBC"}
)

// Mount is one ANTENNA row's mount description.
type Mount struct {
	ID      int    `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Station string `json:"station" yaml:"station"`
	Mount   string `json:"mount" yaml:"mount"`
}

// Mounts lists every antenna with its mount type.
func Mounts(ctx context.Context, store adapter.Store, h adapter.Handle) ([]Mount, error) {
	sub, err := OpenSubtable(ctx, store, h, Antenna, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sub.Close() }()

	names, err := readColumn[string](ctx, sub, "NAME")
	if err != nil {
		return nil, err
	}
	stations, err := readColumn[string](ctx, sub, "STATION")
	if err != nil {
		return nil, err
	}
	mounts, err := readColumn[string](ctx, sub, "MOUNT")
	if err != nil {
		return nil, err
	}

	out := make([]Mount, len(names.Data))
	for i := range out {
		out[i] = Mount{ID: i, Name: names.Data[i], Station: stations.Data[i], Mount: mounts.Data[i]}
	}
	return out, nil
}

// SetMount sets the mount type of the antenna whose station or name is
// antenna. Exact matches win over case-insensitive ones.
func SetMount(ctx context.Context, store adapter.Store, h adapter.Handle, antenna, mount string, logger *slog.Logger) (Mount, error) {
	mounts, err := Mounts(ctx, store, h)
	if err != nil {
		return Mount{}, err
	}
	i := findMount(mounts, antenna)
	if i < 0 {
		return Mount{}, &core.UnknownAntennaError{Name: antenna, Available: stationNames(mounts)}
	}
	return setMount(ctx, store, h, mounts[i], mount, logger)
}

// FixYebesMount sets the Yebes 40 m antenna (Ys, YS or YEBES40M) to a
// right-handed Nasmyth mount.
func FixYebesMount(ctx context.Context, store adapter.Store, h adapter.Handle, logger *slog.Logger) ([]Mount, error) {
	return fixMounts(ctx, store, h, yebesNames, MountNasmythRH, logger)
}

// FixHobartMount sets the Hobart antenna (HOBART, HO or HOB_DBBC) to the
// X-YEW spelling tConvert expects.
func FixHobartMount(ctx context.Context, store adapter.Store, h adapter.Handle, logger *slog.Logger) ([]Mount, error) {
	return fixMounts(ctx, store, h, hobartNames, MountXYEW, logger)
}

func fixMounts(ctx context.Context, store adapter.Store, h adapter.Handle, candidates []string, mount string, logger *slog.Logger) ([]Mount, error) {
	mounts, err := Mounts(ctx, store, h)
	if err != nil {
		return nil, err
	}

	var fixed []Mount
	for _, m := range mounts {
		if !slices.Contains(candidates, m.Name) && !slices.Contains(candidates, m.Station) {
			continue
		}
		updated, err := setMount(ctx, store, h, m, mount, logger)
		if err != nil {
			return fixed, err
		}
		fixed = append(fixed, updated)
	}
	if len(fixed) == 0 {
		return nil, &core.UnknownAntennaError{Name: candidates[0], Available: stationNames(mounts)}
	}
	return fixed, nil
}

func setMount(ctx context.Context, store adapter.Store, h adapter.Handle, m Mount, mount string, logger *slog.Logger) (Mount, error) {
	if err := writeRow(ctx, store, h, Antenna, "MOUNT", m.ID, mount); err != nil {
		return m, err
	}
	orDiscard(logger).Info("mount updated", "antenna", m.Name, "station", m.Station, "old", m.Mount, "new", mount)
	m.Mount = mount
	return m, nil
}

func findMount(mounts []Mount, antenna string) int {
	if i := slices.IndexFunc(mounts, func(m Mount) bool { return m.Station == antenna || m.Name == antenna }); i >= 0 {
		return i
	}
	catalog := core.NewAntennaCatalog(stationNames(mounts))
	if id, err := catalog.ID(antenna); err == nil {
		return id
	}
	catalog = core.NewAntennaCatalog(antennaNames(mounts))
	if id, err := catalog.ID(antenna); err == nil {
		return id
	}
	return -1
}

func stationNames(mounts []Mount) []string {
	out := make([]string, len(mounts))
	for i, m := range mounts {
		out[i] = m.Station
	}
	return out
}

func antennaNames(mounts []Mount) []string {
	out := make([]string, len(mounts))
	for i, m := range mounts {
		out[i] = m.Name
	}
	return out
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
