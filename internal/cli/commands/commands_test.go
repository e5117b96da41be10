package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leapstack-labs/mstools/internal/cli/config"
	"github.com/leapstack-labs/mstools/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViewCommand(t *testing.T) {
	cmd := NewViewCommand()

	assert.Equal(t, "view <ms>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flag := cmd.Flags().Lookup("stats")
	require.NotNil(t, flag)
	assert.Equal(t, "s", flag.Shorthand)
}

func TestNewExportCommand(t *testing.T) {
	cmd := NewExportCommand()

	assert.Equal(t, "export <ms>", cmd.Use)
	for _, flag := range []string{"file", "stats"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history", cmd.Use)
	limit := cmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "20", limit.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("dataset"))
	assert.Error(t, cmd.Args(cmd, []string{"extra"}))
}

func TestOpenJournal_Disabled(t *testing.T) {
	cfg := *getConfig()
	cfg.Journal = ""
	_, err := openJournal(context.Background(), &cfg, nil)
	assert.ErrorIs(t, err, errJournalDisabled)
}

func TestNewRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	assert.Equal(t, "run", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	want := []string{
		"polswap", "copypol", "scale1bit", "invert_subband", "flag_weights",
		"expname", "srcname", "print_mounts", "modify_mounts", "ysfocus", "hofocus",
	}
	var got []string
	for _, c := range cmd.Commands() {
		got = append(got, c.Name())
	}
	assert.ElementsMatch(t, want, got)
}

func TestRunSubcommandFlags(t *testing.T) {
	tests := []struct {
		tool  string
		flags []string
	}{
		{"polswap", []string{"starttime", "endtime", "scan", "source", "per-station"}},
		{"copypol", []string{"starttime", "endtime", "scan"}},
		{"scale1bit", []string{"undo", "no-scale-weights", "source"}},
		{"invert_subband", []string{"starttime", "endtime"}},
		{"flag_weights", []string{"no-apply", "weight-reference", "antennas", "starttime"}},
	}

	run := NewRunCommand()
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			cmd, _, err := run.Find([]string{tt.tool})
			require.NoError(t, err)
			for _, flag := range tt.flags {
				assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}

	polswap, _, err := run.Find([]string{"polswap"})
	require.NoError(t, err)
	assert.Equal(t, "1", polswap.Flags().Lookup("starttime").Shorthand)
	assert.Equal(t, "2", polswap.Flags().Lookup("endtime").Shorthand)
}

func TestFlagUsage(t *testing.T) {
	scale, _, err := NewRunCommand().Find([]string{"scale1bit"})
	require.NoError(t, err)
	assert.Equal(t, "Leave WEIGHT and WEIGHT_SPECTRUM unchanged", scale.Flags().Lookup("no-scale-weights").Usage)

	synthCmd := newSynthCommand(&SynthOptions{})
	usage := synthCmd.Flags().Lookup("spectrum").Usage
	assert.Contains(t, usage, "WEIGHT_SPECTRUM")
	assert.Contains(t, usage, "SIGMA")
	assert.NotContains(t, usage, "instead of DATA")
}

func TestRunSubcommandArgs(t *testing.T) {
	tests := []struct {
		tool    string
		args    []string
		wantErr bool
	}{
		{"polswap", []string{"n24l1.ms"}, true},
		{"polswap", []string{"n24l1.ms", "EF", "WB"}, false},
		{"copypol", []string{"n24l1.ms", "EF"}, true},
		{"copypol", []string{"n24l1.ms", "EF", "R"}, false},
		{"scale1bit", []string{"n24l1.ms"}, false},
		{"flag_weights", []string{"n24l1.ms"}, true},
		{"srcname", []string{"n24l1.ms", "3C84"}, true},
		{"modify_mounts", []string{"n24l1.ms", "Ys", "ALT-AZ"}, false},
		{"ysfocus", []string{"n24l1.ms", "extra"}, true},
	}

	run := NewRunCommand()
	for _, tt := range tests {
		cmd, _, err := run.Find([]string{tt.tool})
		require.NoError(t, err)
		err = cmd.Args(cmd, tt.args)
		assert.Equal(t, tt.wantErr, err != nil, "%s %v", tt.tool, tt.args)
	}
}

func TestSelectionOptions(t *testing.T) {
	opts := &SelectionOptions{
		StartTime: "2024/03/01/12:00",
		EndTime:   "2024/061/13:30:15",
		Scan:      " No0002 ",
		Sources:   []string{"3C84"},
	}
	sel, err := opts.Selection([]string{"EF", "Wb"})
	require.NoError(t, err)

	assert.Equal(t, []string{"EF", "Wb"}, sel.Antennas)
	assert.Equal(t, "No0002", sel.Scan)
	assert.Equal(t, []string{"3C84"}, sel.Sources)
	require.NotNil(t, sel.Start)
	require.NotNil(t, sel.End)
	assert.Equal(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC), *sel.Start)
	assert.Equal(t, time.Date(2024, time.March, 1, 13, 30, 15, 0, time.UTC), *sel.End)

	sel, err = (&SelectionOptions{}).Selection(nil)
	require.NoError(t, err)
	assert.Nil(t, sel.Start)
	assert.Nil(t, sel.End)

	_, err = (&SelectionOptions{StartTime: "yesterday"}).Selection(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--starttime")
}

func TestSynthOptions(t *testing.T) {
	opts := &SynthOptions{}
	cmd := newSynthCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{
		"--antennas", "EF,Ys:YS:ALT-AZ-NASMYTH-RH,Mc:MC",
		"--pols", "XX,YY",
		"--recorded-1bit", "ys",
		"--start", "2024/03/02/08:00",
		"--integrations", "4",
	}))

	gen, err := opts.Options()
	require.NoError(t, err)

	require.Len(t, gen.Antennas, 3)
	assert.Equal(t, "EF", gen.Antennas[0].Station)
	assert.Equal(t, "ALT-AZ", gen.Antennas[0].Mount)
	assert.Equal(t, "ALT-AZ-NASMYTH-RH", gen.Antennas[1].Mount)
	assert.Equal(t, "MC", gen.Antennas[2].Station)
	assert.Equal(t, []core.Stokes{core.StokesXX, core.StokesYY}, gen.Polarizations)
	assert.Equal(t, []int{1}, gen.OneBit)
	assert.Equal(t, 4, gen.Integrations)
	assert.Equal(t, "EM001", gen.Project)
	assert.Equal(t, time.Date(2024, time.March, 2, 8, 0, 0, 0, time.UTC), gen.Start)
}

func TestSynthOptions_Invalid(t *testing.T) {
	base := func() *SynthOptions {
		return &SynthOptions{Polarizations: []string{"RR"}, Start: "2024/03/01/12:00"}
	}

	opts := base()
	opts.Antennas = []string{"EF:Ef:ALT-AZ:extra"}
	_, err := opts.Options()
	assert.Error(t, err)

	opts = base()
	opts.Polarizations = []string{"QQ"}
	_, err = opts.Options()
	assert.Error(t, err)

	opts = base()
	opts.Recorded1Bit = []string{"Mc"}
	_, err = opts.Options()
	assert.True(t, errors.Is(err, core.ErrUnknownAntenna))

	opts = base()
	opts.Start = "noon"
	_, err = opts.Options()
	assert.Error(t, err)
}

func TestGetConfig_Defaults(t *testing.T) {
	config.ResetConfig()

	cfg := getConfig()
	assert.Equal(t, "duckdb", cfg.Store.Type)
	assert.Equal(t, 100, cfg.ChunkSize)
	assert.Equal(t, "absolute", cfg.WeightReference)
	assert.Equal(t, config.DefaultOutput, cfg.Output)
	assert.True(t, cfg.Progress)
	assert.Equal(t, config.DefaultJournal, cfg.Journal)
}
