package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viant/cwrapfinder/runner"
	"github.com/viant/cwrapfinder/wrapper"
)

func TestParsePathMapsSplitsOldAndNewPrefix(t *testing.T) {
	maps, err := parsePathMaps([]string{"/old/checkout=/new/checkout"})
	require.NoError(t, err)
	require.Len(t, maps, 1)
	require.Equal(t, "/old/checkout", maps[0].OldPrefix)
	require.Equal(t, "/new/checkout", maps[0].NewPrefix)
}

func TestParsePathMapsRejectsMalformedEntry(t *testing.T) {
	_, err := parsePathMaps([]string{"no-equals-sign"})
	require.Error(t, err)
}

func TestBuildConfigResolvesModeAndThinAliasPolicy(t *testing.T) {
	cfg, err := buildConfig(finderFlags{
		compileCommands: "compile_commands.json",
		yaml:            "catalog.yaml",
		mode:            "perpath_relaxed",
		treatThinAlias:  "allow-1-hop",
	})
	require.NoError(t, err)
	require.Equal(t, runner.ModeRelaxed, cfg.Mode)
	require.Equal(t, wrapper.PolicyAllow1Hop, cfg.ThinAliasPolicy)
	require.Equal(t, "compile_commands.json", cfg.CompileCommandsPath)
}

func TestResolveOutPathAppliesOutDirOverOutBasename(t *testing.T) {
	require.Equal(t, "wrappers.csv", resolveOutPath("wrappers.csv", "", "csv"))
	require.Equal(t, "out/wrappers.csv", resolveOutPath("wrappers.csv", "out", "csv"))
	require.Equal(t, "out/wrappers.csv", resolveOutPath("-", "out", "csv"))
}
