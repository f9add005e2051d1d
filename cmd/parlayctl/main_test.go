package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-edge/internal/config"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/parlay"
	"github.com/yourusername/parlay-edge/internal/report"
)

func setupTestConfig(t *testing.T) {
	t.Helper()
	loaded, err := config.LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg = loaded
	log = logrus.New()
	log.SetOutput(io.Discard)
}

func TestSplitBooks(t *testing.T) {
	assert.Nil(t, splitBooks(""))
	assert.Equal(t, []string{"draftkings", "FanDuel"}, splitBooks(" draftkings, ,FanDuel "))
}

func TestBuildEngineConfigOverrides(t *testing.T) {
	setupTestConfig(t)
	defer func() { buildTopN, buildMinEdge, buildMethod = 0, -1, "" }()

	base, err := buildEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, base.TopN)
	assert.Equal(t, 0.03, base.MinEdge)

	buildTopN, buildMinEdge, buildMethod = 5, 0.05, parlay.JointMonteCarlo
	overridden, err := buildEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, overridden.TopN)
	assert.Equal(t, 0.05, overridden.MinEdge)
	assert.Equal(t, parlay.JointMonteCarlo, overridden.JointMethod)

	buildMethod = "copula"
	_, err = buildEngineConfig()
	assert.Error(t, err)
}

func TestBuildFromFiles(t *testing.T) {
	setupTestConfig(t)
	buildPropsFile = filepath.Join("testdata", "props.json")
	buildProjectionsFile = filepath.Join("testdata", "projections.json")
	buildFormat = "json"
	defer func() { buildPropsFile, buildProjectionsFile, buildFormat = "", "", "console" }()

	var out bytes.Buffer
	buildCmd.SetOut(&out)
	require.NoError(t, buildCmd.RunE(buildCmd, nil))

	var summary report.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, "ok", summary.Status)
	assert.NotEmpty(t, summary.Parlays)
}

func TestScoreFromFiles(t *testing.T) {
	setupTestConfig(t)
	scorePropsFile = filepath.Join("testdata", "props.json")
	scoreProjectionsFile = filepath.Join("testdata", "projections.json")
	scoreJSON = true
	defer func() { scorePropsFile, scoreProjectionsFile, scoreJSON = "", "", false }()

	var out bytes.Buffer
	scoreCmd.SetOut(&out)
	require.NoError(t, scoreCmd.RunE(scoreCmd, nil))

	var legs []models.Leg
	require.NoError(t, json.Unmarshal(out.Bytes(), &legs))
	assert.Len(t, legs, 5)
}
