package main

import (
	"testing"

	"vurc_dashboard/ingestion/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{
		RobotEventsToken: "token",
		ProgramID:        4,
		SeasonYear:       2025,
		PerPage:          250,
		EloKFactor:       32,
		SoSMin:           0.3,
		SoSMax:           0.8,
		OutputCSV:        "dashboard_data.csv",
	}
}

func TestApplyFlags(t *testing.T) {
	require.NoError(t, rootCmd.Flags().Set("season-id", "190"))
	require.NoError(t, rootCmd.Flags().Set("output", "public/out.csv"))

	cfg := baseConfig()
	require.NoError(t, applyFlags(rootCmd, cfg))

	assert.Equal(t, 190, cfg.SeasonID)
	assert.Equal(t, 2025, cfg.SeasonYear, "Unset flags leave configuration alone")
	assert.Equal(t, "public/out.csv", cfg.OutputCSV)

	require.NoError(t, rootCmd.Flags().Set("output", ""))
	assert.Error(t, applyFlags(rootCmd, baseConfig()), "An empty output path is rejected")
}
