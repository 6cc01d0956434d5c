package cli

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithSpinnerQuiet(t *testing.T) {
	ran := false
	err := RunWithSpinner(true, "working", func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRunWithSpinnerPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	err := RunWithSpinner(true, "working", func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestOutputFlagsRenderer(t *testing.T) {
	cmd := &cobra.Command{Use: "list"}
	var flags OutputFlags
	RegisterOutputFlags(cmd, &flags)

	require.NoError(t, cmd.Flags().Parse(nil))
	assert.Equal(t, "table", flags.Format)

	renderer, err := flags.Renderer(nil)
	require.NoError(t, err)
	assert.NotNil(t, renderer)

	flags.Format = "csv"
	_, err = flags.Renderer(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
