package root_test

import (
	"testing"

	"github.com/Wimboro/gmail-wa/cmd/root"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Structure(t *testing.T) {
	assert.Equal(t, "gmail-wa", root.Cmd.Use)
	assert.Contains(t, root.Cmd.Short, "Gmail")
	assert.Contains(t, root.Cmd.Long, "WhatsApp")
	assert.NotNil(t, root.Cmd.PersistentPreRunE)
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	root.Init()

	flag := root.Cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}
