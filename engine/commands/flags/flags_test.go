package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommon(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "test"}
	Common(cmd)

	c := cmd.Flags().Lookup("config")
	require.NotNil(t, c)
	assert.Equal(t, "c", c.Shorthand)
	assert.Empty(t, c.DefValue)

	l := cmd.Flags().Lookup("log-level")
	require.NotNil(t, l)
	assert.Equal(t, "info", l.DefValue)

	r := cmd.Flags().Lookup("report")
	require.NotNil(t, r)
	assert.Empty(t, r.DefValue)
}

func TestNode(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := &cobra.Command{Use: "test"}
		Node(cmd, "http://127.0.0.1:8545")

		assert.Equal(t, "http://127.0.0.1:8545", cmd.Flags().Lookup("url").DefValue)
		assert.Equal(t, "true", cmd.Flags().Lookup("poa").DefValue)
		assert.Equal(t, "0s", cmd.Flags().Lookup("wait-timeout").DefValue)
	})

	t.Run("value retrieval", func(t *testing.T) {
		t.Parallel()

		cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
		Node(cmd, "")

		cmd.SetArgs([]string{"--url", "ws://node:8546", "--poa=false"})
		require.NoError(t, cmd.Execute())

		assert.Equal(t, "ws://node:8546", MustString(cmd.Flags().GetString("url")))
		assert.False(t, MustBool(cmd.Flags().GetBool("poa")))
	})
}

func TestSigner(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "test"}
	Signer(cmd, SignerDefaults{Strategy: "node", Owner: "0x01"})

	assert.Equal(t, "node", cmd.Flags().Lookup("signer").DefValue)
	assert.Equal(t, "0x01", cmd.Flags().Lookup("owner").DefValue)
	assert.Empty(t, cmd.Flags().Lookup("key").DefValue)
}

func TestGas(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	Gas(cmd, 3_000_000)
	assert.Equal(t, "3000000", cmd.Flags().Lookup("gas").DefValue)

	cmd.SetArgs([]string{"--gas", "42"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, uint64(42), MustUint64(cmd.Flags().GetUint64("gas")))
}

func TestConfigKeys(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "test"}
	Common(cmd)
	Node(cmd, "")
	cmd.Flags().String("unrelated", "", "")

	assert.Equal(t, map[string]string{
		"node.url":          "url",
		"node.poa":          "poa",
		"node.wait_timeout": "wait-timeout",
		"log.level":         "log-level",
		"report":            "report",
	}, ConfigKeys(cmd.Flags()))
}
