package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexforge/tankbot/internal/config"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestConnectDisabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestConnectFallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx", "backup.lp.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "tankbot",
	}, zerolog.Nop(), path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)
	assert.NotNil(t, m.BackupWriter)
	require.NoError(t, m.Close())
}

func TestBackupReceivesPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), path)
	require.NoError(t, m.OpenBackup())
	require.NoError(t, m.OpenBackup(), "second open is a no-op")

	at := time.Unix(1700000000, 0)
	target := hex.Hex{Q: 1, R: -1, S: 0}
	require.NoError(t, m.WritePoint(BucketMatches, TurnPoint("s1", core.TurnRecord{Turn: 3, Owner: 2, Reconciled: 1, Time: at})))
	require.NoError(t, m.WritePoint(BucketMatches, ActionPoint("s1", core.ActionRecord{Turn: 3, PlayerID: 2, Kind: core.ActionShoot, Target: &target, Affected: []int{4}, Time: at})))
	require.NoError(t, m.WritePoint(BucketPerformance, StatusPoint("s1", 3, 2, 10, 2048)))
	require.NoError(t, m.Close())
	assert.NoError(t, m.Close())

	lines := readBackup(t, path)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "turn,owner=2,session=s1 "), lines[0])
	assert.Contains(t, lines[0], "reconciled=1i")
	assert.True(t, strings.HasPrefix(lines[1], "action,kind=shoot,player=2,session=s1 "), lines[1])
	assert.Contains(t, lines[1], "affected=1i")
	assert.True(t, strings.HasPrefix(lines[2], "status,session=s1 "), lines[2])
}

func TestWritePointWithoutSink(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	err := m.WritePoint(BucketMatches, StatusPoint("s", 0, 0, 1, 1))
	assert.Error(t, err)
	assert.Error(t, m.OpenBackup())
}
