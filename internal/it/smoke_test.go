package it

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvbalancer/internal/balancer"
	"kvbalancer/internal/command"
	"kvbalancer/internal/node"
	"kvbalancer/internal/request"
)

func newCluster(t *testing.T, opts balancer.Options) *Cluster {
	t.Helper()
	cluster, err := NewCluster(opts)
	require.NoError(t, err)
	t.Cleanup(cluster.Stop)
	return cluster
}

func TestSmoke_ScriptedScenarios(t *testing.T) {
	cluster := newCluster(t, balancer.Options{WritePolicy: node.WriteAround})

	out, err := cluster.Run(`
ADD_SERVER 1 2
EDIT doc1 "v1"
GET doc1
EDIT doc2 "v2"
GET doc2
EDIT doc3 "v3"
GET doc3
`)
	require.NoError(t, err)

	lines := make([]string, 0, len(out))
	for _, o := range out {
		require.NoError(t, o.Err, command.Format(o))
		lines = append(lines, command.Format(o))
	}
	assert.Equal(t, []string{
		"server 1 added with cache capacity 2",
		"[server 1] EDIT doc1: queued (depth 1)",
		`[server 1] GET doc1: MISS "v1"`,
		"[server 1] EDIT doc2: queued (depth 1)",
		`[server 1] GET doc2: MISS "v2"`,
		"[server 1] EDIT doc3: queued (depth 1)",
		`[server 1] GET doc3: EVICT doc1 "v3"`,
	}, lines)
}

func TestSmoke_LastWriteWins(t *testing.T) {
	cluster := newCluster(t, balancer.Options{})
	require.NoError(t, cluster.StartCluster(3, 4))

	first, err := cluster.Edit("doc-a", "one")
	require.NoError(t, err)
	second, err := cluster.Edit("doc-a", "two")
	require.NoError(t, err)
	assert.Equal(t, first.ServerID, second.ServerID)
	assert.Equal(t, request.Lazy(first.Result.QueueDepth+1), second.Result)

	resp, err := cluster.Get("doc-a")
	require.NoError(t, err)
	assert.Equal(t, "two", string(resp.Payload))
}

func TestSmoke_EditGetAcrossServers(t *testing.T) {
	for _, vnodes := range []bool{false, true} {
		t.Run(fmt.Sprintf("vnodes=%v", vnodes), func(t *testing.T) {
			cluster := newCluster(t, balancer.Options{EnableVNodes: vnodes, QueueCapacity: 16})
			require.NoError(t, cluster.StartCluster(4, 8))

			for i := 0; i < 200; i++ {
				_, err := cluster.Edit(fmt.Sprintf("%d-doc", i), fmt.Sprintf("value-%d", i))
				require.NoError(t, err)
			}

			served := make(map[uint32]int)
			for i := 0; i < 200; i++ {
				resp, err := cluster.Get(fmt.Sprintf("%d-doc", i))
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("value-%d", i), string(resp.Payload))
				served[resp.ServerID]++
			}
			assert.Greater(t, len(served), 1, "documents should spread over servers")

			total := 0
			for id := uint32(1); id <= 4; id++ {
				info, ok := cluster.GetNode(id)
				require.True(t, ok)
				assert.LessOrEqual(t, info.CacheKeys, info.CacheCap)
				total += info.StoreKeys
			}
			assert.Equal(t, 200, total, "every document is stored exactly once")
		})
	}
}

func TestSmoke_KillNode(t *testing.T) {
	cluster := newCluster(t, balancer.Options{EnableVNodes: true})
	require.NoError(t, cluster.StartCluster(3, 4))

	for i := 0; i < 100; i++ {
		_, err := cluster.Edit(fmt.Sprintf("%d-doc", i), "v")
		require.NoError(t, err)
	}

	require.NoError(t, cluster.KillNode(2))
	_, ok := cluster.GetNode(2)
	assert.False(t, ok)
	assert.Len(t, cluster.Balancer().Placements(), 6)

	for i := 0; i < 100; i++ {
		resp, err := cluster.Get(fmt.Sprintf("%d-doc", i))
		require.NoError(t, err)
		assert.NotEqual(t, uint32(2), resp.ServerID)
		assert.True(t, resp.Found, "%d-doc lost after kill", i)
	}

	assert.ErrorIs(t, cluster.KillNode(2), balancer.ErrServerNotFound)
}

func TestSmoke_RestartNode(t *testing.T) {
	cluster := newCluster(t, balancer.Options{})
	require.NoError(t, cluster.StartCluster(3, 4))

	for i := 0; i < 300; i++ {
		_, err := cluster.Edit(fmt.Sprintf("%d-doc", i), fmt.Sprintf("v%d", i))
		require.NoError(t, err)
	}

	require.NoError(t, cluster.RestartNode(2))

	info, ok := cluster.GetNode(2)
	require.True(t, ok)
	assert.Positive(t, info.StoreKeys, "documents migrate back to the restarted server")
	assert.Zero(t, info.CacheKeys)

	for i := 0; i < 300; i++ {
		resp, err := cluster.Get(fmt.Sprintf("%d-doc", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("v%d", i), string(resp.Payload))
	}

	assert.Error(t, cluster.RestartNode(9))
}

func TestSmoke_LogsTopologyChanges(t *testing.T) {
	cluster := newCluster(t, balancer.Options{})
	require.NoError(t, cluster.StartCluster(2, 2))
	require.NoError(t, cluster.KillNode(1))

	messages := make(map[string]int)
	for _, line := range cluster.Logs() {
		var event struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &event), line)
		messages[event.Message]++
	}
	assert.Equal(t, 2, messages["server added"])
	assert.Equal(t, 1, messages["server removed"])
}
