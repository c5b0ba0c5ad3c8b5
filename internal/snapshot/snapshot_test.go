package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvbalancer/internal/balancer"
	"kvbalancer/internal/hashing"
	"kvbalancer/internal/request"
)

func TestTake(t *testing.T) {
	b := balancer.New(balancer.Options{EnableVNodes: true})
	defer b.Close()
	require.NoError(t, b.AddServer(1, 2))
	require.NoError(t, b.AddServer(2, 3))
	_, err := b.ForwardRequest(request.Edit("doc1", []byte("v1")))
	require.NoError(t, err)

	s := Take(b)

	servers := s.GetFields()["servers"].GetListValue().GetValues()
	require.Len(t, servers, 2)
	first := servers[0].GetStructValue().GetFields()
	assert.Equal(t, float64(1), first["id"].GetNumberValue())
	assert.Equal(t, float64(2), first["cache_capacity"].GetNumberValue())
	assert.Len(t, first["positions"].GetListValue().GetValues(), 3)

	ring := s.GetFields()["ring"].GetListValue().GetValues()
	require.Len(t, ring, 6)
	prev := -1.0
	primaries := 0
	for _, v := range ring {
		f := v.GetStructValue().GetFields()
		pos := f["position"].GetNumberValue()
		assert.Greater(t, pos, prev, "ring entries are ordered by position")
		prev = pos
		if f["primary"].GetBoolValue() {
			primaries++
		}
	}
	assert.Equal(t, 2, primaries)
}

func TestMarshal(t *testing.T) {
	s := Build(
		[]balancer.ServerInfo{{ID: 1, Positions: []uint32{hashing.Mix32{}.HashID(1)}, StoreKeys: 4, CacheCap: 2}},
		[]balancer.Placement{{Position: hashing.Mix32{}.HashID(1), Label: 1, ServerID: 1, Primary: true}},
	)

	data, err := Marshal(s)
	require.NoError(t, err)

	var decoded struct {
		Servers []struct {
			ID        float64   `json:"id"`
			StoreKeys float64   `json:"store_keys"`
			Positions []float64 `json:"positions"`
		} `json:"servers"`
		Ring []struct {
			Position float64 `json:"position"`
			Primary  bool    `json:"primary"`
		} `json:"ring"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Servers, 1)
	assert.Equal(t, float64(4), decoded.Servers[0].StoreKeys)
	assert.Equal(t, []float64{824515495}, decoded.Servers[0].Positions)
	require.Len(t, decoded.Ring, 1)
	assert.True(t, decoded.Ring[0].Primary)
}

func TestBuild_Empty(t *testing.T) {
	s := Build(nil, nil)
	assert.Empty(t, s.GetFields()["servers"].GetListValue().GetValues())
	assert.Empty(t, s.GetFields()["ring"].GetListValue().GetValues())
}
