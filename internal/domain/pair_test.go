package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Pair
		wantErr bool
	}{
		{name: "lowercase", in: "btc_jpy", want: Pair{Base: "btc", Quote: "jpy"}},
		{name: "uppercase normalized", in: "ETH_JPY", want: Pair{Base: "eth", Quote: "jpy"}},
		{name: "surrounding spaces", in: " xrp_jpy ", want: Pair{Base: "xrp", Quote: "jpy"}},
		{name: "missing quote", in: "btc_", wantErr: true},
		{name: "missing separator", in: "btcjpy", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePair(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPairString(t *testing.T) {
	p := Pair{Base: "btc", Quote: "jpy"}
	assert.Equal(t, "btc_jpy", p.String())
}

func TestSpecRegistryGet(t *testing.T) {
	registry := NewSpecRegistry(DefaultSpecs()...)

	spec, err := registry.Get(Pair{Base: "btc", Quote: "jpy"})
	require.NoError(t, err)
	assert.Equal(t, 0.0001, spec.MinSize)

	_, err = registry.Get(Pair{Base: "doge", Quote: "jpy"})
	assert.Error(t, err)
}

func TestSpecRegistryRegisterReplaces(t *testing.T) {
	btc := Pair{Base: "btc", Quote: "jpy"}
	registry := NewSpecRegistry(DefaultSpecs()...)

	registry.Register(PairSpec{Pair: btc, MinSize: 0.001, SizeStep: 0.001})

	spec, err := registry.Get(btc)
	require.NoError(t, err)
	assert.Equal(t, 0.001, spec.MinSize)
	assert.True(t, registry.Contains(btc))
}
