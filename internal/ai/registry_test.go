package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()

	w, err := r.ContextWindow("gpt-4o")
	require.NoError(t, err)
	require.Equal(t, 128000, w)

	m, err := r.Lookup("text-embedding-3-small")
	require.NoError(t, err)
	require.Equal(t, KindEmbedding, m.Kind)
	require.Equal(t, 1536, m.Dimensions)
	require.Equal(t, 8191, m.ContextWindow)

	_, err = r.Lookup("gpt-imaginary")
	require.Error(t, err)
}

func TestRegistryRegisterFillsAzureDefaults(t *testing.T) {
	r := NewRegistry()
	r.Register(ModelConfig{Name: "gpt-4o-tutor", Kind: KindChat, ContextWindow: 128000})

	m, err := r.Lookup("gpt-4o-tutor")
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-tutor", m.AzureDeployment)
	require.NotEmpty(t, m.APIVersion)
	require.Contains(t, r.Names(), "gpt-4o-tutor")
}
