package manifest

import (
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `{
  "schemaVersion": 2,
  "mediaType": "application/vnd.oci.image.manifest.v1+json",
  "config": {
    "mediaType": "application/vnd.oci.image.config.v1+json",
    "digest": "sha256:2f8a9c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b",
    "size": 1469
  },
  "layers": [
    {
      "mediaType": "application/vnd.oci.image.layer.v1.tar+gzip",
      "digest": "sha256:3b2a1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0f9a8b7c6d5e4f3a2b",
      "size": 31357624
    },
    {
      "mediaType": "application/vnd.oci.image.layer.v1.tar+gzip",
      "digest": "sha256:4c3b2a1d0e9f8a7b6c5d4e3f2a1b0c9d8e7f6a5b4c3d2e1f0a9b8c7d6e5f4a3b",
      "size": 527
    }
  ],
  "annotations": {
    "org.opencontainers.image.source": "https://github.com/bsamaha/docker-registry"
  }
}`

const sampleIndex = `{
  "schemaVersion": 2,
  "mediaType": "application/vnd.oci.image.index.v1+json",
  "manifests": [
    {
      "mediaType": "application/vnd.oci.image.manifest.v1+json",
      "digest": "sha256:5d4c3b2a1e0f9a8b7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b",
      "size": 1152,
      "platform": {"architecture": "amd64", "os": "linux"}
    },
    {
      "mediaType": "application/vnd.oci.image.manifest.v1+json",
      "digest": "sha256:6e5d4c3b2a1f0a9b8c7d6e5f4a3b2c1d0e9f8a7b6c5d4e3f2a1b0c9d8e7f6a5b",
      "size": 1152,
      "platform": {"architecture": "arm64", "os": "linux"}
    }
  ]
}`

func TestEnvelope_Manifest(t *testing.T) {
	env := &Envelope{
		MediaType: "application/vnd.oci.image.manifest.v1+json",
		Digest:    digest.Digest("sha256:1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b"),
		Body:      []byte(sampleManifest),
	}

	assert.False(t, env.IsIndex())

	m, err := env.Manifest()
	require.NoError(t, err)
	assert.Equal(t, 2, m.SchemaVersion)
	assert.Len(t, m.Layers, 2)
	assert.Equal(t, int64(1469), m.Config.Size)
}

func TestEnvelope_Index(t *testing.T) {
	env := &Envelope{
		MediaType: "application/vnd.oci.image.index.v1+json",
		Body:      []byte(sampleIndex),
	}

	assert.True(t, env.IsIndex())

	idx, err := env.Index()
	require.NoError(t, err)
	require.Len(t, idx.Manifests, 2)
	assert.Equal(t, "linux/amd64", idx.Manifests[0].Platform.String())
	assert.Equal(t, "linux/arm64", idx.Manifests[1].Platform.String())
}

func TestEnvelope_Annotations(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		body      string
		want      map[string]string
		wantErr   bool
	}{
		{
			name:      "OCI manifest with annotations",
			mediaType: "application/vnd.oci.image.manifest.v1+json",
			body:      sampleManifest,
			want: map[string]string{
				"org.opencontainers.image.source": "https://github.com/bsamaha/docker-registry",
			},
		},
		{
			name:      "docker v2 manifest has none",
			mediaType: "application/vnd.docker.distribution.manifest.v2+json",
			body:      `{"schemaVersion":2}`,
			want:      map[string]string{},
		},
		{
			name:      "index without annotations",
			mediaType: "application/vnd.oci.image.index.v1+json",
			body:      sampleIndex,
			want:      map[string]string{},
		},
		{
			name:      "unknown media type",
			mediaType: "application/octet-stream",
			body:      `{}`,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &Envelope{MediaType: tt.mediaType, Body: []byte(tt.body)}
			got, err := env.Annotations()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvelope_ContentSize(t *testing.T) {
	manifestEnv := &Envelope{
		MediaType: "application/vnd.oci.image.manifest.v1+json",
		Body:      []byte(sampleManifest),
	}
	size, err := manifestEnv.ContentSize()
	require.NoError(t, err)
	assert.Equal(t, int64(1469+31357624+527), size)

	indexEnv := &Envelope{
		MediaType: "application/vnd.oci.image.index.v1+json",
		Body:      []byte(sampleIndex),
	}
	size, err = indexEnv.ContentSize()
	require.NoError(t, err)
	assert.Equal(t, int64(2304), size)
}
