package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Envelope carries a manifest document exactly as the registry returned it,
// together with the negotiated media type and the content digest reported
// in the response headers.
type Envelope struct {
	MediaType string
	Digest    digest.Digest
	Body      []byte
}

// IsIndex reports whether the envelope holds a multi-image index
func (e *Envelope) IsIndex() bool {
	switch e.MediaType {
	case ocispec.MediaTypeImageIndex, MediaTypeDockerManifestList:
		return true
	}
	return false
}

// Manifest decodes the body as a single-image manifest
func (e *Envelope) Manifest() (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(e.Body, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Index decodes the body as a multi-image index
func (e *Envelope) Index() (*Index, error) {
	var idx Index
	if err := json.Unmarshal(e.Body, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse manifest index: %w", err)
	}
	return &idx, nil
}

// Annotations extracts manifest-level annotations from the document
func (e *Envelope) Annotations() (map[string]string, error) {
	switch e.MediaType {
	case ocispec.MediaTypeImageManifest:
		m, err := e.Manifest()
		if err != nil {
			return nil, err
		}
		if m.Annotations == nil {
			return map[string]string{}, nil
		}
		return m.Annotations, nil
	case MediaTypeDockerManifest:
		// Docker v2.2 manifests don't support annotations at manifest level
		return map[string]string{}, nil
	case ocispec.MediaTypeImageIndex, MediaTypeDockerManifestList:
		idx, err := e.Index()
		if err != nil {
			return nil, err
		}
		if idx.Annotations == nil {
			return map[string]string{}, nil
		}
		return idx.Annotations, nil
	default:
		return map[string]string{}, fmt.Errorf("unsupported manifest media type: %s", e.MediaType)
	}
}

// ContentSize sums the sizes declared in the document: config plus layers
// for a single-image manifest, manifest entries for an index. This is the
// manifest-declared footprint, not the deduplicated on-disk usage.
func (e *Envelope) ContentSize() (int64, error) {
	if e.IsIndex() {
		idx, err := e.Index()
		if err != nil {
			return 0, err
		}
		var total int64
		for _, d := range idx.Manifests {
			total += d.Size
		}
		return total, nil
	}

	m, err := e.Manifest()
	if err != nil {
		return 0, err
	}
	total := m.Config.Size
	for _, l := range m.Layers {
		total += l.Size
	}
	return total, nil
}
