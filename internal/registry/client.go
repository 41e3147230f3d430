package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/docker/go-connections/tlsconfig"
	"github.com/opencontainers/go-digest"
	"golang.org/x/time/rate"

	"github.com/bsamaha/docker-registry/internal/common"
	"github.com/bsamaha/docker-registry/pkg/logger"
	"github.com/bsamaha/docker-registry/pkg/manifest"
	"github.com/bsamaha/docker-registry/pkg/validation"
)

// maxDiagnosticBody caps how much of an error response body is kept for
// operator diagnostics.
const maxDiagnosticBody = 2048

// Client talks to a single registry endpoint. It keeps no state between
// calls and never retries: one request per operation, errors classified
// for the caller to act on.
type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client from the registry section of the config. The
// CA certificate, when set, becomes the only trust anchor for the
// connection.
func NewClient(cfg *common.RegistryConfig) (*Client, error) {
	tlsCfg, err := tlsconfig.Client(tlsconfig.Options{
		CAFile:             cfg.CACert,
		InsecureSkipVerify: cfg.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build TLS configuration: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg

	c := &Client{
		baseURL: cfg.BaseURL(),
		httpc:   &http.Client{Transport: transport},
	}
	if cfg.RequestRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestRate), cfg.RequestRate)
	}
	return c, nil
}

// BaseURL returns the registry API endpoint this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, op, method, path, accept string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindUnknown, Op: op, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, &Error{Kind: KindUsage, Op: op, Err: err}
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, classifyTransportError(op, err)
	}
	return resp, nil
}

func unexpectedStatus(op string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticBody))
	detail := "unexpected status " + resp.Status
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		detail += ": " + trimmed
	}
	return &Error{Kind: KindUnknown, Op: op, Detail: detail}
}

// catalogResponse mirrors GET /v2/_catalog
type catalogResponse struct {
	Repositories []string `json:"repositories"`
}

// tagsResponse mirrors GET /v2/{repo}/tags/list. Tags is null when the
// repository exists but holds no tags.
type tagsResponse struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// ListRepositories fetches the full catalog in a single request
func (c *Client) ListRepositories(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, "catalog", http.MethodGet, "/v2/_catalog", "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("catalog", resp)
	}

	var payload catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	logger.Debug("Fetched catalog", "repositories", len(payload.Repositories))
	return payload.Repositories, nil
}

// ListTags returns the tags of a repository. An existing repository with
// no tags yields an empty slice; an absent repository yields KindNotFound.
func (c *Client) ListTags(ctx context.Context, repo string) ([]string, error) {
	if err := ValidateRepository(repo); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "list-tags", http.MethodGet, "/v2/"+repo+"/tags/list", "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{Kind: KindNotFound, Op: "list-tags", Detail: repo}
	case resp.StatusCode != http.StatusOK:
		return nil, unexpectedStatus("list-tags", resp)
	}

	var payload tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode tags response: %w", err)
	}

	logger.Debug("Fetched tags", "repository", repo, "tags", len(payload.Tags))
	if payload.Tags == nil {
		return []string{}, nil
	}
	return payload.Tags, nil
}

// ResolveDigest resolves a tag to its manifest digest by reading the
// content-digest header of a manifest HEAD request. Registries report the
// digest of whatever representation the Accept header negotiated, so the
// preference order in manifest.AcceptHeader is part of the contract.
func (c *Client) ResolveDigest(ctx context.Context, repo, tag string) (digest.Digest, error) {
	if err := ValidateReference(repo, tag); err != nil {
		return "", err
	}

	resp, err := c.do(ctx, "resolve-digest", http.MethodHead, "/v2/"+repo+"/manifests/"+tag, manifest.AcceptHeader())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", &Error{Kind: KindNotFound, Op: "resolve-digest", Detail: repo + ":" + tag}
	case resp.StatusCode != http.StatusOK:
		return "", unexpectedStatus("resolve-digest", resp)
	}

	raw := resp.Header.Get("Docker-Content-Digest")
	if raw == "" {
		// Some registry implementations use the bare header name
		raw = resp.Header.Get("Content-Digest")
	}
	if raw == "" {
		return "", &Error{
			Kind:   KindDigestNotFound,
			Op:     "resolve-digest",
			Detail: fmt.Sprintf("no content-digest header for %s:%s", repo, tag),
		}
	}

	dgst, err := digest.Parse(raw)
	if err != nil {
		return "", &Error{Kind: KindDigestNotFound, Op: "resolve-digest", Detail: raw, Err: err}
	}

	logger.Debug("Resolved digest", "repository", repo, "tag", tag, "digest", dgst.String())
	return dgst, nil
}

// GetManifest fetches a manifest document by tag or digest reference.
// When the response carries no content-digest header the digest is
// computed from the body instead.
func (c *Client) GetManifest(ctx context.Context, repo, ref string) (*manifest.Envelope, error) {
	if err := ValidateReference(repo, ref); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "get-manifest", http.MethodGet, "/v2/"+repo+"/manifests/"+ref, manifest.AcceptHeader())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{Kind: KindNotFound, Op: "get-manifest", Detail: repo + ":" + ref}
	case resp.StatusCode != http.StatusOK:
		return nil, unexpectedStatus("get-manifest", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest body: %w", err)
	}

	env := &manifest.Envelope{
		MediaType: resp.Header.Get("Content-Type"),
		Body:      body,
	}
	if raw := resp.Header.Get("Docker-Content-Digest"); raw != "" {
		if dgst, parseErr := digest.Parse(raw); parseErr == nil {
			env.Digest = dgst
		}
	}
	if env.Digest == "" {
		env.Digest = digest.FromBytes(body)
	}
	return env, nil
}

// DeleteManifest deletes a manifest by digest. Success requires a 2xx
// status and an empty body; anything else is surfaced as a rejection with
// the body kept for diagnostics.
func (c *Client) DeleteManifest(ctx context.Context, repo string, dgst digest.Digest) error {
	if err := ValidateRepository(repo); err != nil {
		return err
	}
	if err := dgst.Validate(); err != nil {
		return &Error{Kind: KindUsage, Op: "delete-manifest", Detail: dgst.String(), Err: err}
	}

	resp, err := c.do(ctx, "delete-manifest", http.MethodDelete, "/v2/"+repo+"/manifests/"+dgst.String(), "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticBody))
	trimmed := strings.TrimSpace(string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 || trimmed != "" {
		detail := "status " + resp.Status
		if trimmed != "" {
			detail += ": " + trimmed
		}
		return &Error{Kind: KindDeleteRejected, Op: "delete-manifest", Detail: detail}
	}

	logger.Debug("Deleted manifest", "repository", repo, "digest", dgst.String())
	return nil
}

// Ping checks that the registry answers its version endpoint. A 401 still
// counts as alive, it just means the registry wants credentials.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, "ping", http.MethodGet, "/v2/", "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusUnauthorized {
		return nil
	}
	return unexpectedStatus("ping", resp)
}

// ValidateRepository checks that name is a well-formed repository path.
// Validation failures are usage errors and happen before any network
// activity.
func ValidateRepository(name string) error {
	if err := validation.ValidateRepositoryName(name); err != nil {
		return &Error{Kind: KindUsage, Op: "validate", Detail: name, Err: err}
	}
	return nil
}

// ValidateReference checks a repository plus tag-or-digest reference.
func ValidateReference(repo, ref string) error {
	if err := ValidateRepository(repo); err != nil {
		return err
	}
	if err := validation.ValidateReference(ref); err != nil {
		return &Error{Kind: KindUsage, Op: "validate", Detail: ref, Err: err}
	}
	return nil
}
