package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"localcode/internal/common/fsutil"
)

var sha256Re = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ProgressFunc receives cumulative bytes written and the expected total (-1 if unknown).
type ProgressFunc func(done, total int64)

// HubClient fetches files into a Hugging Face style cache rooted at
// <cacheDir>/hub, the layout the server container reads via HF_HOME.
type HubClient struct {
	root   string
	cfg    Config
	client *retryablehttp.Client
	// meta does not follow redirects so X-Repo-Commit and X-Linked-* survive.
	meta *retryablehttp.Client
}

// NewHubClient returns a client scoped to cacheDir.
func NewHubClient(cacheDir string, cfg Config) *HubClient {
	cfg = cfg.withDefaults()
	return &HubClient{
		root:   filepath.Join(cacheDir, "hub"),
		cfg:    cfg,
		client: newRetryClient(cfg, true),
		meta:   newRetryClient(cfg, false),
	}
}

func newRetryClient(cfg Config, followRedirects bool) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	if !followRedirects {
		rc.HTTPClient.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	rc.Logger = stdlog.New(io.Discard, "", stdlog.LstdFlags)
	log := cfg.Logger
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		log.Trace().Str(req.Method, req.URL.String()).Int("attempt", attempt).Msg("hub request")
	}
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if resp == nil {
			return true, err
		}
		// auth and not-found errors are final
		return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests, nil
	}
	return rc
}

// RepoDir is the cache directory for repo ("org/name" -> hub/models--org--name).
func (h *HubClient) RepoDir(repo string) string {
	return filepath.Join(h.root, "models--"+strings.ReplaceAll(repo, "/", "--"))
}

// Lookup returns the snapshot path of file when it is already cached.
func (h *HubClient) Lookup(repo, file string) (string, bool) {
	dir := h.RepoDir(repo)
	rev := h.cfg.Revision
	if b, err := os.ReadFile(filepath.Join(dir, "refs", rev)); err == nil {
		if c := strings.TrimSpace(string(b)); c != "" {
			rev = c
		}
	}
	p := filepath.Join(dir, "snapshots", rev, filepath.FromSlash(file))
	if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
		return p, true
	}
	return "", false
}

type fileMeta struct {
	commit string
	etag   string
	size   int64
}

// Fetch returns the cached path of file, downloading and verifying it first
// when it is not present. A cached file causes no network traffic.
func (h *HubClient) Fetch(ctx context.Context, repo, file string, onProgress ProgressFunc) (string, error) {
	if p, ok := h.Lookup(repo, file); ok {
		return p, nil
	}
	u := h.fileURL(repo, file)
	meta, err := h.head(ctx, u)
	if err != nil {
		return "", err
	}
	commit := meta.commit
	if commit == "" {
		commit = h.cfg.Revision
	}
	dir := h.RepoDir(repo)
	blobs := filepath.Join(dir, "blobs")
	if err := os.MkdirAll(blobs, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", blobs, err)
	}

	blob := ""
	if meta.etag != "" {
		blob = filepath.Join(blobs, meta.etag)
	}
	if blob == "" || !fsutil.PathExists(blob) {
		blob, err = h.download(ctx, u, blobs, file, meta, onProgress)
		if err != nil {
			return "", err
		}
	}

	snap := filepath.Join(dir, "snapshots", commit, filepath.FromSlash(file))
	if err := linkBlob(blob, snap); err != nil {
		return "", err
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, "refs", h.cfg.Revision), []byte(commit), 0o644); err != nil {
		return "", fmt.Errorf("write ref: %w", err)
	}
	return snap, nil
}

func (h *HubClient) fileURL(repo, file string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s", strings.TrimRight(h.cfg.Endpoint, "/"), repo, url.PathEscape(h.cfg.Revision), file)
}

func (h *HubClient) newRequest(ctx context.Context, method, u string) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	if h.cfg.Token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", h.cfg.Token))
	}
	return req, nil
}

func (h *HubClient) head(ctx context.Context, u string) (fileMeta, error) {
	req, err := h.newRequest(ctx, http.MethodHead, u)
	if err != nil {
		return fileMeta{}, err
	}
	resp, err := h.meta.Do(req)
	if err != nil {
		return fileMeta{}, fmt.Errorf("head %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fileMeta{}, statusError{url: u, code: resp.StatusCode}
	}
	m := fileMeta{
		commit: resp.Header.Get("X-Repo-Commit"),
		etag:   normalizeETag(firstNonEmpty(resp.Header.Get("X-Linked-Etag"), resp.Header.Get("ETag"))),
		size:   -1,
	}
	if s := firstNonEmpty(resp.Header.Get("X-Linked-Size"), resp.Header.Get("Content-Length")); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			m.size = n
		}
	}
	return m, nil
}

func (h *HubClient) download(ctx context.Context, u, blobs, file string, meta fileMeta, onProgress ProgressFunc) (string, error) {
	req, err := h.newRequest(ctx, http.MethodGet, u)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", statusError{url: u, code: resp.StatusCode}
	}
	total := meta.size
	if total < 0 {
		total = resp.ContentLength
	}

	tmp, err := os.CreateTemp(blobs, "*.incomplete")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = tmp.Close(); _ = os.Remove(tmpPath) }

	hash := sha256.New()
	w := io.MultiWriter(tmp, hash, &progressWriter{total: total, fn: onProgress})
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("read %s: %w", u, err)
	}
	if meta.size >= 0 && n != meta.size {
		cleanup()
		return "", integrityError{file: file, check: "size", want: strconv.FormatInt(meta.size, 10), got: strconv.FormatInt(n, 10)}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp: %w", err)
	}

	sum := hex.EncodeToString(hash.Sum(nil))
	name := meta.etag
	if sha256Re.MatchString(meta.etag) && sum != meta.etag {
		_ = os.Remove(tmpPath)
		return "", integrityError{file: file, check: "sha256", want: meta.etag, got: sum}
	}
	if name == "" {
		name = sum
	}
	blob := filepath.Join(blobs, name)
	if err := os.Rename(tmpPath, blob); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("move blob: %w", err)
	}
	return blob, nil
}

// linkBlob points snap at blob, preferring a relative symlink and falling
// back to a hard link, then a copy.
func linkBlob(blob, snap string) error {
	if err := os.MkdirAll(filepath.Dir(snap), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	_ = os.Remove(snap)
	if rel, err := filepath.Rel(filepath.Dir(snap), blob); err == nil {
		if err := os.Symlink(rel, snap); err == nil {
			return nil
		}
	}
	if err := os.Link(blob, snap); err == nil {
		return nil
	}
	src, err := os.Open(blob)
	if err != nil {
		return fmt.Errorf("open blob: %w", err)
	}
	defer src.Close()
	dst, err := os.Create(snap)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("copy blob: %w", err)
	}
	return dst.Close()
}

type progressWriter struct {
	done, total int64
	fn          ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.done += int64(len(b))
	if p.fn != nil {
		p.fn(p.done, p.total)
	}
	return len(b), nil
}

func normalizeETag(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "W/")
	return strings.Trim(s, `"`)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
