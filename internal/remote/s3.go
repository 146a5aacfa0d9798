package remote

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/ehdev/toolup/internal/paths"
)

// presignedRegion is the signing-region name used for every S3-compatible
// endpoint, since the target host is arbitrary rather than a real AWS
// region.
const presignedRegion = "custom-domain"

// presignExpiry is how long a presigned request remains valid.
const presignExpiry = 60 * time.Second

var emptyPayloadHash = sha256Hex(nil)

// S3Fetcher implements Fetcher against an S3-compatible HTTP(S) endpoint
// using presigned requests and conditional GET.
type S3Fetcher struct {
	httpClient *http.Client
}

// NewS3Fetcher returns an S3Fetcher with a sensible default HTTP timeout.
func NewS3Fetcher() *S3Fetcher {
	return &S3Fetcher{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// NeedsUpdate sends a conditional HEAD. A missing etag always requires a
// download; a 304 response means no update is needed; any other outcome
// (including transport errors) is treated as "needs update."
func (f *S3Fetcher) NeedsUpdate(ctx context.Context, cfg Config, etag string) (bool, error) {
	if etag == "" {
		return true, nil
	}

	req, err := f.presign(ctx, cfg, http.MethodHead)
	if err != nil {
		return true, nil //nolint:nilerr // transport/signing failure counts as "needs update"
	}
	req.Header.Set("If-None-Match", etag)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return true, nil
	}
	defer resp.Body.Close()

	return resp.StatusCode != http.StatusNotModified, nil
}

// Download fetches the archive via a presigned GET and writes it into
// Paths.DownloadScratchDir as "<remote-name>.download.<unix-ts>".
func (f *S3Fetcher) Download(ctx context.Context, cfg Config, p paths.Paths) (Artifact, error) {
	req, err := f.presign(ctx, cfg, http.MethodGet)
	if err != nil {
		return Artifact{}, fmt.Errorf("presigning s3 download: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Artifact{}, fmt.Errorf("downloading from s3: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Artifact{}, fmt.Errorf("s3 download failed: HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(p.DownloadScratchDir(), 0o755); err != nil {
		return Artifact{}, fmt.Errorf("preparing download scratch dir: %w", err)
	}
	dest := filepath.Join(p.DownloadScratchDir(), fmt.Sprintf("%s.download.%d", cfg.Name, time.Now().Unix()))
	out, err := os.Create(dest)
	if err != nil {
		return Artifact{}, fmt.Errorf("creating download file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return Artifact{}, fmt.Errorf("writing download file: %w", err)
	}

	return Artifact{Path: dest, ETag: resp.Header.Get("ETag")}, nil
}

// presign builds a SigV4-presigned request for method against cfg.S3URL.
func (f *S3Fetcher) presign(ctx context.Context, cfg Config, method string) (*http.Request, error) {
	if cfg.AuthStrategy == AuthScript {
		if err := applyScriptEnv(cfg.AuthScriptPath); err != nil {
			return nil, fmt.Errorf("running auth script: %w", err)
		}
	}
	// AuthDefaultAWSAuth and AuthNone are handled identically: the standard
	// credential chain applies either way.

	u, err := url.Parse(cfg.S3URL)
	if err != nil {
		return nil, fmt.Errorf("parsing remote url: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws credential chain: %w", err)
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieving aws credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", int(presignExpiry.Seconds())))
	req.URL.RawQuery = q.Encode()

	signer := v4.NewSigner()
	signedURI, _, err := signer.PresignHTTP(ctx, creds, req, emptyPayloadHash, "s3", presignedRegion, time.Now())
	if err != nil {
		return nil, fmt.Errorf("presigning request: %w", err)
	}

	signedReq, err := http.NewRequestWithContext(ctx, method, signedURI, nil)
	if err != nil {
		return nil, err
	}
	return signedReq, nil
}

// applyScriptEnv runs an auth script and sets every KEY=VALUE (optionally
// prefixed with "export ") it prints on stdout into the current process's
// environment.
func applyScriptEnv(scriptPath string) error {
	cmd := exec.Command(scriptPath)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("executing %s: %w", scriptPath, err)
	}

	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "export ")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if err := os.Setenv(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("setting env %s: %w", key, err)
		}
	}
	return scanner.Err()
}

func sha256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
