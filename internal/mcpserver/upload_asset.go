package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mdstrip/internal/docservice"
	"github.com/starford/mdstrip/internal/rewrite"
)

const maxRedirects = 5

var metadataIP = net.ParseIP("169.254.169.254")

type uploadResult struct {
	SavedPath     string `json:"savedPath"`
	MarkdownImage string `json:"markdownImage"`
}

// download is image bytes plus the extension implied by their media type
// and the name suggested by the source, if any.
type download struct {
	data []byte
	ext  string
	name string
}

// fetcher retrieves remote images. checkHost vets every host contacted,
// including redirect targets.
type fetcher struct {
	client    *http.Client
	checkHost func(host string) error
}

func newFetcher() *fetcher {
	f := &fetcher{checkHost: checkBlockedHost}
	f.client = &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return f.checkHost(req.URL.Hostname())
		},
	}
	return f
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var dl *download
	if strings.HasPrefix(source, "data:") {
		dl, err = decodeDataURI(source)
	} else {
		dl, err = s.fetch.get(ctx, source)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filename := req.GetString("filename", "")
	if filename == "" {
		filename = dl.filename()
	}

	asset, err := s.svc.SaveAsset(s.assetsDir, filename, dl.data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save asset: %v", err)), nil
	}

	image := asset.MarkdownImage
	if doc := req.GetString("document", ""); doc != "" {
		image = strings.Replace(image, "("+asset.Path+")", "("+rewrite.RelativePrefix(doc)+asset.Path+")", 1)
	}

	out, _ := json.Marshal(uploadResult{SavedPath: asset.Path, MarkdownImage: image})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) (*download, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("invalid data URI: missing comma separator")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, errors.New("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	ext := extFor(mediaType)
	if ext == "" {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mediaType)
	}
	return &download{data: data, ext: ext}, nil
}

// get downloads an http(s) URL, bounded by docservice.MaxAssetSize.
func (f *fetcher) get(ctx context.Context, rawURL string) (*download, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", u.Scheme)
	}
	if err := f.checkHost(u.Hostname()); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, docservice.MaxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > docservice.MaxAssetSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", docservice.MaxAssetSize)
	}

	dl := &download{data: data, ext: extFor(resp.Header.Get("Content-Type"))}
	// Name the file after the final URL so redirects to a CDN keep its name.
	if base := path.Base(resp.Request.URL.Path); strings.Contains(base, ".") {
		dl.name = base
	}
	return dl, nil
}

// filename is the suggested name, or a random one with the detected extension.
func (d *download) filename() string {
	if d.name != "" {
		return d.name
	}
	ext := d.ext
	if ext == "" {
		ext = ".bin"
	}
	return uuid.NewString() + ext
}

func extFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return docservice.MimeToExt[mediaType]
}

// checkBlockedHost rejects loopback, link-local and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, err := net.LookupIP(host)
		if err != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // the HTTP client reports DNS failures
		}
		ips = resolved
	}

	for _, ip := range ips {
		switch {
		case ip.IsLoopback(), ip.IsUnspecified():
			return fmt.Errorf("blocked host: loopback address %s", host)
		case ip.Equal(metadataIP), ip.IsLinkLocalUnicast():
			return fmt.Errorf("blocked host: link-local address %s", host)
		}
	}
	return nil
}
