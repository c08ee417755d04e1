package aa

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/agentstation/aigo/internal/transport"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
	"github.com/agentstation/aigo/pkg/sources"
)

// Adapter names.
const (
	FileAdapterName = "aa-file"
	HTTPAdapterName = "aa-live"
)

// FileAdapter reads the periodically refreshed static AA export.
type FileAdapter struct {
	path string
	now  func() time.Time
}

// NewFileAdapter creates an adapter for the JSON export at path.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path, now: time.Now}
}

// Name implements sources.Adapter.
func (a *FileAdapter) Name() string { return FileAdapterName }

// Tag implements sources.Adapter.
func (a *FileAdapter) Tag() sources.Tag { return sources.TagAA }

// Fetch implements sources.Adapter. A missing file is an empty source.
func (a *FileAdapter) Fetch(ctx context.Context) (*sources.Batch, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewAdapterError(a.Name(), errors.KindEmpty, "feed file not found: "+a.path, err)
		}
		return nil, errors.WrapAdapter(a.Name(), errors.KindNetwork, errors.WrapIO("read", a.path, err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parseAndLog(ctx, a.Name(), data, a.now())
}

// HTTPAdapter fetches the live AA API.
type HTTPAdapter struct {
	url    string
	client *transport.Client
	now    func() time.Time
}

// NewHTTPAdapter creates an adapter for the live API at url.
func NewHTTPAdapter(url string, client *transport.Client) *HTTPAdapter {
	if client == nil {
		client = transport.New("aa", &transport.NoAuth{})
	}
	return &HTTPAdapter{url: url, client: client, now: time.Now}
}

// Name implements sources.Adapter.
func (a *HTTPAdapter) Name() string { return HTTPAdapterName }

// Tag implements sources.Adapter.
func (a *HTTPAdapter) Tag() sources.Tag { return sources.TagAA }

// Fetch implements sources.Adapter. Transport failures and non-2xx
// responses are network errors; 4xx other than 408/429 will not improve on
// retry, so they are reported as empty.
func (a *HTTPAdapter) Fetch(ctx context.Context) (*sources.Batch, error) {
	body, err := a.client.GetBody(ctx, a.url)
	if err != nil {
		var apiErr *errors.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != 408 && apiErr.StatusCode != 429 {
			return nil, errors.WrapAdapter(a.Name(), errors.KindEmpty, err)
		}
		if ctx.Err() != nil {
			return nil, errors.NewAdapterError(a.Name(), errors.KindTimeout, "request canceled", err)
		}
		return nil, errors.WrapAdapter(a.Name(), errors.KindNetwork, err)
	}
	return parseAndLog(ctx, a.Name(), body, a.now())
}

func parseAndLog(ctx context.Context, name string, data []byte, now time.Time) (*sources.Batch, error) {
	batch, err := Parse(name, data, now)
	if err != nil {
		return nil, err
	}
	if batch.Skipped > 0 {
		logging.Ctx(ctx).Warn().
			Str("adapter", name).
			Int("skipped", batch.Skipped).
			Int("records", batch.Len()).
			Msg("Skipped malformed AA items")
	}
	return batch, nil
}
