// row_source fetches the csv row sets behind the heatmap. The location of a row set is a
// pure function of the game mode and the bracket range.
package row_source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"brheatmap/models"

	"github.com/valyala/fasthttp"
)

// DefaultBaseURL is the published data repository.
const DefaultBaseURL = "https://raw.githubusercontent.com/ControlNet/wt-data-project.data/master"

// DataURL derives the row set location for mode and brRange.
func DataURL(base, mode, brRange string) string {
	return strings.TrimRight(base, "/") + "/" + strings.ToLower(mode) + "_ranks_" + brRange + ".csv"
}

// Source fetches the row set at url.
type Source interface {
	Fetch(ctx context.Context, url string) (*models.RowSet, error)
}

// ErrStatus is returned when the data host answers with anything but 200.
var ErrStatus error = errors.New("unexpected status fetching row set")

// HTTPSource fetches row sets over http.
type HTTPSource struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewHTTPSource returns a source whose requests are bounded by timeout unless the
// context carries an earlier deadline.
func NewHTTPSource(timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		timeout: timeout,
	}
}

func (src *HTTPSource) Fetch(ctx context.Context, url string) (*models.RowSet, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline := time.Now().Add(src.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := src.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: %s: %d", ErrStatus, url, resp.StatusCode())
	}

	// The body is owned by resp, so it is parsed fully before release.
	return Parse(bytes.NewReader(resp.Body()))
}

// FileSource serves row sets from a local directory, by base name of the url.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (src *FileSource) Fetch(ctx context.Context, url string) (*models.RowSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(src.dir, path.Base(url)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a csv with a header line.
func Parse(r io.Reader) (*models.RowSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var records [][]string
	if records, err = reader.ReadAll(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	return &models.RowSet{
		Header:  header,
		Records: records,
	}, nil
}
