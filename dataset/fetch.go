package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// fetch downloads url to dest unless dest already exists. It reports
// whether a download happened.
func (e *env) fetch(ctx context.Context, url, dest string) (bool, error) {
	if exists(dest) {
		e.logger.Debug("archive present, skipping download", "path", dest)
		return false, nil
	}

	e.logger.Info("downloading", "url", url, "dest", dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	res, err := e.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("fetching %q: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("fetching %q: %s", url, res.Status)
	}

	p := mpb.NewWithContext(ctx, mpb.WithOutput(e.progress), mpb.WithWidth(64))
	bar := p.AddBar(res.ContentLength,
		mpb.PrependDecorators(
			decor.Name(filepath.Base(dest)+" "),
			decor.CountersKibiByte("% .1f / % .1f"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	body := bar.ProxyReader(res.Body)
	defer body.Close()

	err = writeAtomic(dest, func(w io.Writer) error {
		_, err := io.Copy(w, body)
		return err
	})
	if err != nil {
		bar.Abort(false)
		p.Wait()
		return false, fmt.Errorf("fetching %q: %w", url, err)
	}

	bar.SetTotal(-1, true)
	p.Wait()

	return true, nil
}
