package visionary

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"keepsake/internal/logging"
	"keepsake/internal/services"
)

// Upload pushes path to the Files API and blocks until the remote side
// reports the file ACTIVE. The readiness poll runs on a fixed interval
// with no deadline; only context cancellation or a FAILED state ends the
// wait early.
func (c *Client) Upload(ctx context.Context, path string) (Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Handle{}, services.Wrap(services.ErrValidation, "analysis", "upload", "read proxy", err)
	}

	url := fmt.Sprintf("%s/upload/v1beta/files", c.baseURL)
	req, err := c.newRequest(ctx, http.MethodPost, url, data)
	if err != nil {
		return Handle{}, err
	}
	req.Header.Set("Content-Type", uploadMimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-File-Name", filepath.Base(path))

	var envelope fileEnvelope
	if err := c.doJSON(req, &envelope); err != nil {
		return Handle{}, err
	}
	if envelope.File.Name == "" {
		return Handle{}, services.Wrap(services.ErrValidation, "analysis", "upload", "response carried no file name", nil)
	}

	c.logger.Info("proxy uploaded, awaiting processing",
		logging.String("remote", envelope.File.Name))
	return c.awaitActive(ctx, envelope.File)
}

func (c *Client) awaitActive(ctx context.Context, file remoteFile) (Handle, error) {
	for {
		switch file.State {
		case stateActive:
			return Handle{Name: file.Name, URI: file.URI}, nil
		case stateFailed:
			return Handle{}, services.Wrap(services.ErrExternalTool, "analysis", "upload",
				fmt.Sprintf("remote processing failed for %s", file.Name), nil)
		}

		select {
		case <-ctx.Done():
			return Handle{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		refreshed, err := c.getFile(ctx, file.Name)
		if err != nil {
			return Handle{}, err
		}
		file = refreshed
	}
}

// ResolveHandle re-resolves a persisted remote name, typically recorded by
// an earlier process run. The file must already be ACTIVE; anything else
// means the remote copy expired or never finished processing.
func (c *Client) ResolveHandle(ctx context.Context, name string) (Handle, error) {
	file, err := c.getFile(ctx, name)
	if err != nil {
		return Handle{}, err
	}
	if file.State != stateActive {
		return Handle{}, services.Wrap(services.ErrNotFound, "analysis", "resolve",
			fmt.Sprintf("remote file %s is %s, not active", name, file.State), nil)
	}
	return Handle{Name: file.Name, URI: file.URI}, nil
}

// Delete removes the remote file. Callers treat failures as cleanup noise.
func (c *Client) Delete(ctx context.Context, name string) error {
	url := fmt.Sprintf("%s/v1beta/%s", c.baseURL, name)
	req, err := c.newRequest(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

func (c *Client) getFile(ctx context.Context, name string) (remoteFile, error) {
	url := fmt.Sprintf("%s/v1beta/%s", c.baseURL, name)
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return remoteFile{}, err
	}
	var file remoteFile
	if err := c.doJSON(req, &file); err != nil {
		return remoteFile{}, err
	}
	return file, nil
}
