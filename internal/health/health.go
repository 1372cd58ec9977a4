package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/szaturnusz/radiodir/internal/httpclient"
)

// CheckDirectory probes the station directory's stats endpoint. Returns nil
// if the API answers, an error describing the failure otherwise. Advisory: a
// dead directory still leaves the local snapshot usable.
func CheckDirectory(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("no directory endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/json/stats", nil)
	if err != nil {
		return err
	}
	resp, err := httpclient.WithTimeout(15 * time.Second).Do(req)
	if err != nil {
		return fmt.Errorf("directory unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory returned HTTP %d", resp.StatusCode)
	}
	return nil
}
