package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/faults"
	"github.com/goliatone/go-formflow/pkg/location"
)

const defaultLocateTimeout = 10 * time.Second

// IPLocator implements location.Locator with an ip-api style lookup service.
// It stands in for device geolocation on terminals.
type IPLocator struct {
	t       *transport
	url     string
	timeout time.Duration
}

var _ location.Locator = (*IPLocator)(nil)

// NewIPLocator queries endpoint. timeout bounds each lookup; zero uses ten
// seconds.
func NewIPLocator(endpoint string, timeout time.Duration, opts ...Option) *IPLocator {
	if timeout <= 0 {
		timeout = defaultLocateTimeout
	}
	return &IPLocator{t: newTransport(opts), url: endpoint, timeout: timeout}
}

type ipLookup struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CurrentPosition returns the approximate position of the caller.
func (l *IPLocator) CurrentPosition(ctx context.Context) (location.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var out ipLookup
	err := l.t.do(ctx, call{method: http.MethodGet, url: l.url}, &out)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || faults.KindOf(err) == faults.KindTimeout {
			return location.Coordinate{}, faults.Wrap(faults.KindTimeout, "", err)
		}
		if status := statusOf(err); status == http.StatusForbidden {
			return location.Coordinate{}, faults.Wrap(faults.KindPermissionDenied, "", err)
		}
		return location.Coordinate{}, faults.Wrap(faults.KindUnavailable, "", err)
	}
	if !strings.EqualFold(out.Status, "success") {
		return location.Coordinate{}, faults.New(faults.KindUnavailable, out.Message)
	}
	return location.NewCoordinate(out.Lat, out.Lon)
}

func statusOf(err error) int {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code
	}
	return 0
}
