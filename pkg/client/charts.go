package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goliatone/go-formflow/pkg/astro"
	"github.com/goliatone/go-formflow/pkg/contract"
)

// ChartClient implements astro.ChartService over HTTP. The calculation mode
// selects the endpoint.
type ChartClient struct {
	t    *transport
	base string
}

var _ astro.ChartService = (*ChartClient)(nil)

// NewChartClient targets the astrology API rooted at baseURL.
func NewChartClient(baseURL string, opts ...Option) *ChartClient {
	return &ChartClient{t: newTransport(opts), base: baseURL}
}

type chartEnvelope struct {
	Data astro.Chart `json:"data"`
}

// ComputeChart requests a chart for details.
func (c *ChartClient) ComputeChart(ctx context.Context, details astro.BirthDetails) (astro.Chart, error) {
	mode := details.Mode
	if !mode.Valid() {
		mode = astro.ModeVedic
	}
	var env chartEnvelope
	err := c.t.do(ctx, call{
		method:         http.MethodPost,
		url:            join(c.base, "/astro/"+url.PathEscape(string(mode))),
		body:           details,
		requestSchema:  contract.BirthDetails,
		responseSchema: contract.ChartEnvelope,
		authenticated:  true,
	}, &env)
	if err != nil {
		return astro.Chart{}, err
	}
	chart := env.Data
	if chart.Mode == "" {
		chart.Mode = mode
	}
	return chart, nil
}
