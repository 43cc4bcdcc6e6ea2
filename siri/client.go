package siri

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client posts SOAP requests to the operator's SIRI endpoint.
type Client struct {
	endpoint     string
	requestorRef string
	httpClient   *http.Client
}

// NewClient creates a SIRI client. The timeout bounds each request
// end to end, body included.
func NewClient(endpoint, requestorRef string, timeout time.Duration) *Client {
	return &Client{
		endpoint:     endpoint,
		requestorRef: requestorRef,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// DiscoverLines fetches the lines discovery answer and returns the
// refs of the lines flagged as monitored.
func (c *Client) DiscoverLines(ctx context.Context) ([]string, error) {
	body, err := c.post(ctx, LinesDiscoveryRequest(c.requestorRef, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("lines discovery: %w", err)
	}
	var env linesDiscoveryEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("lines discovery: decode answer: %w", err)
	}
	lines := env.Body.LinesDiscoveryResponse.Answer.AnnotatedLineRef
	refs := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.Monitored {
			refs = append(refs, line.LineRef)
		}
	}
	return refs, nil
}

// FetchVehicles requests vehicle monitoring for one line. A delivery
// with no activity is a normal answer and yields an empty slice.
func (c *Client) FetchVehicles(ctx context.Context, lineRef string) ([]VehicleActivity, error) {
	body, err := c.post(ctx, VehicleMonitoringRequest(c.requestorRef, lineRef, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("vehicle monitoring %s: %w", lineRef, err)
	}
	var env vehicleMonitoringEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("vehicle monitoring %s: decode answer: %w", lineRef, err)
	}
	return env.Body.GetVehicleMonitoringResponse.Answer.VehicleMonitoringDelivery.VehicleActivity, nil
}

func (c *Client) post(ctx context.Context, payload string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/xml")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, c.endpoint)
	}
	return io.ReadAll(resp.Body)
}
