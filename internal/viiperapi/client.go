// Package viiperapi is a client for the VIIPER management API and device streams.
package viiperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Client wraps a Transport with typed calls.
type Client struct{ transport *Transport }

// New creates a client for the API server at addr.
func New(addr string, cfg *Config) *Client { return &Client{transport: NewTransport(addr, cfg)} }

// WithTransport creates a client over a custom transport.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	raw, err := c.transport.Do(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[PingResponse](raw)
}

func (c *Client) BusList(ctx context.Context) (*BusListResponse, error) {
	raw, err := c.transport.Do(ctx, "bus/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[BusListResponse](raw)
}

func (c *Client) BusCreate(ctx context.Context, busID uint32) (*BusResponse, error) {
	raw, err := c.transport.Do(ctx, "bus/create", strconv.FormatUint(uint64(busID), 10), nil)
	if err != nil {
		return nil, err
	}
	return parse[BusResponse](raw)
}

func (c *Client) BusRemove(ctx context.Context, busID uint32) (*BusResponse, error) {
	raw, err := c.transport.Do(ctx, "bus/remove", strconv.FormatUint(uint64(busID), 10), nil)
	if err != nil {
		return nil, err
	}
	return parse[BusResponse](raw)
}

// DeviceAdd creates a device of devType on busID. vid/pid may be nil for the type's defaults.
func (c *Client) DeviceAdd(ctx context.Context, busID uint32, devType string, vid, pid *uint16) (*Device, error) {
	req := deviceCreateRequest{Type: devType, IdVendor: vid, IdProduct: pid}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal device create request: %w", err)
	}
	raw, err := c.transport.Do(ctx, "bus/{id}/add", string(payload), busParam(busID))
	if err != nil {
		return nil, err
	}
	return parse[Device](raw)
}

func (c *Client) DeviceRemove(ctx context.Context, busID uint32, devID string) (*DeviceRemoveResponse, error) {
	raw, err := c.transport.Do(ctx, "bus/{id}/remove", devID, busParam(busID))
	if err != nil {
		return nil, err
	}
	return parse[DeviceRemoveResponse](raw)
}

func (c *Client) DevicesList(ctx context.Context, busID uint32) (*DevicesListResponse, error) {
	raw, err := c.transport.Do(ctx, "bus/{id}/list", nil, busParam(busID))
	if err != nil {
		return nil, err
	}
	return parse[DevicesListResponse](raw)
}

func busParam(busID uint32) map[string]string {
	return map[string]string{"id": strconv.FormatUint(uint64(busID), 10)}
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
