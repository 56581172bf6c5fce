// Package rest sends requests to paths of a base URL.
package rest

import (
	"context"
	"strings"

	"http-client/application/http"
	"http-client/application/http/actor/client"
	"http-client/application/http/semantic"
	"http-client/application/util/uri"

	"github.com/pkg/errors"
)

type Client struct {
	base   uri.URI
	client *client.Client
}

// New creates a client for baseURL, an absolute http or https URL. A nil c is created.
// Request paths are appended to the path of baseURL.
func New(baseURL string, c *client.Client) (*Client, error) {
	base, err := uri.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(http.ErrConfiguration, "invalid base URL %q: %s", baseURL, err.Error())
	}
	if base.Scheme == "" || base.Hostname() == "" {
		return nil, errors.Wrapf(http.ErrConfiguration, "base URL %q is not absolute", baseURL)
	}
	if c == nil {
		c = client.New()
	}
	return &Client{base: base, client: c}, nil
}

func (r *Client) HTTPClient() *client.Client { return r.client }

func (r *Client) BaseURL() uri.URI { return r.base.Clone() }

// Get sends a GET request to path with query parameters.
func (r *Client) Get(ctx context.Context, path string, query map[string]any) (*semantic.Response, error) {
	if err := r.prepare(path, semantic.MethodGet); err != nil {
		return nil, err
	}
	if len(query) > 0 {
		if err := r.client.SetParameterGet(query); err != nil {
			return nil, err
		}
	}
	return r.client.Send(ctx, nil)
}

// Post sends data to path. See [Client.Put] for the accepted data.
func (r *Client) Post(ctx context.Context, path string, data any) (*semantic.Response, error) {
	return r.send(ctx, path, semantic.MethodPost, data)
}

// Put sends data to path. A string or []byte is the raw body,
// a map is sent as form parameters, and nil sends no body.
func (r *Client) Put(ctx context.Context, path string, data any) (*semantic.Response, error) {
	return r.send(ctx, path, semantic.MethodPut, data)
}

func (r *Client) Patch(ctx context.Context, path string, data any) (*semantic.Response, error) {
	return r.send(ctx, path, semantic.MethodPatch, data)
}

func (r *Client) Delete(ctx context.Context, path string) (*semantic.Response, error) {
	if err := r.prepare(path, semantic.MethodDelete); err != nil {
		return nil, err
	}
	return r.client.Send(ctx, nil)
}

func (r *Client) send(ctx context.Context, path string, method semantic.Method, data any) (*semantic.Response, error) {
	if err := r.prepare(path, method); err != nil {
		return nil, err
	}

	switch data := data.(type) {
	case nil:
	case string:
		r.client.SetRawBody([]byte(data))
	case []byte:
		r.client.SetRawBody(data)
	case map[string]any:
		if err := r.client.SetParameterPost(data); err != nil {
			return nil, err
		}
	case map[string]string:
		post := make(map[string]any, len(data))
		for k, v := range data {
			post[k] = v
		}
		if err := r.client.SetParameterPost(post); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrapf(http.ErrConfiguration, "unsupported request data %T", data)
	}

	return r.client.Send(ctx, nil)
}

// prepare points the client at path under the base URL, with fresh parameters.
func (r *Client) prepare(path string, method semantic.Method) error {
	u := r.base.Clone()
	if path != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	r.client.ResetParameters(false)
	if err := r.client.SetURI(u.String()); err != nil {
		return err
	}
	return r.client.SetMethod(string(method))
}
