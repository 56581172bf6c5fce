package rest

import (
	"context"
	"strings"
	"testing"

	"http-client/application/http"
	"http-client/application/http/actor/client"
	"http-client/application/http/actor/client/adapter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Client, *adapter.Stub) {
	t.Helper()

	stub := adapter.NewStub()
	stub.SetResponse("HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\ndone")

	r, err := New("http://rest.test", client.New(client.WithAdapter(stub)))
	require.NoError(t, err)
	return r, stub
}

func TestRequests(t *testing.T) {
	ctx := context.Background()

	testcases := []struct {
		desc     string
		call     func(r *Client) error
		line     string
		contains string
		suffix   string
	}{
		{
			desc: "get with query",
			call: func(r *Client) error {
				_, err := r.Get(ctx, "items", map[string]any{"page": 2})
				return err
			},
			line: "GET /items?page=2 HTTP/1.1",
		},
		{
			desc: "post form",
			call: func(r *Client) error {
				_, err := r.Post(ctx, "/items", map[string]string{"name": "a"})
				return err
			},
			line:     "POST /items HTTP/1.1",
			contains: "Content-Type: application/x-www-form-urlencoded\r\n",
			suffix:   "\r\n\r\nname=a",
		},
		{
			desc: "put raw",
			call: func(r *Client) error {
				_, err := r.Put(ctx, "/items/1", `{"name":"b"}`)
				return err
			},
			line:   "PUT /items/1 HTTP/1.1",
			suffix: "\r\n\r\n{\"name\":\"b\"}",
		},
		{
			desc: "patch bytes",
			call: func(r *Client) error {
				_, err := r.Patch(ctx, "/items/1", []byte("x"))
				return err
			},
			line:     "PATCH /items/1 HTTP/1.1",
			contains: "Content-Length: 1\r\n",
		},
		{
			desc: "delete",
			call: func(r *Client) error {
				_, err := r.Delete(ctx, "/items/1")
				return err
			},
			line:   "DELETE /items/1 HTTP/1.1",
			suffix: "User-Agent: http-client\r\n\r\n",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			r, stub := setup(t)
			require.NoError(t, tc.call(r))

			raw := string(stub.LastRequest())
			line, _, _ := strings.Cut(raw, "\r\n")
			assert.Equal(t, tc.line, line)
			assert.Contains(t, raw, tc.contains)
			assert.True(t, strings.HasSuffix(raw, tc.suffix), raw)
		})
	}
}

func TestParametersDoNotLeak(t *testing.T) {
	ctx := context.Background()
	r, stub := setup(t)

	_, err := r.Get(ctx, "/a", map[string]any{"q": "1"})
	require.NoError(t, err)

	res, err := r.Get(ctx, "/b", nil)
	require.NoError(t, err)
	assert.Equal(t, "GET /b HTTP/1.1", strings.SplitN(string(stub.LastRequest()), "\r\n", 2)[0])

	body, err := res.Body()
	require.NoError(t, err)
	assert.Equal(t, "done", string(body))
}

func TestBaseURLWithPath(t *testing.T) {
	stub := adapter.NewStub()
	r, err := New("https://rest.test/api/", client.New(client.WithAdapter(stub)))
	require.NoError(t, err)

	_, err = r.Get(context.Background(), "users", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(stub.LastRequest()), "GET /api/users HTTP/1.1\r\nHost: rest.test\r\n"))
}

func TestInvalid(t *testing.T) {
	_, err := New("/relative", nil)
	assert.ErrorIs(t, err, http.ErrConfiguration)

	r, _ := setup(t)
	_, err = r.Post(context.Background(), "/x", 42)
	assert.ErrorIs(t, err, http.ErrConfiguration)
}
