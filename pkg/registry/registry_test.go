package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	closed bool
}

func (s *stubClient) Get(ctx context.Context, url string) (*Response, error) {
	return &Response{StatusCode: 200}, nil
}

func (s *stubClient) Close() error {
	s.closed = true
	return nil
}

func TestGetCachesHandlePerRetailer(t *testing.T) {
	created := 0
	reg := New(func(retailer string) (Client, error) {
		created++
		return &stubClient{}, nil
	})
	defer reg.Close()

	first, err := reg.Get("acme")
	require.NoError(t, err)
	second, err := reg.Get("acme")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, created)

	_, err = reg.Get("bodega")
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestGetConcurrent(t *testing.T) {
	var created int
	reg := New(func(retailer string) (Client, error) {
		created++
		return &stubClient{}, nil
	})
	defer reg.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Get("acme")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// The mutex serializes creation: one handle total.
	assert.Equal(t, 1, created)
}

func TestCloseClosesAllHandles(t *testing.T) {
	handles := make(map[string]*stubClient)
	reg := New(func(retailer string) (Client, error) {
		c := &stubClient{}
		handles[retailer] = c
		return c, nil
	})

	_, err := reg.Get("acme")
	require.NoError(t, err)
	_, err = reg.Get("bodega")
	require.NoError(t, err)

	require.NoError(t, reg.Close())
	for retailer, c := range handles {
		assert.True(t, c.closed, "client for %s not closed", retailer)
	}

	// A closed registry refuses new handles, and double close is a no-op.
	_, err = reg.Get("acme")
	assert.Error(t, err)
	assert.NoError(t, reg.Close())
}

func TestGetFactoryError(t *testing.T) {
	reg := New(func(retailer string) (Client, error) {
		return nil, fmt.Errorf("no session for %s", retailer)
	})
	defer reg.Close()

	_, err := reg.Get("acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme")
}

func TestResponseSuccess(t *testing.T) {
	assert.True(t, (&Response{StatusCode: 200}).Success())
	assert.True(t, (&Response{StatusCode: 204}).Success())
	assert.False(t, (&Response{StatusCode: 404}).Success())
	assert.False(t, (&Response{StatusCode: 500}).Success())

	var nilResp *Response
	assert.False(t, nilResp.Success())
}
