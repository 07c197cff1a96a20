package interceptors

import (
	"context"
	"net/http"

	"github.com/tombee/fetchkit/pkg/network"
)

// Headers returns a request interceptor that sets each header, replacing
// any value already present.
func Headers(headers map[string]string) network.RequestInterceptor {
	static := make(http.Header, len(headers))
	for k, v := range headers {
		static.Set(k, v)
	}

	return network.RequestInterceptorFunc(func(_ context.Context, d *network.Descriptor) (*network.Descriptor, error) {
		for k, values := range static {
			d.Header[k] = append([]string(nil), values...)
		}
		return d, nil
	})
}
