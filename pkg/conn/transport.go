package conn

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
	"nhooyr.io/websocket"
)

const (
	DefaultAPIBase   = "/cdsapi"
	DefaultReadLimit = 1 << 20
)

// Transport is one established duplex channel.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, b []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, target string) (Transport, error)
}

// TargetURL derives the push endpoint from the console URL: the scheme is
// upgraded to its websocket equivalent and "<apiBase>/ws" becomes the path.
func TargetURL(pageURL string, apiBase string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", errors.Wrap(err, "parse host url")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported scheme %q in host url", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Errorf("missing host in %q", pageURL)
	}

	base := strings.Trim(apiBase, "/")
	if base == "" {
		base = strings.Trim(DefaultAPIBase, "/")
	}
	u.Path = path.Join("/", base, "ws")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// WebsocketDialer opens text-frame websocket transports. HTTPClient carries
// authentication (see config.HTTPClient) and must not have a Timeout set.
type WebsocketDialer struct {
	HTTPClient *http.Client
	Header     http.Header
	ReadLimit  int64
}

func (d WebsocketDialer) Dial(ctx context.Context, target string) (Transport, error) {
	c, _, err := websocket.Dial(ctx, target, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: d.Header,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", target)
	}
	limit := d.ReadLimit
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	c.SetReadLimit(limit)
	return &wsTransport{c: c}, nil
}

type wsTransport struct {
	c *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, b, err := t.c.Read(ctx)
	return b, err
}

func (t *wsTransport) Write(ctx context.Context, b []byte) error {
	return t.c.Write(ctx, websocket.MessageText, b)
}

func (t *wsTransport) Close() error {
	return t.c.Close(websocket.StatusNormalClosure, "")
}

// IsNormalClosure reports whether err is the peer closing the socket cleanly.
func IsNormalClosure(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
