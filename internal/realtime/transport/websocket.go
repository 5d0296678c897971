package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/AlibekovAA/givematch-portal/internal/common/constants"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/realtime"
)

const (
	AuthNone   = "none"
	AuthQuery  = "query"
	AuthHeader = "header"

	tokenQueryParam = "token"
)

type Config struct {
	AuthMode         string
	Token            string
	PingPeriod       time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	HandshakeTimeout time.Duration
	MaxMessageSize   int64
}

// Dialer opens gorilla websocket connections for realtime channels.
type Dialer struct {
	cfg    Config
	dialer *gorillaWS.Dialer
	log    *logger.Logger
}

func NewDialer(cfg Config, log *logger.Logger) *Dialer {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = constants.RealtimeWriteWait
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = constants.RealtimeHandshakeTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = constants.RealtimeMaxMessageSize
	}
	if cfg.AuthMode == "" {
		cfg.AuthMode = AuthNone
	}

	return &Dialer{
		cfg: cfg,
		dialer: &gorillaWS.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   constants.RealtimeReadBufferSize,
			WriteBufferSize:  constants.RealtimeWriteBufferSize,
		},
		log: log,
	}
}

func (d *Dialer) Dial(ctx context.Context, endpoint string) (realtime.Conn, error) {
	target, header, err := d.authorize(endpoint)
	if err != nil {
		return nil, err
	}

	ws, resp, err := d.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &conn{
		ws:        ws,
		writeWait: d.cfg.WriteWait,
		pongWait:  d.cfg.PongWait,
		done:      make(chan struct{}),
	}
	ws.SetReadLimit(d.cfg.MaxMessageSize)
	if c.pongWait > 0 {
		ws.SetReadDeadline(time.Now().Add(c.pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(c.pongWait))
		})
	}
	if d.cfg.PingPeriod > 0 {
		go c.pingLoop(d.cfg.PingPeriod, d.log)
	}
	return c, nil
}

func (d *Dialer) authorize(endpoint string) (string, http.Header, error) {
	switch d.cfg.AuthMode {
	case AuthNone:
		return endpoint, nil, nil
	case AuthQuery:
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", nil, fmt.Errorf("parse endpoint %s: %w", endpoint, err)
		}
		q := u.Query()
		q.Set(tokenQueryParam, d.cfg.Token)
		u.RawQuery = q.Encode()
		return u.String(), nil, nil
	case AuthHeader:
		header := http.Header{}
		header.Set("Authorization", "Bearer "+d.cfg.Token)
		return endpoint, header, nil
	default:
		return "", nil, fmt.Errorf("unsupported realtime auth mode %q", d.cfg.AuthMode)
	}
}

type conn struct {
	ws        *gorillaWS.Conn
	writeWait time.Duration
	pongWait  time.Duration

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// ReadMessage skips control and non-data frames.
func (c *conn) ReadMessage() ([]byte, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt == gorillaWS.TextMessage || mt == gorillaWS.BinaryMessage {
			return data, nil
		}
	}
}

func (c *conn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.ws.WriteMessage(gorillaWS.TextMessage, data)
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, "")
		c.ws.WriteControl(gorillaWS.CloseMessage, msg, time.Now().Add(c.writeWait))
		err = c.ws.Close()
	})
	return err
}

func (c *conn) pingLoop(period time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(gorillaWS.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				log.Debugf("realtime ping failed: %v", err)
				c.ws.Close()
				return
			}
		}
	}
}
