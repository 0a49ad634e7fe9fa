package main

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type (
	Server interface {
		Start(ctx context.Context) error
		Stop()
		Wait() error
		Addr() net.Addr
	}

	Config struct {
		Host         string
		Port         int
		Whitelist    []string
		RootDir      string
		TemplatePath string
		PoolSize     int
		GracePeriod  time.Duration
		Logger       *slog.Logger
		Now          func() time.Time
	}

	server struct {
		config    Config
		whitelist Whitelist
		log       *slog.Logger

		listener net.Listener
		cancel   context.CancelFunc
		pool     errgroup.Group
		done     chan struct{} // closed when the accept loop exits
		loopErr  error

		connections sync.Map // connection ID -> *connection
		stopOnce    sync.Once
	}

	// connection is one accepted socket, owned by the worker serving it.
	connection struct {
		id   string
		rwc  net.Conn
		once sync.Once
		err  error
	}
)

func (c *connection) Close() error {
	c.once.Do(func() {
		c.err = c.rwc.Close()
	})
	return c.err
}
