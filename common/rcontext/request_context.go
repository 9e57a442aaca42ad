package rcontext

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/skyfleet/datavault/common/config"
)

func Initial() RequestContext {
	return RequestContext{
		Context: context.Background(),
		Log:     logrus.WithFields(logrus.Fields{"nocontext": true}),
		Config:  config.Get(),
	}.populate()
}

// InitialWith builds a RequestContext on top of a caller-supplied context,
// typically one wired to a signal handler for cancellation.
func InitialWith(ctx context.Context) RequestContext {
	return RequestContext{
		Context: ctx,
		Log:     logrus.WithFields(logrus.Fields{"nocontext": true}),
		Config:  config.Get(),
	}.populate()
}

type RequestContext struct {
	context.Context

	// These are also stored on the context object itself
	Log    *logrus.Entry
	Config *config.VaultConfig
}

func (c RequestContext) populate() RequestContext {
	c.Context = context.WithValue(c.Context, "dv.logger", c.Log)
	c.Context = context.WithValue(c.Context, "dv.config", c.Config)
	return c
}

func (c RequestContext) ReplaceLogger(log *logrus.Entry) RequestContext {
	ctx := context.WithValue(c.Context, "dv.logger", log)
	return RequestContext{
		Context: ctx,
		Log:     log,
		Config:  c.Config,
	}
}

func (c RequestContext) LogWithFields(fields logrus.Fields) RequestContext {
	return c.ReplaceLogger(c.Log.WithFields(fields))
}
