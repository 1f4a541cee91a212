package hostio

import (
	"github.com/reusee/dscope"
	"github.com/reusee/tvm/logs"
	"github.com/reusee/tvm/nets"
	"github.com/reusee/tvm/vm"
	"github.com/reusee/tvm/vmconfigs"
)

type Module struct {
	dscope.Module
	Configs vmconfigs.Module
	Nets    nets.Module
}

func (Module) IO(
	client nets.HTTPClient,
	dialer nets.Dialer,
	concurrency vmconfigs.IOConcurrency,
	logger logs.Logger,
) vm.IO {
	return New(Options{
		HTTPClient:  client,
		Dialer:      dialer,
		Concurrency: int(concurrency),
		Logger:      logger,
	})
}
