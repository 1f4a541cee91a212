package vmconfigs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/tvm/configs"
	"github.com/reusee/tvm/logs"
)

type Module struct {
	dscope.Module
	Configs configs.Module
	Logs    logs.Module
}
