package main

import (
	"github.com/reusee/dscope"
	"github.com/reusee/tvm/actors"
)

type Module struct {
	dscope.Module
	Actors actors.Module
}
