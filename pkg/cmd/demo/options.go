package demo

import (
	"github.com/maxgio92/gptimer/pkg/cmd/options"
)

type Options struct {
	workers int
	iters   int
	depth   int

	reportID int
	summary  bool
	cpu      bool
	percent  bool
	method   string
	source   string
	status   bool

	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = new(options.CommonOptions)

	for _, f := range opts {
		f(o)
	}

	return o
}

func WithCommonOptions(common *options.CommonOptions) Option {
	return func(o *Options) {
		o.CommonOptions = common
	}
}
