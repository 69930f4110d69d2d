package main

import (
	"github.com/prontoa/order/internal/app"
	"github.com/prontoa/order/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
