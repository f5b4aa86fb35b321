package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/refinery/internal/client/cli"
	"github.com/dmitrijs2005/refinery/internal/client/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(app.Run(context.Background(), cli.CommandArgs(os.Args[1:])))

}
