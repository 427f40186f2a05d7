package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xray/cli/config"
	"github.com/pithecene-io/xray/cli/render"
)

// WeightsCommand returns the weights command.
// It prints the weight table in effect after config is applied, in
// breakdown order.
func WeightsCommand() *cli.Command {
	return &cli.Command{
		Name:   "weights",
		Usage:  "Show the task weight table in effect",
		Flags:  append(OutputFlags(), ConfigFlag),
		Action: weightsAction,
	}
}

func weightsAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for weights command", 1)
	}

	cfg, err := config.LoadDefault(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return r.Render(cfg.WeightTable())
}
