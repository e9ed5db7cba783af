// honeybft is the operator tooling for the asynchronous BFT primitives: it
// runs the trusted-dealer key generation for the threshold schemes and
// inspects stored key material.
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"

	"github.com/honeybft/honeybft/crypto"
	"github.com/honeybft/honeybft/key"
	"github.com/honeybft/honeybft/log"
)

var folderFlag = &cli.StringFlag{
	Name:    "folder",
	Value:   key.DefaultDataFolder(),
	Usage:   "Folder to keep all cryptographic information, with absolute path.",
	EnvVars: []string{"HONEYBFT_FOLDER"},
}

var verboseFlag = &cli.BoolFlag{
	Name:    "verbose",
	Usage:   "If set, verbosity is at the debug level",
	EnvVars: []string{"HONEYBFT_VERBOSE"},
}

var schemeFlag = &cli.StringFlag{
	Name:  "scheme",
	Value: crypto.TBLSSchemeID,
	Usage: "Threshold scheme to deal keys for (signatures or encryption).",
}

var nodesFlag = &cli.IntFlag{
	Name:  "nodes",
	Value: 4,
	Usage: "Number of players n the key is dealt to.",
}

var thresholdFlag = &cli.IntFlag{
	Name:  "threshold",
	Value: 2,
	Usage: "Number of shares k needed to sign or decrypt.",
}

// CLI builds the command-line application.
func CLI() *cli.App {
	app := cli.NewApp()
	app.Name = "honeybft"
	app.Usage = "key tooling for the asynchronous BFT primitives"
	app.Commands = []*cli.Command{
		{
			Name:   "generate-keys",
			Usage:  "Run the trusted-dealer key generation and store the TOML files",
			Flags:  []cli.Flag{folderFlag, verboseFlag, schemeFlag, nodesFlag, thresholdFlag},
			Action: generateKeysCmd,
		},
		{
			Name:   "show",
			Usage:  "Print the stored distributed public parameters",
			Flags:  []cli.Flag{folderFlag},
			Action: showCmd,
		},
		{
			Name:   "demo",
			Usage:  "Run an in-process network: one broadcast session and a few coin rounds",
			Flags:  []cli.Flag{verboseFlag, faultsFlag, roundsFlag, payloadFlag},
			Action: demoCmd,
		},
	}
	return app
}

func logger(c *cli.Context) log.Logger {
	level := log.InfoLevel
	if c.Bool(verboseFlag.Name) {
		level = log.DebugLevel
	}
	return log.New(nil, level, false)
}

func generateKeysCmd(c *cli.Context) error {
	l := logger(c)

	sch, err := crypto.SchemeFromName(c.String(schemeFlag.Name))
	if err != nil {
		return err
	}
	nodes := c.Int(nodesFlag.Name)
	threshold := c.Int(thresholdFlag.Name)

	ks, err := key.Generate(sch, nodes, threshold)
	if err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}

	store := key.NewFileStore(c.String(folderFlag.Name))
	if err := store.SaveKeySet(ks); err != nil {
		return fmt.Errorf("saving keys: %w", err)
	}

	l.Infow("generated distributed key",
		"scheme", sch.Name, "nodes", nodes, "threshold", threshold,
		"folder", c.String(folderFlag.Name))
	return nil
}

func showCmd(c *cli.Context) error {
	store := key.NewFileStore(c.String(folderFlag.Name))
	pub, err := store.LoadDistPublic()
	if err != nil {
		return err
	}
	return toml.NewEncoder(os.Stdout).Encode(pub.TOML())
}
