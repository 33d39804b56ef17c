package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/crypto/bcrypt"

	"strategycoordinator/cmd/apiserver"
	"strategycoordinator/cmd/trader"
)

var Version string

func main() {
	setupLogger()

	app := cli.NewApp()
	app.Name = "Coordinator CMD"
	app.Usage = "The strategy coordinator command line interface"

	app.Commands = []cli.Command{
		traderCMD,
		serverCMD,
		tokenCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	traderCMD = cli.Command{
		Name:        "trader",
		Usage:       "run the trading loop and control API",
		Action:      traderAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the multi-strategy trading coordinator`,
	}
	serverCMD = cli.Command{
		Name:        "server",
		Usage:       "run the control API without the trading loop",
		Action:      serverAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve the control API standalone, e.g. against a journal written by a trader process`,
	}
	tokenCMD = cli.Command{
		Name:        "token",
		Usage:       "hash a control API token",
		Action:      tokenAction,
		ArgsUsage:   "<token>",
		Flags:       []cli.Flag{},
		Description: `Print the bcrypt hash to set as CONTROL_API_TOKEN_HASH`,
	}
)

func traderAction(_ *cli.Context) error {
	logrus.Info("Starting trader CMD")

	t := &trader.Trader{}
	err := t.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func serverAction(_ *cli.Context) error {
	logrus.Info("Starting server CMD")

	s := &apiserver.Server{}
	err := s.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

// tokenAction hashes the given token so the plaintext never has to be
// stored server side.
func tokenAction(c *cli.Context) error {
	token := c.Args().First()
	if token == "" {
		return errors.New("usage: token <token>")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	fmt.Println(string(hash))
	return nil
}

func setupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
