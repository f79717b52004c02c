// Command recurrent trains recurrent models and checks their gradients.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("recurrent failed")
		os.Exit(1)
	}
}
