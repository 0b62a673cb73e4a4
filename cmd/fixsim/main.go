package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath padrão vem do ambiente, como nos deploys em container.
var defaultConfigPath = os.Getenv("CONFIG_FILE_PATH")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fixsim",
		Short:         "Simulador de contraparte FIX dirigido por configuração YAML",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", defaultConfigPath,
		"arquivo YAML do simulador (caminho local, s3://bucket/key ou dynamodb://tabela/chave)")

	root.AddCommand(newRunCommand(), newValidateCommand())
	return root
}

func configFlag(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("informe --config ou CONFIG_FILE_PATH")
	}
	return path, nil
}
